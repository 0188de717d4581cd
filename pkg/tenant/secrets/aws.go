package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/mitchellh/mapstructure"
)

// awsConfig carries the optional region override; credentials otherwise
// come from the default AWS credential chain (env, instance profile, etc).
type awsConfig struct {
	Region string `mapstructure:"region"`
}

type awsClient interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsBackend struct {
	client awsClient
}

func newAWSBackend(opts map[string]interface{}) (*awsBackend, error) {
	var cfg awsConfig
	if err := mapstructure.Decode(opts, &cfg); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, err
	}

	return &awsBackend{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

func (b *awsBackend) getSecret(ctx context.Context, name string) (string, bool, error) {
	out, err := b.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if out.SecretString == nil {
		return "", false, nil
	}
	return *out.SecretString, true, nil
}
