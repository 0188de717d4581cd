package blobstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	defaultPresignUploadTTL   = 30 * time.Minute
	defaultPresignDownloadTTL = 15 * time.Minute
)

// s3Config is decoded from the [storage.options] TOML table.
type s3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PathStyle       bool   `mapstructure:"path_style"`
}

type s3Factory struct {
	client *minio.Client
	region string
}

func newS3Factory(opts Options) (*s3Factory, error) {
	var cfg s3Config
	if err := mapstructure.Decode(map[string]interface{}(opts), &cfg); err != nil {
		return nil, errors.Wrap(err, "blobstore: decode s3 options")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("blobstore: s3 provider requires options.endpoint")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "blobstore: create minio client")
	}

	return &s3Factory{client: client, region: cfg.Region}, nil
}

func (f *s3Factory) layerFor(bucket string) *s3Backend {
	return &s3Backend{client: f.client, bucket: bucket, region: f.region}
}

// s3Backend implements backend against one S3-compatible bucket — grounded
// on original_source's S3StorageLayer (one struct bound to a bucket name,
// an inherent method per storage operation).
type s3Backend struct {
	client *minio.Client
	bucket string
	region string
}

func (b *s3Backend) CreateBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return errors.Wrap(err, "blobstore: check bucket exists")
	}
	if exists {
		return nil
	}
	err = b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region})
	if err != nil {
		// A bucket that came into existence between the Exists check and
		// here (another request racing us) is not an error.
		if exists, existsErr := b.client.BucketExists(ctx, b.bucket); existsErr == nil && exists {
			return nil
		}
		return errors.Wrap(err, "blobstore: create bucket")
	}
	return nil
}

func (b *s3Backend) BucketExists(ctx context.Context) (bool, error) {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return false, errors.Wrap(err, "blobstore: check bucket exists")
	}
	return exists, nil
}

// DeleteBucket removes the tenant's bucket. A bucket that no longer exists
// is treated as success, per original_source's StorageLayer::delete_bucket.
func (b *s3Backend) DeleteBucket(ctx context.Context) error {
	err := b.client.RemoveBucket(ctx, b.bucket)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return nil
		}
		return errors.Wrap(err, "blobstore: delete bucket")
	}
	return nil
}

func (b *s3Backend) CreatePresignedUpload(ctx context.Context, key string, size int64) (PresignedURL, error) {
	expires := defaultPresignUploadTTL
	u, err := b.client.PresignedPutObject(ctx, b.bucket, key, expires)
	if err != nil {
		return PresignedURL{}, errors.Wrap(err, "blobstore: presign upload")
	}
	return PresignedURL{URL: u.String(), ExpiresAt: time.Now().Add(expires)}, nil
}

func (b *s3Backend) CreatePresignedDownload(ctx context.Context, key string, expiresIn time.Duration) (PresignedURL, error) {
	if expiresIn <= 0 {
		expiresIn = defaultPresignDownloadTTL
	}
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, expiresIn, nil)
	if err != nil {
		return PresignedURL{}, errors.Wrap(err, "blobstore: presign download")
	}
	return PresignedURL{URL: u.String(), ExpiresAt: time.Now().Add(expiresIn)}, nil
}

func (b *s3Backend) UploadFile(ctx context.Context, key, contentType string, body []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, "blobstore: upload file")
	}
	return nil
}

// DeleteFile removes an object. A missing object is success: spec.md §9's
// compensation cleanup must tolerate deleting something already gone.
func (b *s3Backend) DeleteFile(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return errors.Wrap(err, "blobstore: delete file")
	}
	return nil
}

func (b *s3Backend) GetFile(ctx context.Context, key string) (*FileStream, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "blobstore: get file")
	}
	// minio defers the request until the first read/stat; force it now so
	// a missing object surfaces here rather than on first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.New("blobstore: file not found")
		}
		return nil, errors.Wrap(err, "blobstore: stat file")
	}
	return &FileStream{Reader: obj}, nil
}

// AddBucketNotifications configures the bucket to publish object-created
// events to target (an ARN in AWS, or a MinIO-configured NATS subject ARN
// for self-hosted deployments — spec.md §4.7's notification consumer).
func (b *s3Backend) AddBucketNotifications(ctx context.Context, target string) error {
	cfg, err := b.client.GetBucketNotification(ctx, b.bucket)
	if err != nil {
		return errors.Wrap(err, "blobstore: read bucket notification config")
	}
	cfg.AddQueue(minio.NotificationConfig{
		Arn:    minio.NewArn("", "sqs", b.region, "", target),
		Events: []minio.NotificationEventType{minio.ObjectCreatedAll},
	})
	if err := b.client.SetBucketNotification(ctx, b.bucket, cfg); err != nil {
		return errors.Wrap(err, "blobstore: set bucket notification config")
	}
	return nil
}

// SetBucketCORSOrigins is a no-op that always returns nil: it sends no
// request to the storage server, so the bucket's CORS policy is left as it
// is and origins is ignored.
func (b *s3Backend) SetBucketCORSOrigins(ctx context.Context, origins []string) error {
	_ = ctx
	_ = origins
	// minio-go/v7 has no bucket-CORS API as of the pinned version; treated
	// as a no-op success the same way the original tolerates a server that
	// returns NotImplemented for this call.
	return nil
}

var _ io.ReadCloser = (*minio.Object)(nil)
