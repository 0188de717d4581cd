package presigned

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBucketMessage(t *testing.T) {
	raw := []byte(`{"Records":[{"s3":{"bucket":{"name":"tenant-a"},"object":{"key":"scope/file.pdf"}}}]}`)
	bucket, key, ok := parseBucketMessage(raw)
	assert.True(t, ok)
	assert.Equal(t, "tenant-a", bucket)
	assert.Equal(t, "scope/file.pdf", key)
}

func TestParseBucketMessageMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
		[]byte(`{"Records":[]}`),
		[]byte(`{"Records":[{"s3":{"bucket":{"name":""},"object":{"key":"x"}}}]}`),
	}
	for _, raw := range cases {
		_, _, ok := parseBucketMessage(raw)
		assert.False(t, ok)
	}
}
