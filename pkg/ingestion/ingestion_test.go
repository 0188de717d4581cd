package ingestion

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/processing"
)

func TestHashContentsStable(t *testing.T) {
	a := hashContents([]byte("hello world"))
	b := hashContents([]byte("hello world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, hashContents([]byte("hello world!")))
}

func TestClassifyProcessingError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"malformed", &processing.Error{Kind: processing.ErrMalformed, Cause: errors.New("bad pdf")}, errtypes.IsProcessingMalformedErr},
		{"encrypted", &processing.Error{Kind: processing.ErrEncrypted, Cause: errors.New("locked")}, errtypes.IsEncryptedErr},
		{"internal", &processing.Error{Kind: processing.ErrInternal, Cause: errors.New("boom")}, errtypes.IsInternalErr},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := classifyProcessingError(c.err)
			assert.True(t, c.is(out))
		})
	}
}

func TestCompensateNoopOnEmpty(t *testing.T) {
	c := &Coordinator{}
	// Must not panic or spawn anything when there's nothing to clean up.
	c.compensate(compensation{})
}
