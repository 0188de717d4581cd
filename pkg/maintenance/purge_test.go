package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docboxhq/docbox/pkg/db"
)

func TestShouldReclaimObject(t *testing.T) {
	assert.True(t, shouldReclaimObject(db.PresignedPending))
	assert.True(t, shouldReclaimObject(db.PresignedFailed))
	assert.False(t, shouldReclaimObject(db.PresignedCompleted))
}
