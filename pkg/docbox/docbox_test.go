package docbox

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateScope(t *testing.T) {
	assert.True(t, isDuplicateScope(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicateScope(&mysql.MySQLError{Number: 1451, Message: "foreign key constraint fails"}))
	assert.False(t, isDuplicateScope(errors.New("some other failure")))
	assert.False(t, isDuplicateScope(nil))
}

func TestIsDuplicateScopeWrapped(t *testing.T) {
	err := errors.Wrap(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, "insert document box row")
	assert.True(t, isDuplicateScope(err))
}
