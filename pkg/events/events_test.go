package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeRoundTrip verifies spec.md testable property 7: re-parsing
// an emitted event's wire body reproduces the entity's observable fields.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	tenantID := uuid.New()
	fileID := uuid.New()
	ev := Event{
		Type: TypeFileCreated,
		Data: FileCreated{Scope: "test", ID: fileID, Name: "report.pdf", Mime: "application/pdf"},
	}

	raw, err := Encode(tenantID, ev)
	require.NoError(t, err)

	gotTenant, gotType, rawData, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, TypeFileCreated, gotType)

	var got FileCreated
	require.NoError(t, json.Unmarshal(rawData, &got))
	assert.Equal(t, ev.Data, got)
}

func TestEncodeWireEnvelopeShape(t *testing.T) {
	tenantID := uuid.New()
	raw, err := Encode(tenantID, Event{
		Type: TypeFolderDeleted,
		Data: FolderDeleted{Scope: "s", ID: uuid.New(), Name: "sub"},
	})
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, tenantID.String(), generic["tenant_id"])
	assert.Equal(t, "FOLDER_DELETED", generic["event"])
	assert.Contains(t, generic, "data")
}
