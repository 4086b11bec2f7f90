package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	details := map[string]any{"documentId": "abc"}
	entry, err := NewEntry(ActionDocumentPosted, "  ", details)
	require.NoError(t, err)

	assert.Equal(t, "system", entry.User)
	assert.Equal(t, ActionDocumentPosted, entry.Action)
	assert.False(t, entry.Timestamp.IsZero())

	// details are copied
	details["documentId"] = "changed"
	assert.Equal(t, "abc", entry.Details["documentId"])

	_, err = NewEntry(Action("deleted_everything"), "admin", nil)
	assert.Error(t, err)
}
