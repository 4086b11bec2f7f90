package audit

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
)

// DefaultRetention is the number of entries kept in the log
const DefaultRetention = 1000

// Action is the kind of audited operation
type Action string

const (
	ActionProductCreated  Action = "product_created"
	ActionProductUpdated  Action = "product_updated"
	ActionRecipeCreated   Action = "recipe_created"
	ActionRecipeUpdated   Action = "recipe_updated"
	ActionDocumentPosted  Action = "document_posted"
	ActionDocumentSynced  Action = "document_synced"
	ActionSettingsUpdated Action = "settings_updated"
	ActionBackupCreated   Action = "backup_created"
	ActionBackupRestored  Action = "backup_restored"
	ActionOldDataCleared  Action = "old_data_cleared"
)

// IsValid checks if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionProductCreated, ActionProductUpdated, ActionRecipeCreated, ActionRecipeUpdated,
		ActionDocumentPosted, ActionDocumentSynced, ActionSettingsUpdated,
		ActionBackupCreated, ActionBackupRestored, ActionOldDataCleared:
		return true
	}
	return false
}

// Entry is one append-only audit log record
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	User      string         `json:"user"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewEntry creates an audit entry stamped with the current time
func NewEntry(action Action, user string, details map[string]any) (*Entry, error) {
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "invalid audit action: "+string(action))
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = "system"
	}
	return &Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Action:    action,
		User:      user,
		Details:   maps.Clone(details),
	}, nil
}
