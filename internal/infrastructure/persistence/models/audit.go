package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/audit"
	"go.uber.org/zap"
)

var modelLogger = zap.L().Named("audit.models")

// AuditEntryModel is the persistence model for audit log entries.
// Seq gives a strict insertion order used for retention.
type AuditEntryModel struct {
	Seq         uint64       `gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	Timestamp   time.Time    `gorm:"not null;index"`
	Action      audit.Action `gorm:"type:varchar(50);not null;index"`
	User        string       `gorm:"column:user_name;type:varchar(100);not null"`
	DetailsJSON string       `gorm:"column:details;type:jsonb"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_log"
}

// ToDomain converts the persistence model to a domain Entry
func (m *AuditEntryModel) ToDomain() *audit.Entry {
	details := map[string]any{}
	if m.DetailsJSON != "" {
		if err := json.Unmarshal([]byte(m.DetailsJSON), &details); err != nil {
			modelLogger.Warn("failed to parse audit details JSON",
				zap.String("audit_id", m.ID.String()),
				zap.Error(err),
			)
		}
	}
	return &audit.Entry{
		ID:        m.ID,
		Timestamp: m.Timestamp,
		Action:    m.Action,
		User:      m.User,
		Details:   details,
	}
}

// AuditEntryModelFromDomain creates a persistence model from a domain Entry
func AuditEntryModelFromDomain(e *audit.Entry) (*AuditEntryModel, error) {
	raw := []byte("{}")
	if len(e.Details) > 0 {
		var err error
		raw, err = json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
	}
	return &AuditEntryModel{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Action:      e.Action,
		User:        e.User,
		DetailsJSON: string(raw),
	}, nil
}
