package audit

import (
	"context"
	"fmt"

	"github.com/kitchenledger/backend/internal/domain/audit"
	"go.uber.org/zap"
)

// DefaultQueryLimit is used when a query does not name a limit
const DefaultQueryLimit = 50

// AuditService appends to and reads the bounded audit log
type AuditService struct {
	repo      audit.Repository
	retention int
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService. A non-positive retention
// keeps audit.DefaultRetention entries.
func NewAuditService(repo audit.Repository, retention int, logger *zap.Logger) *AuditService {
	if retention <= 0 {
		retention = audit.DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, retention: retention, logger: logger.Named("audit")}
}

// Append records an action; the oldest entries beyond the retention are dropped
func (s *AuditService) Append(ctx context.Context, action audit.Action, user string, details map[string]any) error {
	entry, err := audit.NewEntry(action, user, details)
	if err != nil {
		return err
	}
	if err := s.repo.Append(ctx, entry, s.retention); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	s.logger.Debug("audit entry appended",
		zap.String("action", string(action)),
		zap.String("user", entry.User),
	)
	return nil
}

// Query returns up to limit entries, newest first
func (s *AuditService) Query(ctx context.Context, limit int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > s.retention {
		limit = s.retention
	}
	return s.repo.FindRecent(ctx, limit)
}

// Count returns the number of retained entries
func (s *AuditService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Retention returns the maximum number of kept entries
func (s *AuditService) Retention() int {
	return s.retention
}
