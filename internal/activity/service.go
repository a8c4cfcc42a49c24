package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultFeedLimit = 50

// Service handles activity log business logic.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService builds a Service instance.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Record appends an entry, filling in the identifier and timestamp.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return err
	}
	s.cache.Bump(ctx)
	return nil
}

// List returns the most recent entries for a user, served from cache when
// possible.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultFeedLimit
	}
	return s.cache.FetchFeed(ctx, userID, limit, func(ctx context.Context) ([]Entry, error) {
		return s.repo.ListByUser(ctx, userID, limit)
	})
}

// Purge removes entries older than the retention period and returns how many
// were deleted.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-RetentionPeriod)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.cache.Bump(ctx)
	}
	return removed, nil
}
