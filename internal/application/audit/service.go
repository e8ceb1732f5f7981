package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-passwordless/internal/domain"
	"github.com/go-passwordless/internal/pkg/id"
)

const (
	DefaultRetention = 90 * 24 * time.Hour

	writeTimeout = 3 * time.Second
	maxListLimit = 100
)

// Repository persists auth events.
type Repository interface {
	Put(ctx context.Context, e *domain.AuthEvent) error
	ListByAddress(ctx context.Context, address string, limit int32) ([]domain.AuthEvent, error)
}

// Service records controller transitions. Recording is best effort: a failed
// write is logged and never fails the request that produced it.
type Service interface {
	Record(ctx context.Context, channel, address, action, outcome string)
	Recent(ctx context.Context, address string, limit int) ([]domain.AuthEvent, error)
}

type service struct {
	repo      Repository
	retention time.Duration
	now       func() time.Time
}

func NewService(repo Repository, retention time.Duration) Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &service{repo: repo, retention: retention, now: time.Now}
}

func (s *service) Record(ctx context.Context, channel, address, action, outcome string) {
	now := s.now().UTC()
	e := &domain.AuthEvent{
		EventID:   id.At(now),
		Channel:   channel,
		Address:   address,
		Action:    action,
		Outcome:   outcome,
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention).Unix(),
	}
	// The write outlives a cancelled request but not the write timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := s.repo.Put(ctx, e); err != nil {
		slog.Warn("could not record auth event", "action", action, "outcome", outcome, "err", err)
	}
}

func (s *service) Recent(ctx context.Context, address string, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByAddress(ctx, address, int32(limit))
}
