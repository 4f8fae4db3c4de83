// Package retention implements the message-retention sweep (SPEC_FULL.md
// "Supplemented features"): a periodic background job enforcing spec §3's
// data lifecycle ("messages ... deletion cascades to any memory jobs still
// referencing them, idempotent"). Grounded on the teacher's (now-deleted)
// pkg/cleanup/service.go: same Start/Stop/ticker-loop shape, retargeted
// from alert-session + event retention to message retention.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/roleplay/memoryruntime/pkg/config"
	"github.com/roleplay/memoryruntime/pkg/store"
)

// Service periodically deletes messages older than the configured
// retention window. Deletion is idempotent and safe to run from multiple
// instances: a message already gone is simply not matched by the next
// sweep.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a retention Service over an already-migrated store.
func NewService(cfg *config.RetentionConfig, st *store.Store) *Service {
	return &Service{config: cfg, store: st}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention: service started",
		"message_retention_days", s.config.MessageRetentionDays,
		"sweep_interval", s.config.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention: service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.MessageRetentionDays)
	criteria := store.NewCriteria().Where("created_at", store.OpLT, cutoff)
	if err := s.store.DeleteByCriteria(ctx, "messages", criteria); err != nil {
		slog.Error("retention: message sweep failed", "error", err)
		return
	}
	slog.Info("retention: message sweep complete", "cutoff", cutoff)
}
