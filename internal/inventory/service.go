// ABOUTME: Inventory service composing the store, activity log and event broadcaster
// ABOUTME: Every mutating operation validates, executes, audits and signals data-changed

package inventory

import (
	"context"
	"log/slog"

	"github.com/chemlab/labstock/internal/notify"
	"github.com/chemlab/labstock/internal/store"
)

// Service is the inventory ledger and transfer engine. It is constructed
// explicitly and passed by reference; there is no shared global instance.
type Service struct {
	store  *store.SQLiteStore
	events *notify.Broadcaster
	logger *slog.Logger
	user   string
}

// NewService creates the service. events may be nil when no one listens;
// logger nil means slog default. user is the acting identity recorded in
// the activity log, defaulting to the system identity.
func NewService(st *store.SQLiteStore, events *notify.Broadcaster, logger *slog.Logger, user string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		events: events,
		logger: logger.With("component", "inventory"),
		user:   user,
	}
}

// audit appends an activity entry. The trail is advisory: a failed write
// must not abort the operation it records, so errors only get a warning.
func (s *Service) audit(ctx context.Context, action, detail string) {
	if err := s.store.LogActivity(ctx, action, detail, s.user); err != nil {
		s.logger.Warn("activity log write failed", "action", action, "error", err)
	}
}

// dataChanged signals listeners that stored state mutated.
func (s *Service) dataChanged() {
	if s.events != nil {
		s.events.Publish(notify.Event{Type: notify.EventDataChanged})
	}
}

// RecentActivity returns the most recent activity entries, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]*store.ActivityEntry, error) {
	return s.store.RecentActivity(ctx, limit)
}

// PruneActivityOlderThan deletes activity entries older than the given
// number of days. The pruning itself is logged.
func (s *Service) PruneActivityOlderThan(ctx context.Context, days int) (int64, error) {
	removed, err := s.store.PruneActivityOlderThan(ctx, days)
	if err != nil {
		return 0, err
	}
	s.audit(ctx, "Activity log pruned", pruneDetail(days, removed))
	return removed, nil
}

// Statistics returns aggregate counts over the register.
func (s *Service) Statistics(ctx context.Context) (*store.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// ReconcileZoneLoads cross-checks each zone's incremental current_load
// against the batch table and reports drift. With repair set, drifted rows
// are rewritten to the recomputed value.
func (s *Service) ReconcileZoneLoads(ctx context.Context, repair bool) ([]store.ZoneLoadDrift, error) {
	drifts, err := s.store.RecomputeZoneLoads(ctx, repair)
	if err != nil {
		return drifts, err
	}
	if len(drifts) > 0 {
		s.logger.Warn("zone load drift detected", "zones", len(drifts), "repaired", repair)
		if repair {
			s.audit(ctx, "Zone loads repaired", reconcileDetail(drifts))
			s.dataChanged()
		}
	}
	return drifts, nil
}
