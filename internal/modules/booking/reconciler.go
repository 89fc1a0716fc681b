package booking

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"planner/internal/modules/availability"
)

const reconcileBatch = 100

// Reconciler retries calendar syncs that failed after commit. It never
// touches booking status or tokens.
type Reconciler struct {
	service *Service
	mu      sync.Mutex
}

func NewReconciler(service *Service) *Reconciler {
	return &Reconciler{service: service}
}

type ReconcileStats struct {
	Checked int
	Synced  int
	Failed  int
}

// RunOnce processes one batch of pending bookings. Overlapping runs are
// serialized.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats ReconcileStats
	pending, err := r.service.store.ListSyncPending(ctx, reconcileBatch)
	if err != nil {
		return stats, err
	}

	for i := range pending {
		cfg := pending[i].Configuration
		stats.Checked++
		if cfg == nil {
			stats.Failed++
			continue
		}
		// The batch may be stale by now; sync what is stored.
		b, err := r.service.store.GetByID(ctx, pending[i].ID)
		if err != nil {
			logSideEffect("reconcile_reload", pending[i].ID, err)
			stats.Failed++
			continue
		}
		if !b.CalendarSyncPending {
			stats.Synced++
			continue
		}
		hours, err := availability.LoadHours(ctx, r.service.prefs, cfg.OwnerID)
		if err != nil {
			logSideEffect("reconcile_hours", b.ID, err)
			stats.Failed++
			continue
		}
		if res := r.service.syncCalendar(ctx, cfg, hours, b); res.Failed() || b.CalendarSyncPending {
			stats.Failed++
			continue
		}
		stats.Synced++
	}
	return stats, nil
}

// Schedule registers RunOnce on c with a cron spec.
func (r *Reconciler) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		stats, err := r.RunOnce(ctx)
		if err != nil {
			log.Printf("calendar_reconcile_error err=%v", err)
			return
		}
		if stats.Checked > 0 {
			log.Printf("calendar_reconcile checked=%d synced=%d failed=%d", stats.Checked, stats.Synced, stats.Failed)
		}
	})
}
