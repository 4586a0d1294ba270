// Package housekeeper runs periodic cleanup for daemon-style callers:
// deleting quarantined checkouts once they are no longer locked, and
// pruning unreachable objects from the repository.
package housekeeper

import (
	cronlib "github.com/robfig/cron/v3"

	"github.com/abhijitnavale/flatpak/pkg/engine"
	"github.com/abhijitnavale/flatpak/pkg/logging"
)

var log = logging.GetLogger("housekeeper")

// DefaultCleanupSchedule runs cleanup and prune once an hour.
const DefaultCleanupSchedule = "0 * * * *"

// Housekeeper periodically runs CleanupRemoved and Prune against an
// Engine's installation.
type Housekeeper struct {
	cron   *cronlib.Cron
	engine *engine.Engine
}

// New builds a Housekeeper that runs cleanup on schedule (a standard
// 5-field cron expression) against eng. It does not start until Start
// is called.
func New(eng *engine.Engine, schedule string) (*Housekeeper, error) {
	c := cronlib.New()
	h := &Housekeeper{cron: c, engine: eng}

	_, err := c.AddFunc(schedule, h.runOnce)
	if err != nil {
		return nil, err
	}

	return h, nil
}

// Start begins the background cron loop.
func (h *Housekeeper) Start() {
	h.cron.Start()
}

// Stop cancels the background cron loop and waits for any in-flight
// run to finish.
func (h *Housekeeper) Stop() {
	ctx := h.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs one cleanup+prune pass immediately, outside the
// cron schedule, for callers that want to trigger it on demand.
func (h *Housekeeper) RunOnce() {
	h.runOnce()
}

func (h *Housekeeper) runOnce() {
	if err := h.engine.CleanupRemoved(); err != nil {
		log.Warn().Err(err).Msg("housekeeping: cleanup pass failed")
	}

	result, err := h.engine.Prune()
	if err != nil {
		log.Warn().Err(err).Msg("housekeeping: prune pass failed")
		return
	}

	log.Info().
		Int("total_objects", result.TotalObjects).
		Int("pruned_objects", result.PrunedObjects).
		Int64("freed_bytes", result.FreedBytes).
		Msg("housekeeping pass complete")
}
