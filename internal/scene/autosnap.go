package scene

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const autoSnapPrefix = "auto-"

// AutoSnapshotter creates named in-memory snapshots on a cron schedule,
// keeping only the most recent ones. Snapshots stay volatile; nothing is
// written to disk.
type AutoSnapshotter struct {
	store  *Store
	cron   *cron.Cron
	keep   int
	logger *slog.Logger
}

// NewAutoSnapshotter configures a scheduler over the store. keep bounds how
// many auto snapshots are retained.
func NewAutoSnapshotter(store *Store, keep int, logger *slog.Logger) *AutoSnapshotter {
	if keep <= 0 {
		keep = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSnapshotter{
		store:  store,
		cron:   cron.New(),
		keep:   keep,
		logger: logger.With("component", "autosnap"),
	}
}

// Start registers the schedule and begins firing. The spec uses the standard
// five-field cron syntax.
func (a *AutoSnapshotter) Start(spec string) error {
	if _, err := a.cron.AddFunc(spec, a.take); err != nil {
		return fmt.Errorf("auto-snapshot schedule %q: %w", spec, err)
	}
	a.cron.Start()
	a.logger.Info("auto-snapshot enabled", "schedule", spec, "keep", a.keep)
	return nil
}

// Stop halts the scheduler.
func (a *AutoSnapshotter) Stop() {
	a.cron.Stop()
}

func (a *AutoSnapshotter) take() {
	name := autoSnapPrefix + time.Now().UTC().Format("20060102-150405")
	snap := a.store.SnapshotCreate(name)
	a.prune()
	a.logger.Info("auto snapshot taken", "name", snap.Name, "elements", len(snap.Elements))
}

// prune drops the oldest auto snapshots beyond the retention bound. Named
// user snapshots are never touched.
func (a *AutoSnapshotter) prune() {
	var auto []string
	for _, info := range a.store.SnapshotList() {
		if strings.HasPrefix(info.Name, autoSnapPrefix) {
			auto = append(auto, info.Name)
		}
	}
	if len(auto) <= a.keep {
		return
	}
	sort.Strings(auto)
	for _, name := range auto[:len(auto)-a.keep] {
		a.store.SnapshotDelete(name)
	}
}
