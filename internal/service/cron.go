package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const purgeTimeout = 30 * time.Second

// CronRunner runs housekeeping jobs on a cron schedule
type CronRunner struct {
	purger repo.LedgerPurger
	spec   string
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewCronRunner creates a cron runner purging expired ledger entries on spec
func NewCronRunner(purger repo.LedgerPurger, spec string, loc *time.Location) *CronRunner {
	if loc == nil {
		loc = time.Local
	}
	return &CronRunner{
		purger: purger,
		spec:   spec,
		cron:   cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the jobs and starts the scheduler
func (r *CronRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	if _, err := r.cron.AddFunc(r.spec, r.PurgeLedger); err != nil {
		return fmt.Errorf("invalid housekeeping spec %q: %w", r.spec, err)
	}
	r.cron.Start()
	r.running = true
	fmt.Printf("[CronRunner] Started with spec %q\n", r.spec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (r *CronRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	fmt.Println("[CronRunner] Stopped")
}

// PurgeLedger removes expired idempotency records
func (r *CronRunner) PurgeLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := r.purger.PurgeExpired(ctx)
	if err != nil {
		fmt.Printf("[CronRunner] Ledger purge failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("[CronRunner] Purged %d expired ledger entries\n", n)
	}
}
