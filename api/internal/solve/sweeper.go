package solve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"exam-solver/api/internal/store"
)

// AbandonedMessage is recorded on running jobs the sweeper gives up on.
const AbandonedMessage = "job abandoned"

// Sweeper finishes jobs left running by a crashed or restarted process.
// StaleAfter must be well above the total attempt time of a healthy job.
type Sweeper struct {
	Store      store.JobStore
	StaleAfter time.Duration
	Now        func() time.Time
}

// ErrStaleAfterTooShort: StaleAfter would let the sweeper close jobs that are still being generated.
var ErrStaleAfterTooShort = errors.New("stale-after must exceed the longest possible run")

// CheckStaleAfter rejects a staleAfter at or below the worst-case run time of opts.
func CheckStaleAfter(staleAfter time.Duration, opts Options) error {
	if longest := opts.MaxRunTime(); staleAfter <= longest {
		return fmt.Errorf("%w: %s <= %s", ErrStaleAfterTooShort, staleAfter, longest)
	}
	return nil
}

func NewSweeper(st store.JobStore, staleAfter time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &Sweeper{Store: st, StaleAfter: staleAfter, Now: time.Now}
}

// Sweep marks every stale running job as error and returns how many it closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.Now().UTC()
	cutoff := now.Add(-s.StaleAfter)
	stale, err := s.Store.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}
	n := 0
	for _, j := range stale {
		j.Status = store.StatusError
		j.Message = AbandonedMessage
		j.Answer = ""
		j.UpdatedAt = now
		// запись могла обновиться после ListStale: закрываем только если она всё ещё висит
		ok, err := s.Store.CloseStale(ctx, j, cutoff)
		if err != nil {
			return n, fmt.Errorf("close job %s: %w", j.ID, err)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Schedule registers the sweep on c using a standard cron spec, e.g. "@every 1m".
func (s *Sweeper) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			log.Printf("sweeper: %v", err)
			return
		}
		if n > 0 {
			log.Printf("sweeper: closed %d abandoned job(s)", n)
		}
	})
}
