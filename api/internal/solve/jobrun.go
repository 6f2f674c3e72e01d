package solve

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/avast/retry-go/v4"

	"exam-solver/api/internal/store"
)

// jobRun owns the record of a single job. It is used from one goroutine at a
// time, and once a terminal status is written every later write is ignored.
// The first write creates the record; later ones only advance a record that
// is still running, so a job closed elsewhere (the sweeper) stays closed.
type jobRun struct {
	store    store.JobStore
	now      func() time.Time
	job      store.Job
	created  bool
	terminal bool
}

func (j *jobRun) write(ctx context.Context, mutate func(*store.Job)) error {
	if j.terminal {
		return nil
	}
	mutate(&j.job)
	j.job.UpdatedAt = j.now().UTC()
	if j.job.Status.Terminal() {
		j.terminal = true
	}
	rec := j.job
	advanced := true
	err := retry.Do(
		func() error {
			if !j.created {
				return j.store.Put(ctx, rec)
			}
			ok, err := j.store.Advance(ctx, rec)
			advanced = ok
			return err
		},
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Printf("solve: job=%s store write (%s) failed: %v", rec.ID, rec.Status, err)
		return err
	}
	j.created = true
	if !advanced {
		j.terminal = true
		log.Printf("solve: job=%s already closed, dropping %s write", rec.ID, rec.Status)
	}
	return nil
}

func (j *jobRun) fail(ctx context.Context, msg string, debug json.RawMessage) {
	j.write(ctx, func(job *store.Job) {
		job.Status = store.StatusError
		job.Message = msg
		job.Answer = ""
		job.Debug = debug
	})
}
