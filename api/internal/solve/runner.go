// Package solve runs the background answer pipeline: compact the exam text,
// ask a generator, repair the answer layout and record every transition in
// the job store.
package solve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"exam-solver/api/internal/answer"
	"exam-solver/api/internal/compact"
	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/store"
)

var (
	ErrMissingJobID = errors.New("job_id is required")
	ErrNoGenerator  = errors.New("no generator configured")

	errJobClosed = errors.New("job closed by another writer")
)

// Request describes one solve job.
type Request struct {
	JobID string
	Text  string
	// Prefix, when set, is guaranteed to start the final answer.
	Prefix   string
	Language string
	// Generator overrides the runner default for this job.
	Generator llm.Generator
}

// Runner accepts jobs and drives them to a terminal status in the background.
type Runner struct {
	store store.JobStore
	gen   llm.Generator
	opts  Options
	wg    sync.WaitGroup
}

func NewRunner(st store.JobStore, gen llm.Generator, opts Options) (*Runner, error) {
	if st == nil {
		return nil, errors.New("solve: nil job store")
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Runner{store: st, gen: gen, opts: opts}, nil
}

func (r *Runner) Options() Options { return r.opts }

// Submit records the job as running and returns immediately; the result is
// observable only through the store. The background work outlives ctx
// cancellation but keeps its values.
func (r *Runner) Submit(ctx context.Context, req Request) (store.Job, error) {
	req.JobID = strings.TrimSpace(req.JobID)
	if req.JobID == "" {
		return store.Job{}, ErrMissingJobID
	}
	gen := req.Generator
	if gen == nil {
		gen = r.gen
	}
	if gen == nil {
		return store.Job{}, ErrNoGenerator
	}

	j := &jobRun{store: r.store, now: r.opts.Now, job: store.Job{ID: req.JobID}}
	if err := j.write(ctx, func(job *store.Job) { job.Status = store.StatusRunning }); err != nil {
		return store.Job{}, fmt.Errorf("record job %s: %w", req.JobID, err)
	}
	running := j.job

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		bg := context.WithoutCancel(ctx)
		defer func() {
			if p := recover(); p != nil {
				log.Printf("solve: job=%s panic: %v", req.JobID, p)
				j.fail(bg, fmt.Sprintf("internal error: %v", p), nil)
			}
		}()
		r.run(bg, j, gen, req)
	}()
	return running, nil
}

// Wait blocks until all background jobs have finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type attemptLog struct {
	Budget  int    `json:"budget"`
	Chars   int    `json:"chars"`
	Kind    string `json:"kind,omitempty"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error"`
	Snippet string `json:"snippet,omitempty"`
}

func (r *Runner) run(ctx context.Context, j *jobRun, gen llm.Generator, req Request) {
	if strings.TrimSpace(req.Text) == "" {
		j.fail(ctx, "source text is empty", nil)
		return
	}

	budgets := r.opts.Budgets
	var (
		attempt int
		logs    []attemptLog
	)
	start := time.Now()

	out, err := retry.DoWithData(
		func() (string, error) {
			budget := budgets[attempt]
			attempt++
			doc, stats := compact.CompactWithStats(req.Text, budget)
			j.write(ctx, func(job *store.Job) {
				job.Attempts = attempt
				job.Budget = budget
			})
			if j.terminal {
				// запись уже закрыта снаружи (свипер), генерировать незачем
				return "", retry.Unrecoverable(errJobClosed)
			}
			log.Printf("solve: job=%s attempt=%d budget=%d chars=%d dup=%d noise=%d gen=%s",
				req.JobID, attempt, budget, stats.Chars, stats.Duplicates, stats.Noise, gen.Name())

			actx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
			defer cancel()
			text, err := gen.Generate(actx, BuildPrompt(doc, r.opts.Markers, req.Language, r.opts))
			if err == nil && strings.TrimSpace(text) == "" {
				err = &llm.UpstreamError{Service: gen.Name(), Kind: llm.FailureEmpty, Err: llm.ErrEmpty}
			}
			if err != nil {
				logs = append(logs, describeFailure(budget, stats.Chars, err))
				return "", err
			}
			return text, nil
		},
		retry.Attempts(uint(len(budgets))),
		retry.Delay(r.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("solve: job=%s attempt %d failed: %v", req.JobID, n+1, err)
		}),
	)
	if errors.Is(err, errJobClosed) {
		return
	}
	if err != nil {
		msg := fmt.Sprintf("generation failed after %d attempt(s): %v", attempt, err)
		log.Printf("solve: job=%s error in %s: %s", req.JobID, time.Since(start), msg)
		j.fail(ctx, msg, debugPayload(logs, r.opts.DebugLimit))
		return
	}

	final := answer.Finalize(out, r.opts.Markers, req.Prefix)
	log.Printf("solve: job=%s done in %s attempts=%d answer_len=%d", req.JobID, time.Since(start), attempt, len(final))
	j.write(ctx, func(job *store.Job) {
		job.Status = store.StatusDone
		job.Answer = final
		job.Message = ""
		job.Debug = nil
	})
}

func describeFailure(budget, chars int, err error) attemptLog {
	l := attemptLog{Budget: budget, Chars: chars, Error: err.Error()}
	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		l.Kind = string(ue.Kind)
		l.Status = ue.Status
		l.Snippet = ue.Body
	}
	return l
}

// debugPayload encodes attempt diagnostics within limit bytes, shrinking
// snippets and then dropping them when needed.
func debugPayload(logs []attemptLog, limit int) json.RawMessage {
	if len(logs) == 0 {
		return nil
	}
	encode := func() []byte {
		b, _ := json.Marshal(struct {
			Attempts []attemptLog `json:"attempts"`
		}{logs})
		return b
	}
	if b := encode(); len(b) <= limit {
		return b
	}
	per := limit / (2 * len(logs))
	for i := range logs {
		logs[i].Snippet = cutRunes(logs[i].Snippet, per)
		logs[i].Error = cutRunes(logs[i].Error, per)
	}
	if b := encode(); len(b) <= limit {
		return b
	}
	for i := range logs {
		logs[i].Snippet = ""
		logs[i].Error = cutRunes(logs[i].Error, 80)
	}
	if b := encode(); len(b) <= limit {
		return b
	}
	b, _ := json.Marshal(map[string]int{"attempts": len(logs)})
	return b
}

func cutRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
