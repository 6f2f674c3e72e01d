package solve

import (
	"errors"
	"fmt"
	"time"

	"exam-solver/api/internal/answer"
)

// Options tune the solve pipeline. Zero values are replaced by defaults.
type Options struct {
	// Budgets are character limits for successive attempts, strictly decreasing.
	Budgets         []int
	AttemptTimeout  time.Duration
	RetryDelay      time.Duration
	Markers         answer.Markers
	Temperature     float32
	MaxOutputTokens int
	// DebugLimit caps the size of the diagnostic payload stored with a failed job.
	DebugLimit int
	Now        func() time.Time
}

var DefaultBudgets = []int{6000, 3000}

const (
	DefaultAttemptTimeout = 45 * time.Second
	DefaultDebugLimit     = 2000
)

func (o Options) withDefaults() Options {
	if len(o.Budgets) == 0 {
		o.Budgets = append([]int(nil), DefaultBudgets...)
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.Markers[0] == "" || o.Markers[1] == "" {
		o.Markers = answer.DefaultMarkers
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 2048
	}
	if o.DebugLimit <= 0 {
		o.DebugLimit = DefaultDebugLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) validate() error {
	for i, b := range o.Budgets {
		if b <= 0 {
			return fmt.Errorf("solve: budget #%d must be positive, got %d", i+1, b)
		}
		if i > 0 && b >= o.Budgets[i-1] {
			return fmt.Errorf("solve: budgets must be strictly decreasing, got %v", o.Budgets)
		}
	}
	if o.Markers[0] == o.Markers[1] {
		return errors.New("solve: section markers must differ")
	}
	return nil
}

// MaxRunTime is the longest a healthy run can stay in running: every attempt
// hitting its timeout plus the delays between attempts.
func (o Options) MaxRunTime() time.Duration {
	o = o.withDefaults()
	n := time.Duration(len(o.Budgets))
	return n*o.AttemptTimeout + (n-1)*o.RetryDelay
}
