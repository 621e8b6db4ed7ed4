// Package pipeline runs a fixed sequence of stages, stopping at the first
// failure. Each stage gets its own timeout, optional bounded retries for
// transient transport failures, stage metrics and banner log lines.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"datapipe/internal/etlerr"
	"datapipe/internal/metrics"

	"github.com/google/uuid"
)

// Stage is one named unit of work. Destination, when set, describes where
// the stage writes and is listed in the run summary.
type Stage struct {
	Name        string
	Destination string
	Run         func(ctx context.Context) error
}

// Status is the outcome of one stage.
type Status string

const (
	StageSucceeded Status = "succeeded"
	StageFailed    Status = "failed"
)

// State is the lifecycle of a whole run.
type State string

const (
	NotStarted State = "not_started"
	Completed  State = "completed"
	Failed     State = "failed"
)

// StageResult records how one stage went.
type StageResult struct {
	Name     string
	Status   Status
	Attempts int
	Duration time.Duration
	Err      error
}

// Result is the outcome of Runner.Run. Stages holds one entry per stage that
// was started; stages after a failure are absent.
type Result struct {
	RunID  string
	State  State
	Stages []StageResult
	Err    error
}

// OK reports whether every stage succeeded.
func (r Result) OK() bool { return r.State == Completed }

const (
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	bannerWidth       = 60
)

// Runner executes Stages in order.
type Runner struct {
	// Job labels metrics and log lines.
	Job    string
	Stages []Stage
	// StageTimeout bounds each stage attempt. Zero disables the bound.
	StageTimeout time.Duration
	// Retries is the number of extra attempts for a retryable failure.
	Retries int
	// Backoff is the wait before the first retry; it doubles per attempt up
	// to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// Run executes every stage in order and returns on the first failure.
// Earlier stages are not rolled back.
func (r *Runner) Run(ctx context.Context) Result {
	res := Result{RunID: r.runID(), State: NotStarted}
	start := time.Now()

	log.Printf("pipeline: run_id=%s job=%s stages=%d", res.RunID, r.Job, len(r.Stages))

	for i, st := range r.Stages {
		banner(fmt.Sprintf("STEP %d: %s", i+1, st.Name))
		sr := r.runStage(ctx, st)
		res.Stages = append(res.Stages, sr)
		if sr.Err != nil {
			res.State = Failed
			res.Err = fmt.Errorf("step %d (%s): %w", i+1, st.Name, sr.Err)
			banner("PIPELINE FAILED")
			log.Printf("pipeline: %v", res.Err)
			r.summary(res, time.Since(start))
			return res
		}
	}

	res.State = Completed
	banner("PIPELINE COMPLETED SUCCESSFULLY")
	r.summary(res, time.Since(start))
	return res
}

func (r *Runner) runStage(ctx context.Context, st Stage) StageResult {
	sr := StageResult{Name: st.Name}
	start := time.Now()

	var err error
	for {
		sr.Attempts++
		err = r.attempt(ctx, st)
		if err == nil || sr.Attempts > r.Retries || !etlerr.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		wait := backoffDuration(r.backoff(), sr.Attempts-1, r.maxBackoff())
		log.Printf("pipeline: %s attempt %d failed: %v; retrying in %s", st.Name, sr.Attempts, err, wait)
		if serr := r.wait(ctx, wait); serr != nil {
			break
		}
	}

	sr.Duration = time.Since(start)
	sr.Err = err
	if err != nil {
		sr.Status = StageFailed
		log.Printf("pipeline: %s failed after %d attempt(s) in %s: %v",
			st.Name, sr.Attempts, sr.Duration.Truncate(time.Millisecond), err)
	} else {
		sr.Status = StageSucceeded
		log.Printf("pipeline: %s completed in %s", st.Name, sr.Duration.Truncate(time.Millisecond))
	}
	metrics.RecordStage(r.Job, st.Name, err, sr.Duration)
	return sr
}

func (r *Runner) attempt(ctx context.Context, st Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.Run == nil {
		return fmt.Errorf("stage %s has no Run function", st.Name)
	}
	if r.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.StageTimeout)
		defer cancel()
	}
	return st.Run(ctx)
}

func (r *Runner) summary(res Result, elapsed time.Duration) {
	log.Printf("pipeline: run_id=%s state=%s elapsed=%s", res.RunID, res.State, elapsed.Truncate(time.Millisecond))
	for i, sr := range res.Stages {
		line := fmt.Sprintf("  %d. %-28s %-9s attempts=%d %s",
			i+1, sr.Name, sr.Status, sr.Attempts, sr.Duration.Truncate(time.Millisecond))
		if sr.Err != nil {
			line += " error=" + sr.Err.Error()
		} else if dest := r.Stages[i].Destination; dest != "" {
			line += " -> " + dest
		}
		log.Print(line)
	}
	for _, st := range r.Stages[len(res.Stages):] {
		log.Printf("     %-28s skipped", st.Name)
	}
}

func banner(title string) {
	rule := strings.Repeat("=", bannerWidth)
	log.Print(rule)
	log.Print(title)
	log.Print(rule)
}

func (r *Runner) runID() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.NewString()
}

func (r *Runner) backoff() time.Duration {
	if r.Backoff > 0 {
		return r.Backoff
	}
	return defaultBackoff
}

func (r *Runner) maxBackoff() time.Duration {
	if r.MaxBackoff > 0 {
		return r.MaxBackoff
	}
	return defaultMaxBackoff
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, d)
	}
	return sleepWithContext(ctx, d)
}

// backoffDuration returns initial * 2^attempt clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		if initial > max {
			return max
		}
		return initial
	}
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
