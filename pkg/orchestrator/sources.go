package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TaskFunc builds the task for one source.
type TaskFunc func(source string) (string, error)

// SourceResult is the outcome for one source.
type SourceResult struct {
	Source string
	Result *Result
	Err    error
}

// Summary collects the outcome of RunSources.
type Summary struct {
	Sources []SourceResult
}

// Succeeded counts sources that ran without error.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Sources {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts sources that returned an error.
func (s *Summary) Failed() int { return len(s.Sources) - s.Succeeded() }

// Records counts records extracted across all sources.
func (s *Summary) Records() int {
	n := 0
	for _, r := range s.Sources {
		if r.Result != nil {
			n += len(r.Result.Records)
		}
	}
	return n
}

// Err joins the per-source errors.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Sources {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Source, r.Err))
		}
	}
	return errors.Join(errs...)
}

// RunSources runs one full cycle per source, one after the other, pausing
// InterSourceDelay in between. A failed source does not stop the loop; a
// cancelled context does.
func (o *Orchestrator) RunSources(ctx context.Context, sources []string, taskFor TaskFunc) (*Summary, error) {
	summary := &Summary{}
	for i, src := range sources {
		if i > 0 && o.cfg.InterSourceDelay > 0 {
			o.log.Debugf("waiting %s before next source", o.cfg.InterSourceDelay)
			if err := sleep(ctx, o.cfg.InterSourceDelay); err != nil {
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		o.log.Infof("source %d/%d: %s", i+1, len(sources), src)
		sr := SourceResult{Source: src}
		task, err := taskFor(src)
		if err != nil {
			sr.Err = fmt.Errorf("build task: %w", err)
		} else {
			sr.Result, sr.Err = o.Run(ctx, task)
			if sr.Result != nil {
				sr.Result.Source = src
			}
		}
		if sr.Err != nil {
			o.log.Errorf("source %s failed: %v", src, sr.Err)
		}
		summary.Sources = append(summary.Sources, sr)

		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}
	o.log.Infof("sources done: %d succeeded, %d failed, %d records", summary.Succeeded(), summary.Failed(), summary.Records())
	return summary, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
