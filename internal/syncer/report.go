package syncer

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/cellar-sync/internal/naming"
)

// Outcome is the terminal state of one item.
type Outcome int

const (
	Uploaded Outcome = iota
	SkippedExists
	SkippedIneligible
	Errored
	// Planned is used in dry-run mode for items that would be uploaded.
	Planned
)

func (o Outcome) String() string {
	switch o {
	case Uploaded:
		return "uploaded"
	case SkippedExists:
		return "skipped-exists"
	case SkippedIneligible:
		return "skipped-ineligible"
	case Errored:
		return "errored"
	case Planned:
		return "planned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result records what happened to one item.
type Result struct {
	Kind    naming.Kind
	Ref     naming.Ref
	Key     string
	Outcome Outcome
	// Reason explains a SkippedIneligible outcome.
	Reason string
	Err    error
}

// Report collects the results of a run in processing order.
type Report struct {
	Results []Result
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the errored results.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Outcome == Errored {
			failed = append(failed, res)
		}
	}
	return failed
}

// Keys returns the object keys of the results with outcome o.
func (r *Report) Keys(o Outcome) []string {
	var keys []string
	for _, res := range r.Results {
		if res.Outcome == o {
			keys = append(keys, res.Key)
		}
	}
	return keys
}

// Err returns a non-nil error when at least one item errored.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, res := range failed {
		names = append(names, res.Ref.String())
	}
	return fmt.Errorf("%d item(s) failed: %s", len(failed), strings.Join(names, ", "))
}

// Summary renders the outcome counts on one line.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d uploaded, %d already present, %d ineligible, %d failed, %d planned",
		r.Count(Uploaded), r.Count(SkippedExists), r.Count(SkippedIneligible), r.Count(Errored), r.Count(Planned))
}
