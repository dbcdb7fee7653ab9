package sync

import (
	"github.com/gocortexio/gcgit/internal/diff"
)

// Phase names the stages of a pull, in execution order.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseDiffing    Phase = "diffing"
	PhaseApplying   Phase = "applying"
	PhaseCommitting Phase = "committing"
	PhaseDone       Phase = "done"
)

// ContentTypeReport is the per-content-type outcome of a pull or diff.
type ContentTypeReport struct {
	ContentType string

	// Diff is nil when the content type failed before diffing.
	Diff *diff.Result

	// ChangedPaths are the instance-relative paths a pull wrote or deleted.
	ChangedPaths []string

	// Err is set when the content type failed. A failed content type never
	// aborts its siblings.
	Err error

	// Partial marks a fetch cut short mid-pagination. Removals are
	// suppressed for partial fetches since absence from a truncated listing
	// proves nothing.
	Partial bool

	Warnings []string
}

// PullReport is the outcome of one module pull.
type PullReport struct {
	Module       string
	ContentTypes []ContentTypeReport

	// CommitHash is empty when nothing changed.
	CommitHash string
	UpToDate   bool
}

// Failed counts content types that errored.
func (r *PullReport) Failed() int {
	n := 0
	for _, ct := range r.ContentTypes {
		if ct.Err != nil {
			n++
		}
	}
	return n
}

// DiffReport is the outcome of a read-only diff of one module.
type DiffReport struct {
	Module       string
	ContentTypes []ContentTypeReport
}

// EndpointReport is the outcome of probing one content type's endpoint.
type EndpointReport struct {
	ContentType string
	Count       int
	Err         error
}

// TestReport is the outcome of a connectivity test of one module.
type TestReport struct {
	Module    string
	Endpoints []EndpointReport
}
