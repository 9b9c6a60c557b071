package processor

import (
	"github.com/Ramsey-B/fern/pkg/lifecycle"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Outcome is the result of processing one event: Disqualified, Failed or Merged.
// Infrastructure errors are not outcomes; they are returned as errors.
type Outcome interface {
	outcome()
	// Label names the variant for logs and metrics
	Label() string
}

// Disqualified means the event was not merged for an expected reason. Removal is
// set when a merged origin was removed on the way.
type Disqualified struct {
	Reason  lifecycle.Reason
	Removal *models.Notification
}

// Failed means every relocation attempt failed; the event is skipped.
type Failed struct {
	Cause error
}

// Merged means a relocated origin was published to the event.
type Merged struct {
	Origin       *models.Origin
	Notification *models.Notification
}

func (Disqualified) outcome() {}
func (Failed) outcome()       {}
func (Merged) outcome()       {}

func (Disqualified) Label() string { return "disqualified" }
func (Failed) Label() string       { return "failed" }
func (Merged) Label() string       { return "merged" }

func reasonOf(o Outcome) string {
	if d, ok := o.(Disqualified); ok {
		return string(d.Reason)
	}
	return ""
}
