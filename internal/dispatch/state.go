package dispatch

import (
	"fmt"

	"sidehug/internal/middleware"
	"sidehug/internal/model"
)

// State is the progress of one mention through a dispatch cycle.
type State int

const (
	Fetched State = iota
	ContextResolved
	Classified
	Responding
	Completed
)

func (s State) String() string {
	switch s {
	case Fetched:
		return "fetched"
	case ContextResolved:
		return "context_resolved"
	case Classified:
		return "classified"
	case Responding:
		return "responding"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// mentionRun carries one mention through the states. States only move
// forward; a failure may skip straight to Completed.
type mentionRun struct {
	mention model.Mention
	state   State
	thread  model.ThreadContext
	result  middleware.Result

	replies  int
	failures int
}

func newRun(m model.Mention) *mentionRun {
	return &mentionRun{mention: m, state: Fetched}
}

func (r *mentionRun) advance(to State) error {
	if to <= r.state {
		return fmt.Errorf("dispatch: illegal transition %s -> %s", r.state, to)
	}
	r.state = to
	return nil
}

// replyRef threads every reply directly under the mention. The root is the
// mention's own thread root when it is itself a reply.
func (r *mentionRun) replyRef() model.ReplyRef {
	parent := r.mention.Post.Ref()
	root := parent
	if r.mention.ThreadRootRef != nil && !r.mention.ThreadRootRef.IsZero() {
		root = *r.mention.ThreadRootRef
	}
	return model.ReplyRef{Root: root, Parent: parent}
}
