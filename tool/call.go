package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweetpotato0/aura/errors"
)

// MaxParallelCalls bounds how many tool calls one assistant turn may request.
const MaxParallelCalls = 8

// Call is one tool invocation requested by the model. Arguments holds the raw
// JSON payload exactly as accumulated from the stream.
type Call struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Args parses the raw argument payload into a map. An empty payload parses
// as an empty map.
func (c Call) Args() (map[string]any, error) {
	if strings.TrimSpace(c.Arguments) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return nil, fmt.Errorf("parse arguments for %s: %w", c.Name, err)
	}
	return args, nil
}

// CallList is a small bounded ordered collection of requested calls.
type CallList []Call

// Add appends a call, enforcing the parallel-call bound.
func (l CallList) Add(c Call) (CallList, error) {
	if len(l) >= MaxParallelCalls {
		return l, errors.ErrTooManyCalls
	}
	return append(l, c), nil
}

// Vision is a binary image payload produced by a tool (e.g. a camera capture)
// to be carried into the next provider call.
type Vision struct {
	Data      []byte
	MediaType string
}

// Result is the outcome of executing one tool call.
type Result struct {
	ToolCallID string
	Name       string
	Text       string
	Success    bool

	// SkipFollowup means the result text goes straight back to the user
	// without another provider call. Tools that invalidate the conversation
	// history set this.
	SkipFollowup bool

	// Vision optionally carries an image for the next provider call.
	Vision *Vision
}

// ResultList is the ordered collection of results for one iteration, one
// entry per call, matched by id.
type ResultList []Result

// SkipFollowup reports whether any result short-circuits the loop.
func (rs ResultList) SkipFollowup() bool {
	for _, r := range rs {
		if r.SkipFollowup {
			return true
		}
	}
	return false
}

// DirectResponse joins the result texts for returning to the user directly.
func (rs ResultList) DirectResponse() string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.Text != "" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// PendingVision returns the vision payload to carry forward. When several
// results produce one, the most recent wins.
func (rs ResultList) PendingVision() *Vision {
	var vision *Vision
	for _, r := range rs {
		if r.Vision != nil {
			vision = r.Vision
		}
	}
	return vision
}

// Dispatcher executes a batch of requested tool calls. Implementations may
// take non-trivial time per call; the loop blocks until all results are in.
// An implementation whose tool resets the conversation mid-exchange must
// return errors.ErrHistoryInvalidated so the loop stops without appending.
type Dispatcher interface {
	Execute(ctx context.Context, calls CallList) (ResultList, error)
}

// RegistryDispatcher executes calls against a local Registry.
type RegistryDispatcher struct {
	registry *Registry
}

// NewRegistryDispatcher wraps a registry in the Dispatcher interface.
func NewRegistryDispatcher(registry *Registry) *RegistryDispatcher {
	return &RegistryDispatcher{registry: registry}
}

// Execute runs every call in order and reports per-call failures as
// unsuccessful results rather than aborting the batch.
func (d *RegistryDispatcher) Execute(ctx context.Context, calls CallList) (ResultList, error) {
	if d.registry == nil {
		return nil, fmt.Errorf("dispatcher: %w", errors.ErrInternal)
	}

	results := make(ResultList, 0, len(calls))
	for _, call := range calls {
		args, err := call.Args()
		if err != nil {
			results = append(results, Result{
				ToolCallID: call.ID,
				Name:       call.Name,
				Text:       fmt.Sprintf("Error: %v", err),
			})
			continue
		}

		text, err := d.registry.Execute(ctx, call.Name, args)
		if err != nil {
			results = append(results, Result{
				ToolCallID: call.ID,
				Name:       call.Name,
				Text:       fmt.Sprintf("Error: %v", err),
			})
			continue
		}

		results = append(results, Result{
			ToolCallID: call.ID,
			Name:       call.Name,
			Text:       text,
			Success:    true,
		})
	}
	return results, nil
}
