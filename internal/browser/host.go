package browser

import (
	"context"
	"io"
	"sync"
)

// Confirmer asks the user to approve a potentially destructive or large operation.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm calls f(ctx, message).
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Saver stores downloaded bytes under name and returns where they went.
// size is -1 when unknown.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// Host receives the resolved path. Exactly one of the two variable targets is
// updated, depending on which dialog is currently presented.
type Host interface {
	WorkflowVariablesShown() bool
	UpdateWorkflowVariables(values map[string]string)
	UpdateJobVariables(values map[string]string)
}

// deliver writes {varKey: path} to the active target.
func deliver(h Host, varKey, path string) {
	if h == nil {
		return
	}
	values := map[string]string{varKey: path}
	if h.WorkflowVariablesShown() {
		h.UpdateWorkflowVariables(values)
		return
	}
	h.UpdateJobVariables(values)
}

// Variables is an in-memory Host keeping the two variable sets apart.
type Variables struct {
	mu            sync.Mutex
	workflowShown bool
	workflow      map[string]string
	job           map[string]string
}

// NewVariables creates an empty Host. workflowShown selects the target.
func NewVariables(workflowShown bool) *Variables {
	return &Variables{
		workflowShown: workflowShown,
		workflow:      make(map[string]string),
		job:           make(map[string]string),
	}
}

// WorkflowVariablesShown reports the target chosen in NewVariables.
func (v *Variables) WorkflowVariablesShown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.workflowShown
}

// UpdateWorkflowVariables merges values into the workflow variables.
func (v *Variables) UpdateWorkflowVariables(values map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range values {
		v.workflow[k] = val
	}
}

// UpdateJobVariables merges values into the job variables.
func (v *Variables) UpdateJobVariables(values map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range values {
		v.job[k] = val
	}
}

// Workflow returns a copy of the workflow variables.
func (v *Variables) Workflow() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return copyMap(v.workflow)
}

// Job returns a copy of the job variables.
func (v *Variables) Job() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return copyMap(v.job)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
