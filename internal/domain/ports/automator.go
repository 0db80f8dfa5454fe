package ports

import "context"

// EditorState holds the active model and mode labels read from the editor UI.
// Values the reader could not determine are reported as "Unknown".
type EditorState struct {
	Model string `json:"model"`
	Mode  string `json:"mode"`
}

// SelectResult is the outcome of a model or mode selection attempt.
type SelectResult struct {
	Success   bool     `json:"success"`
	Requested string   `json:"requested"`
	Selected  string   `json:"selected,omitempty"`
	// Rejected lists the candidate labels that were enumerated but not
	// matched, kept for diagnostics when Success is false.
	Rejected []string `json:"rejected_candidates,omitempty"`
}

// ApprovalState describes pending approval prompts detected in the editor UI.
// It is derived fresh on each query and never persisted.
type ApprovalState struct {
	Pending      bool   `json:"pending"`
	Count        int    `json:"count"`
	ApproveLabel string `json:"approve_label,omitempty"`
	RejectLabel  string `json:"reject_label,omitempty"`
}

// RespondResult is the outcome of an approval response attempt.
type RespondResult struct {
	Found   bool `json:"found"`
	Clicked bool `json:"clicked"`
}

// Success reports whether the affordance was both found and clicked.
func (r RespondResult) Success() bool {
	return r.Found && r.Clicked
}

// Automator is the scraper capability interface over the editor's rendered
// UI. All operations are best-effort heuristics: a "not found" outcome is a
// normal result, not an error. Matching rules may be replaced without
// touching callers.
type Automator interface {
	// Available reports whether a debuggable editor target is reachable.
	Available(ctx context.Context) bool

	// State reads the active model and mode labels.
	State(ctx context.Context) (EditorState, error)

	// SetModel selects the model whose label best matches name.
	SetModel(ctx context.Context, name string) (SelectResult, error)

	// SetMode selects the mode whose label best matches name.
	SetMode(ctx context.Context, name string) (SelectResult, error)

	// WorkspacePath infers the absolute workspace root path. The second
	// return is false when no path signal exists in the UI.
	WorkspacePath(ctx context.Context) (string, bool)

	// Approvals detects pending approval prompts.
	Approvals(ctx context.Context) (ApprovalState, error)

	// RespondApproval clicks the approve or reject affordance.
	RespondApproval(ctx context.Context, approve bool) (RespondResult, error)

	// Screenshot captures the editor window as encoded image bytes.
	// The image is returned exactly as produced by the editor, without
	// re-encoding.
	Screenshot(ctx context.Context) ([]byte, string, error)
}
