package ide

import (
	"context"
	"encoding/json"
)

// WorkspacePath infers the absolute workspace root from the window title
// and open-tab labels. Returns false when no path signal exists anywhere
// in the UI — a normal outcome for a freshly opened editor.
func (a *Automator) WorkspacePath(ctx context.Context) (string, bool) {
	target := a.resolveTarget(ctx)
	if target == nil {
		return "", false
	}

	raw, err := a.evalRead(ctx, target, scriptWindowContext, nil)
	if err != nil || raw == nil {
		return "", false
	}

	var res struct {
		Title  string   `json:"title"`
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", false
	}

	// The window title itself sometimes embeds the path; check it last so
	// tab labels (which carry full paths) win.
	labels := append(res.Labels, res.Title)
	return inferWorkspacePath(res.Title, labels, a.product)
}
