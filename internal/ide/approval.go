package ide

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"

	"ibridge/internal/domain"
	"ibridge/internal/domain/ports"
)

// approvalPatterns are the fixed phrases that signal a pending approval
// in the rendered text. The first pattern's capture group carries the
// pending count when present.
var approvalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s+pending\s+approvals?`),
	regexp.MustCompile(`(?i)waiting\s+for\s+(?:your\s+)?approval`),
	regexp.MustCompile(`(?i)needs?\s+(?:your\s+)?approval`),
}

// Affordance keyword sets for locating approve/reject controls by their
// short labels.
var (
	approveKeywords = []string{"approve", "accept", "allow", "run", "yes"}
	rejectKeywords  = []string{"reject", "deny", "cancel", "no"}
)

// Approvals scans the rendered text for pending-approval phrases and
// locates the approve/reject affordances. The state is derived fresh on
// every call and never persisted.
func (a *Automator) Approvals(ctx context.Context) (ports.ApprovalState, error) {
	target := a.resolveTarget(ctx)
	if target == nil {
		return ports.ApprovalState{}, nil
	}

	raw, err := a.evalRead(ctx, target, scriptApprovalContext, nil)
	if err != nil || raw == nil {
		return ports.ApprovalState{}, nil
	}

	var res struct {
		Text    string   `json:"text"`
		Buttons []string `json:"buttons"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return ports.ApprovalState{}, nil
	}

	return detectApproval(res.Text, res.Buttons), nil
}

// detectApproval applies the phrase patterns and affordance matching to
// collected UI text.
func detectApproval(text string, buttons []string) ports.ApprovalState {
	state := ports.ApprovalState{}

	for _, pattern := range approvalPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		state.Pending = true
		state.Count = 1
		if len(m) > 1 && m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				state.Count = n
			}
		}
		break
	}

	if !state.Pending {
		return state
	}

	state.ApproveLabel = firstAffordance(buttons, approveKeywords)
	state.RejectLabel = firstAffordance(buttons, rejectKeywords)
	return state
}

// firstAffordance returns the first short label containing one of the
// keywords as a whole token.
func firstAffordance(labels, keywords []string) string {
	for _, label := range labels {
		set := tokenSet(label)
		for _, kw := range keywords {
			if set[kw] {
				return label
			}
		}
	}
	return ""
}

// RespondApproval clicks the approve or reject affordance. Success
// requires both a found and a clicked candidate; "found but unclickable"
// is reported as Found=true, Clicked=false.
func (a *Automator) RespondApproval(ctx context.Context, approve bool) (ports.RespondResult, error) {
	target := a.resolveTarget(ctx)
	if target == nil {
		return ports.RespondResult{}, domain.ErrNoEditorTarget
	}

	keywords := rejectKeywords
	if approve {
		keywords = approveKeywords
	}

	raw, err := a.evalMutate(ctx, target, scriptClickAffordance(keywords), nil)
	if err != nil || raw == nil {
		return ports.RespondResult{}, nil
	}

	var res ports.RespondResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ports.RespondResult{}, nil
	}
	return res, nil
}
