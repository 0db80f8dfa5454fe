package ide

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"ibridge/internal/cdp"
	"ibridge/internal/domain"
	"ibridge/internal/domain/ports"
)

// unknownLabel is reported when a category could not be determined.
const unknownLabel = "Unknown"

// modelVendors are the family keywords that identify a model label and
// double as the trigger keywords for the model picker.
var modelVendors = []string{"claude", "gpt", "gemini", "grok", "deepseek", "kimi"}

// modelLabelRe matches a shallow text node that is a model label:
// a vendor name optionally followed by a variant suffix.
var modelLabelRe = regexp.MustCompile(`(?i)^(claude|gpt|gemini|grok|deepseek|kimi|o[134])([ \-.][\w .\-()]{0,40})?$`)

// modeNames is the fixed mode-name enum shown by the editor's mode picker.
var modeNames = []string{"agent", "ask", "manual", "plan", "edit"}

func isModeName(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, m := range modeNames {
		if lower == m {
			return true
		}
	}
	return false
}

// State reads the active model and mode labels by scanning shallow text
// nodes. The first match per category wins; categories with no match
// report "Unknown".
func (a *Automator) State(ctx context.Context) (ports.EditorState, error) {
	state := ports.EditorState{Model: unknownLabel, Mode: unknownLabel}

	target := a.resolveTarget(ctx)
	if target == nil {
		return state, nil
	}

	raw, err := a.evalRead(ctx, target, scriptShallowTexts, nil)
	if err != nil || raw == nil {
		return state, nil
	}

	var res struct {
		Texts []string `json:"texts"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return state, nil
	}

	for _, t := range res.Texts {
		t = strings.TrimSpace(t)
		if state.Model == unknownLabel && modelLabelRe.MatchString(t) {
			state.Model = t
		}
		if state.Mode == unknownLabel && isModeName(t) {
			state.Mode = t
		}
		if state.Model != unknownLabel && state.Mode != unknownLabel {
			break
		}
	}

	return state, nil
}

// SetModel opens the model picker and selects the candidate whose label
// best matches name.
func (a *Automator) SetModel(ctx context.Context, name string) (ports.SelectResult, error) {
	return a.selectFromPicker(ctx, name, modelVendors)
}

// SetMode opens the mode picker and selects the candidate whose label
// best matches name.
func (a *Automator) SetMode(ctx context.Context, name string) (ports.SelectResult, error) {
	return a.selectFromPicker(ctx, name, modeNames)
}

// selectFromPicker drives the shared trigger-click / settle / enumerate /
// match / click sequence for both pickers.
func (a *Automator) selectFromPicker(ctx context.Context, name string, triggerKeywords []string) (ports.SelectResult, error) {
	result := ports.SelectResult{Requested: strings.TrimSpace(name)}
	if result.Requested == "" {
		return result, domain.ErrEmptyInput
	}

	target := a.resolveTarget(ctx)
	if target == nil {
		return result, domain.ErrNoEditorTarget
	}

	// Click the trigger, snapshotting already-visible options so newly
	// rendered ones can be isolated afterwards.
	raw, err := a.evalMutate(ctx, target, scriptOpenPicker(triggerKeywords), nil)
	if err != nil || raw == nil {
		return result, domain.ErrNoCandidateMatch
	}
	var opened struct {
		Found    bool     `json:"found"`
		Clicked  bool     `json:"clicked"`
		Existing []string `json:"existing"`
	}
	if err := json.Unmarshal(raw, &opened); err != nil || !opened.Clicked {
		return result, domain.ErrNoCandidateMatch
	}

	a.settle(ctx)

	raw, err = a.evalRead(ctx, target, scriptCollectOptions, nil)
	if err != nil || raw == nil {
		a.dismissPicker(ctx, target)
		return result, domain.ErrNoCandidateMatch
	}
	var enumerated struct {
		Options []string `json:"options"`
	}
	if err := json.Unmarshal(raw, &enumerated); err != nil {
		a.dismissPicker(ctx, target)
		return result, domain.ErrNoCandidateMatch
	}

	candidates := newlyVisible(enumerated.Options, opened.Existing)

	idx, tier, ok := matchCandidate(result.Requested, candidates)
	if !ok {
		a.dismissPicker(ctx, target)
		result.Rejected = candidates
		return result, domain.ErrNoCandidateMatch
	}

	selected := candidates[idx]
	log.Debug().Str("requested", result.Requested).Str("selected", selected).Int("tier", tier).Msg("picker candidate matched")

	raw, err = a.evalMutate(ctx, target, scriptClickOptionByText(selected), nil)
	if err != nil || raw == nil {
		result.Rejected = candidates
		return result, domain.ErrNotClickable
	}
	var clicked struct {
		Found   bool `json:"found"`
		Clicked bool `json:"clicked"`
	}
	if err := json.Unmarshal(raw, &clicked); err != nil || !clicked.Found || !clicked.Clicked {
		result.Rejected = candidates
		return result, domain.ErrNotClickable
	}

	result.Success = true
	result.Selected = selected
	return result, nil
}

// dismissPicker sends Escape to close an open dropdown after a failed
// selection, so the editor is not left in a half-open state.
func (a *Automator) dismissPicker(ctx context.Context, target *cdp.Target) {
	if _, err := a.evalMutate(ctx, target, scriptDispatchEscape, nil); err != nil {
		log.Debug().Err(err).Msg("failed to dismiss picker")
	}
}

// newlyVisible returns options not present in the pre-click snapshot.
// When the dropdown replaces rather than extends the visible set, the
// full enumeration is used as-is.
func newlyVisible(after, before []string) []string {
	prior := make(map[string]bool, len(before))
	for _, o := range before {
		prior[o] = true
	}
	fresh := make([]string, 0, len(after))
	for _, o := range after {
		if !prior[o] {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) == 0 {
		return after
	}
	return fresh
}
