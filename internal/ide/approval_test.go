package ide

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ibridge/internal/cdp"
	"ibridge/internal/domain"
)

func TestDetectApproval_CountedPhrase(t *testing.T) {
	state := detectApproval("You have 3 pending approvals in this session.",
		[]string{"Settings", "Approve all", "Reject"})

	if !state.Pending {
		t.Fatal("expected pending")
	}
	if state.Count != 3 {
		t.Errorf("Count = %d, want 3", state.Count)
	}
	if state.ApproveLabel != "Approve all" {
		t.Errorf("ApproveLabel = %q, want %q", state.ApproveLabel, "Approve all")
	}
	if state.RejectLabel != "Reject" {
		t.Errorf("RejectLabel = %q, want %q", state.RejectLabel, "Reject")
	}
}

func TestDetectApproval_WaitingPhraseDefaultsToOne(t *testing.T) {
	state := detectApproval("The command is waiting for your approval.", nil)
	if !state.Pending {
		t.Fatal("expected pending")
	}
	if state.Count != 1 {
		t.Errorf("Count = %d, want default 1", state.Count)
	}
}

func TestDetectApproval_NeedsPhrase(t *testing.T) {
	state := detectApproval("This operation needs approval before it runs.", []string{"Allow", "Deny"})
	if !state.Pending {
		t.Fatal("expected pending")
	}
	if state.ApproveLabel != "Allow" || state.RejectLabel != "Deny" {
		t.Errorf("labels = %q/%q, want Allow/Deny", state.ApproveLabel, state.RejectLabel)
	}
}

func TestDetectApproval_NoPhraseNoPending(t *testing.T) {
	state := detectApproval("Everything approved earlier is now running.", []string{"Approve"})
	if state.Pending {
		t.Error("expected no pending approval without a trigger phrase")
	}
	if state.ApproveLabel != "" {
		t.Error("affordances should not be reported without a pending approval")
	}
}

func TestDetectApproval_KeywordIsWholeToken(t *testing.T) {
	// "Disallow" must not match the "allow" keyword.
	state := detectApproval("waiting for approval", []string{"Disallow", "Run command"})
	if state.ApproveLabel != "Run command" {
		t.Errorf("ApproveLabel = %q, want %q", state.ApproveLabel, "Run command")
	}
}

func TestApprovals_NoTargetIsEmptyState(t *testing.T) {
	a := newTestAutomator(nil, nil)
	a.resolveFn = func(ctx context.Context) (*cdp.Target, error) {
		return nil, domain.ErrNoEditorTarget
	}

	state, err := a.Approvals(context.Background())
	if err != nil {
		t.Fatalf("Approvals: %v", err)
	}
	if state.Pending {
		t.Error("expected no pending state without a target")
	}
}

func TestRespondApproval_FoundAndClicked(t *testing.T) {
	var gotScript string
	evalMutate := func(ctx context.Context, target *cdp.Target, script string, pred cdp.Predicate) (json.RawMessage, error) {
		gotScript = script
		return rawJSON(t, map[string]interface{}{"found": true, "clicked": true, "label": "Approve"}), nil
	}
	a := newTestAutomator(nil, evalMutate)

	res, err := a.RespondApproval(context.Background(), true)
	if err != nil {
		t.Fatalf("RespondApproval: %v", err)
	}
	if !res.Success() {
		t.Errorf("result = %+v, want found and clicked", res)
	}
	if gotScript == "" {
		t.Fatal("no script evaluated")
	}
}

func TestRespondApproval_FoundButUnclickable(t *testing.T) {
	evalMutate := func(ctx context.Context, target *cdp.Target, script string, pred cdp.Predicate) (json.RawMessage, error) {
		return rawJSON(t, map[string]interface{}{"found": true, "clicked": false}), nil
	}
	a := newTestAutomator(nil, evalMutate)

	res, err := a.RespondApproval(context.Background(), false)
	if err != nil {
		t.Fatalf("RespondApproval: %v", err)
	}
	if !res.Found || res.Clicked {
		t.Errorf("result = %+v, want found but not clicked", res)
	}
	if res.Success() {
		t.Error("found-but-unclickable must not count as success")
	}
}

func TestRespondApproval_NoTarget(t *testing.T) {
	a := newTestAutomator(nil, nil)
	a.resolveFn = func(ctx context.Context) (*cdp.Target, error) {
		return nil, domain.ErrNoEditorTarget
	}

	if _, err := a.RespondApproval(context.Background(), true); !errors.Is(err, domain.ErrNoEditorTarget) {
		t.Fatalf("err = %v, want ErrNoEditorTarget", err)
	}
}
