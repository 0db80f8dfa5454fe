package ide

import "testing"

func TestMatchCandidate_ExactNormalized(t *testing.T) {
	candidates := []string{"GPT-5", "Claude Sonnet 4.5", "Gemini 3 Pro"}

	idx, tier, ok := matchCandidate("  claude   sonnet 4.5 ", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
	if tier != matchTierExact {
		t.Errorf("tier = %d, want %d", tier, matchTierExact)
	}
}

func TestMatchCandidate_AllTokensBeatsVariant(t *testing.T) {
	candidates := []string{"Claude Sonnet 4.5 (Thinking)", "Gemini 3 Pro (High)"}

	idx, tier, ok := matchCandidate("Claude Sonnet 4.5", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0 (the Claude variant)", idx)
	}
	if tier != matchTierAll {
		t.Errorf("tier = %d, want %d", tier, matchTierAll)
	}
}

func TestMatchCandidate_RelaxedFamilyMatch(t *testing.T) {
	candidates := []string{"Gemini 3 Flash", "Claude Opus 4.1"}

	// "claude" family present, and "opus"+"4" cover more than half of the
	// remaining tokens {opus, 4, 2}.
	idx, tier, ok := matchCandidate("Claude Opus 4.2", candidates)
	if !ok {
		t.Fatal("expected a relaxed match")
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
	if tier != matchTierRelaxed {
		t.Errorf("tier = %d, want %d", tier, matchTierRelaxed)
	}
}

func TestMatchCandidate_RelaxedTieGoesToDiscoveryOrder(t *testing.T) {
	candidates := []string{"Claude Haiku 3.5", "Claude Haiku 4"}

	idx, _, ok := matchCandidate("Claude Haiku", candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0 (first in discovery order)", idx)
	}
}

func TestMatchCandidate_NoFamilyNoMatch(t *testing.T) {
	candidates := []string{"GPT-5", "Gemini 3 Pro"}

	if _, _, ok := matchCandidate("Claude Sonnet 4.5", candidates); ok {
		t.Error("expected no match when the family token is absent everywhere")
	}
}

func TestMatchCandidate_EmptyRequest(t *testing.T) {
	if _, _, ok := matchCandidate("   ", []string{"Agent"}); ok {
		t.Error("expected no match for a blank request")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Claude Sonnet 4.5 (Thinking)")
	want := []string{"claude", "sonnet", "4", "5", "thinking"}
	if len(got) != len(want) {
		t.Fatalf("tokenize returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
