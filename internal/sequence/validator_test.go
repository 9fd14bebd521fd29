package sequence

import (
	"errors"
	"testing"
)

func TestRepair_ValidList(t *testing.T) {
	raw := []byte(`[
		{"clipIndex": 0, "duration": 2.5, "description": "opening wide shot"},
		{"clipIndex": 2, "duration": 1.0, "description": "quick cut on the drop"}
	]`)

	decisions, err := Repair(raw, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	if decisions[0].ClipIndex != 0 || decisions[1].ClipIndex != 2 {
		t.Errorf("indexes = %d,%d, want 0,2", decisions[0].ClipIndex, decisions[1].ClipIndex)
	}
}

func TestRepair_NegativeIndexWrapsViaAbsMod(t *testing.T) {
	raw := []byte(`[{"clipIndex": -5, "duration": 2.0, "description": "x"}]`)

	decisions, err := Repair(raw, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decisions[0].ClipIndex != 2 {
		t.Errorf("ClipIndex = %d, want 2 (abs(-5) mod 3)", decisions[0].ClipIndex)
	}
}

func TestRepair_OutOfRangeIndexWraps(t *testing.T) {
	raw := []byte(`[{"clipIndex": 47, "duration": 1.5, "description": "x"}]`)

	decisions, err := Repair(raw, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decisions[0].ClipIndex != 3 {
		t.Errorf("ClipIndex = %d, want 3 (47 mod 4)", decisions[0].ClipIndex)
	}
}

func TestRepair_BareObjectWrappedAsList(t *testing.T) {
	raw := []byte(`{"clipIndex": 1, "duration": 3.0, "description": "single cut"}`)

	decisions, err := Repair(raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1", len(decisions))
	}
	if decisions[0].ClipIndex != 1 {
		t.Errorf("ClipIndex = %d, want 1", decisions[0].ClipIndex)
	}
}

func TestRepair_DiscardsStructurallyInvalidEntries(t *testing.T) {
	raw := []byte(`[
		{"clipIndex": "nope", "duration": 2.0, "description": "bad index"},
		{"clipIndex": 1, "duration": -3.0, "description": "bad duration"},
		{"clipIndex": 1, "duration": 0, "description": "zero duration"},
		{"clipIndex": 1, "duration": 2.0, "description": ""},
		{"clipIndex": 1, "duration": 2.0},
		{"clipIndex": 0, "duration": 2.0, "description": "the only good one"}
	]`)

	decisions, err := Repair(raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1 survivor", len(decisions))
	}
	if decisions[0].Description != "the only good one" {
		t.Errorf("survivor = %q", decisions[0].Description)
	}
}

func TestRepair_DiscardsNonObjectElements(t *testing.T) {
	raw := []byte(`[
		"junk",
		42,
		null,
		{"clipIndex": 1, "duration": 2.0, "description": "survives the chatter"}
	]`)

	decisions, err := Repair(raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1 survivor", len(decisions))
	}
	if decisions[0].Description != "survives the chatter" {
		t.Errorf("survivor = %q", decisions[0].Description)
	}
}

func TestRepair_AllEntriesInvalidFails(t *testing.T) {
	raw := []byte(`[
		{"clipIndex": "a", "duration": 1.0, "description": "x"},
		{"clipIndex": 1, "duration": "long", "description": "x"}
	]`)

	if _, err := Repair(raw, 3); !errors.Is(err, ErrNoUsableDecisions) {
		t.Fatalf("err = %v, want ErrNoUsableDecisions", err)
	}
}

func TestRepair_NonJSONFails(t *testing.T) {
	if _, err := Repair([]byte("sorry, I cannot produce a cut list"), 3); !errors.Is(err, ErrNoUsableDecisions) {
		t.Fatalf("err = %v, want ErrNoUsableDecisions", err)
	}
}

func TestRepair_MarkdownFencedJSONAccepted(t *testing.T) {
	raw := []byte("```json\n[{\"clipIndex\": 0, \"duration\": 2.0, \"description\": \"cut\"}]\n```")

	decisions, err := Repair(raw, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1", len(decisions))
	}
}

func TestRepair_PreservesOrderAndNeverTrims(t *testing.T) {
	raw := []byte(`[
		{"clipIndex": 0, "duration": 100.0, "description": "a"},
		{"clipIndex": 1, "duration": 100.0, "description": "b"},
		{"clipIndex": 2, "duration": 100.0, "description": "c"}
	]`)

	decisions, err := Repair(raw, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 300s of decisions is fine regardless of any track length: duration
	// reconciliation is the oracle's objective, not a validator invariant.
	if len(decisions) != 3 {
		t.Fatalf("got %d decisions, want all 3", len(decisions))
	}
	for i, want := range []string{"a", "b", "c"} {
		if decisions[i].Description != want {
			t.Errorf("decision %d = %q, want %q", i, decisions[i].Description, want)
		}
	}
	if decisions.TotalDuration() != 300.0 {
		t.Errorf("TotalDuration = %v, want 300", decisions.TotalDuration())
	}
}

func TestRepair_ZeroClipCountRejected(t *testing.T) {
	if _, err := Repair([]byte(`[]`), 0); err == nil {
		t.Fatal("expected error for clip count 0")
	}
}
