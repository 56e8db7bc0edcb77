package domain

import (
	"errors"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestEncodeDecodePayload_AllKinds(t *testing.T) {
	cand := ScheduleCandidate{Title: "定例会議", Date: "2025-08-05", StartTime: "10:00", EndTime: "11:00"}
	mod := Modification{StartTime: strPtr("15:00")}

	actions := []PendingAction{
		NewAddAction(cand),
		NewAddAllAction([]ScheduleCandidate{cand, cand}),
		NewModifyAction("evt-1", mod),
		NewDeleteAction("evt-1"),
		NewSelectModifyAction("evt-2", mod),
		NewSelectDeleteAction("evt-2"),
		NewDeleteScopeAction("evt-3", ScopeFollowing),
		NewCancelAction(),
	}

	for _, a := range actions {
		value, err := EncodePayload(a)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", a.Kind, err)
		}
		got, err := DecodePayload("any_action_id", value)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", a.Kind, err)
		}
		if got.Kind != a.Kind {
			t.Errorf("Expected kind %s, got %s", a.Kind, got.Kind)
		}
		if got.EventID != a.EventID {
			t.Errorf("%s: expected event id %q, got %q", a.Kind, a.EventID, got.EventID)
		}
		if got.Version != PayloadVersion {
			t.Errorf("%s: expected version %d, got %d", a.Kind, PayloadVersion, got.Version)
		}
	}
}

func TestEncodePayload_RejectsInvalid(t *testing.T) {
	cases := []PendingAction{
		{Kind: ActionAdd},
		{Kind: ActionAddAll},
		{Kind: ActionModify, EventID: "evt-1"},
		{Kind: ActionDelete},
		{Kind: ActionDeleteScope, EventID: "evt-1", Scope: "some"},
		{Kind: "unknown"},
	}
	for _, a := range cases {
		if _, err := EncodePayload(a); err == nil {
			t.Errorf("Expected error for %+v", a)
		}
	}
}

func TestDecodePayload_UnknownVersionIsStale(t *testing.T) {
	_, err := DecodePayload("confirm_add", `{"v":99,"k":"add"}`)
	if !errors.Is(err, ErrStalePayload) {
		t.Errorf("Expected ErrStalePayload, got %v", err)
	}
}

func TestDecodePayload_Legacy(t *testing.T) {
	a, err := DecodePayload("confirm_add_0", `{"title":"歯医者","date":"2025-08-02","isAllDay":true}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Kind != ActionAdd || a.Candidate == nil || a.Candidate.Title != "歯医者" {
		t.Errorf("Unexpected legacy add: %+v", a)
	}

	a, err = DecodePayload("confirm_add_all", `[{"title":"A","date":"2025-08-02","isAllDay":true}]`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Kind != ActionAddAll || len(a.Candidates) != 1 {
		t.Errorf("Expected add_all with 1 candidate, got %+v", a)
	}

	a, err = DecodePayload("confirm_delete", `"evt-9"`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Kind != ActionDelete || a.EventID != "evt-9" {
		t.Errorf("Unexpected legacy delete: %+v", a)
	}

	a, err = DecodePayload("confirm_modify", `{"eventId":"evt-4","modification":{"location":"会議室B"}}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Kind != ActionModify || a.Modification.Location == nil || *a.Modification.Location != "会議室B" {
		t.Errorf("Unexpected legacy modify: %+v", a)
	}
}

func TestDecodePayload_LegacyBroken(t *testing.T) {
	if _, err := DecodePayload("mystery_button", "x"); !errors.Is(err, ErrStalePayload) {
		t.Errorf("Expected ErrStalePayload for unknown action, got %v", err)
	}
	if _, err := DecodePayload("confirm_add", "{broken"); !errors.Is(err, ErrStalePayload) {
		t.Errorf("Expected ErrStalePayload for broken JSON, got %v", err)
	}
	if _, err := DecodePayload("confirm_modify", `{"eventId":"evt-1","modification":{}}`); !errors.Is(err, ErrStalePayload) {
		t.Errorf("Expected ErrStalePayload for empty modification, got %v", err)
	}
}

func TestEncodePayload_IsCompact(t *testing.T) {
	value, err := EncodePayload(NewDeleteAction("evt-1"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(value, "candidate") || strings.Contains(value, `"cs"`) {
		t.Errorf("Expected empty fields omitted, got %s", value)
	}
}

func TestModificationIsEmpty(t *testing.T) {
	var nilMod *Modification
	if !nilMod.IsEmpty() {
		t.Error("Expected nil modification to be empty")
	}
	if !(&Modification{}).IsEmpty() {
		t.Error("Expected zero modification to be empty")
	}
	if (&Modification{Location: strPtr("")}).IsEmpty() {
		t.Error("Expected explicit empty location to count as a change")
	}
}
