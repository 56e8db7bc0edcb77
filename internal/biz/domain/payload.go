package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PayloadVersion is the current schema version of PendingAction
const PayloadVersion = 2

// ActionKind discriminates the PendingAction union
type ActionKind string

const (
	ActionAdd          ActionKind = "add"
	ActionAddAll       ActionKind = "add_all"
	ActionModify       ActionKind = "modify"
	ActionDelete       ActionKind = "delete"
	ActionSelectModify ActionKind = "select_modify"
	ActionSelectDelete ActionKind = "select_delete"
	ActionDeleteScope  ActionKind = "delete_scope"
	ActionCancel       ActionKind = "cancel"
)

// DeleteScope selects which occurrences of a series a delete touches
type DeleteScope string

const (
	ScopeThis      DeleteScope = "this"
	ScopeFollowing DeleteScope = "following"
	ScopeAll       DeleteScope = "all"
)

// Modification is a requested change to an existing event; nil fields are unchanged
type Modification struct {
	Title     *string `json:"title,omitempty"`
	Date      *string `json:"date,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Location  *string `json:"location,omitempty"`
	IsAllDay  *bool   `json:"isAllDay,omitempty"`
}

// IsEmpty reports whether nothing is requested
func (m *Modification) IsEmpty() bool {
	return m == nil || (m.Title == nil && m.Date == nil && m.EndDate == nil &&
		m.StartTime == nil && m.EndTime == nil && m.Location == nil && m.IsAllDay == nil)
}

// PendingAction is the pending confirmation carried inside an outbound
// message and returned verbatim on click. The server keeps no session state.
type PendingAction struct {
	Version      int                 `json:"v"`
	Kind         ActionKind          `json:"k"`
	Candidate    *ScheduleCandidate  `json:"c,omitempty"`
	Candidates   []ScheduleCandidate `json:"cs,omitempty"`
	EventID      string              `json:"e,omitempty"`
	Modification *Modification       `json:"m,omitempty"`
	Scope        DeleteScope         `json:"s,omitempty"`
}

func NewAddAction(c ScheduleCandidate) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionAdd, Candidate: &c}
}

func NewAddAllAction(cs []ScheduleCandidate) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionAddAll, Candidates: cs}
}

func NewModifyAction(eventID string, m Modification) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionModify, EventID: eventID, Modification: &m}
}

func NewDeleteAction(eventID string) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionDelete, EventID: eventID}
}

func NewSelectModifyAction(eventID string, m Modification) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionSelectModify, EventID: eventID, Modification: &m}
}

func NewSelectDeleteAction(eventID string) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionSelectDelete, EventID: eventID}
}

func NewDeleteScopeAction(eventID string, scope DeleteScope) PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionDeleteScope, EventID: eventID, Scope: scope}
}

func NewCancelAction() PendingAction {
	return PendingAction{Version: PayloadVersion, Kind: ActionCancel}
}

// Validate checks that the action carries exactly what its kind needs
func (a *PendingAction) Validate() error {
	switch a.Kind {
	case ActionAdd:
		if a.Candidate == nil {
			return fmt.Errorf("%s: missing candidate", a.Kind)
		}
	case ActionAddAll:
		if len(a.Candidates) == 0 {
			return fmt.Errorf("%s: missing candidates", a.Kind)
		}
	case ActionModify, ActionSelectModify:
		if a.EventID == "" || a.Modification.IsEmpty() {
			return fmt.Errorf("%s: missing event id or modification", a.Kind)
		}
	case ActionDelete, ActionSelectDelete:
		if a.EventID == "" {
			return fmt.Errorf("%s: missing event id", a.Kind)
		}
	case ActionDeleteScope:
		if a.EventID == "" {
			return fmt.Errorf("%s: missing event id", a.Kind)
		}
		switch a.Scope {
		case ScopeThis, ScopeFollowing, ScopeAll:
		default:
			return fmt.Errorf("%s: unknown scope %q", a.Kind, a.Scope)
		}
	case ActionCancel:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// EncodePayload serializes an action for a button value
func EncodePayload(a PendingAction) (string, error) {
	if a.Version == 0 {
		a.Version = PayloadVersion
	}
	if err := a.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// legacyActions maps version-1 action id prefixes to kinds. v1 buttons carried
// the bare candidate, candidate list or event id as their value.
var legacyActions = map[string]ActionKind{
	"confirm_add_all": ActionAddAll,
	"add_all":         ActionAddAll,
	"confirm_add":     ActionAdd,
	"add_single":      ActionAdd,
	"confirm_delete":  ActionDelete,
	"confirm_modify":  ActionModify,
	"select_delete":   ActionSelectDelete,
	"select_modify":   ActionSelectModify,
	"cancel":          ActionCancel,
}

var legacyPrefixes = func() []string {
	keys := make([]string, 0, len(legacyActions))
	for k := range legacyActions {
		keys = append(keys, k)
	}
	// longest first so confirm_add_all wins over confirm_add
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

// DecodePayload resolves an inbound click into the action union. Payloads
// from an unknown future version, or legacy payloads that no longer parse,
// return ErrStalePayload so the caller can reply gracefully.
func DecodePayload(actionID, value string) (PendingAction, error) {
	var probe struct {
		Version *int `json:"v"`
	}
	if err := json.Unmarshal([]byte(value), &probe); err == nil && probe.Version != nil {
		if *probe.Version != PayloadVersion {
			return PendingAction{}, fmt.Errorf("%w: version %d", ErrStalePayload, *probe.Version)
		}
		var a PendingAction
		if err := json.Unmarshal([]byte(value), &a); err != nil {
			return PendingAction{}, fmt.Errorf("%w: %v", ErrStalePayload, err)
		}
		if err := a.Validate(); err != nil {
			return PendingAction{}, fmt.Errorf("%w: %v", ErrStalePayload, err)
		}
		return a, nil
	}
	return decodeLegacy(actionID, value)
}

func decodeLegacy(actionID, value string) (PendingAction, error) {
	kind, ok := legacyKind(actionID)
	if !ok {
		return PendingAction{}, fmt.Errorf("%w: unknown action %q", ErrStalePayload, actionID)
	}

	a := PendingAction{Version: PayloadVersion, Kind: kind}
	var err error
	switch kind {
	case ActionAdd:
		var c ScheduleCandidate
		err = json.Unmarshal([]byte(value), &c)
		a.Candidate = &c
	case ActionAddAll:
		err = json.Unmarshal([]byte(value), &a.Candidates)
	case ActionDelete, ActionSelectDelete:
		a.EventID = strings.Trim(value, `"`)
	case ActionModify, ActionSelectModify:
		var v struct {
			EventID      string       `json:"eventId"`
			Modification Modification `json:"modification"`
		}
		err = json.Unmarshal([]byte(value), &v)
		a.EventID = v.EventID
		a.Modification = &v.Modification
	}
	if err != nil {
		return PendingAction{}, fmt.Errorf("%w: %v", ErrStalePayload, err)
	}
	if err := a.Validate(); err != nil {
		return PendingAction{}, fmt.Errorf("%w: %v", ErrStalePayload, err)
	}
	return a, nil
}

func legacyKind(actionID string) (ActionKind, bool) {
	for _, prefix := range legacyPrefixes {
		if actionID == prefix || strings.HasPrefix(actionID, prefix+"_") {
			return legacyActions[prefix], true
		}
	}
	return "", false
}
