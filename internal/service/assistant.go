package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

// Usecases bundles the business logic the assistant orchestrates
type Usecases struct {
	Dedup      *usecase.DedupUsecase
	Fusion     *usecase.FusionUsecase
	Extraction *usecase.ExtractionUsecase
	Search     *usecase.SearchUsecase
	Confirm    *usecase.ConfirmUsecase
	Lifecycle  *usecase.LifecycleUsecase
}

// actionHandler applies one kind of confirmed action and returns the
// message that replaces the proposal
type actionHandler func(ctx context.Context, a domain.PendingAction) *domain.Proposal

// AssistantService routes chat messages and button clicks through the
// extraction and confirmation pipeline
type AssistantService struct {
	uc         Usecases
	messengers map[string]repo.MessengerRepo
	handlers   map[domain.ActionKind]actionHandler
	now        func() time.Time
}

// NewAssistantService creates a new assistant service
func NewAssistantService(uc Usecases, loc *time.Location) *AssistantService {
	if loc == nil {
		loc = time.Local
	}
	s := &AssistantService{
		uc:         uc,
		messengers: make(map[string]repo.MessengerRepo),
		now:        func() time.Time { return time.Now().In(loc) },
	}
	s.handlers = map[domain.ActionKind]actionHandler{
		domain.ActionAdd:          s.applyAdd,
		domain.ActionAddAll:       s.applyAddAll,
		domain.ActionModify:       s.applyModify,
		domain.ActionDelete:       s.applyDelete,
		domain.ActionSelectModify: s.applySelectModify,
		domain.ActionSelectDelete: s.applySelectDelete,
		domain.ActionDeleteScope:  s.applyDeleteScope,
		domain.ActionCancel:       s.applyCancel,
	}
	return s
}

// RegisterMessenger attaches the messenger of a chat platform
func (s *AssistantService) RegisterMessenger(source string, m repo.MessengerRepo) {
	s.messengers[source] = m
}

func (s *AssistantService) messenger(source string) (repo.MessengerRepo, error) {
	m, ok := s.messengers[source]
	if !ok {
		return nil, fmt.Errorf("no messenger registered for %q", source)
	}
	return m, nil
}

// HandleMessage processes one inbound message end to end
func (s *AssistantService) HandleMessage(ctx context.Context, env *domain.Envelope) error {
	m, err := s.messenger(env.Source)
	if err != nil {
		return err
	}
	if !s.uc.Dedup.CheckEvent(ctx, env) {
		return nil
	}

	res := s.uc.Fusion.Collect(env)
	if !res.HasContent {
		return nil
	}

	// A document or link is always read for schedules; words in a URL or in
	// the note accompanying it do not pick the intent
	intent := domain.IntentAdd
	if !res.HasExternalContent() {
		intent = domain.ClassifyIntent(usecase.StripURLs(env.Text))
	}
	if !domain.ShouldAutoFire(intent, env.Context()) {
		fmt.Printf("[Assistant] Not firing %s in %s (direct=%v mention=%v)\n", intent, env.Channel, env.IsDirect, env.MentionsBot)
		return nil
	}
	fmt.Printf("[Assistant] %s: intent=%s sources=%v\n", env.Source, intent, res.SourceTags)

	now := s.now()
	var reply *domain.Proposal
	switch intent {
	case domain.IntentCheck:
		reply = s.check(ctx, env.Text, now)
	case domain.IntentAdd:
		reply = s.add(ctx, res, m, now)
	case domain.IntentModify, domain.IntentDelete:
		reply = s.target(ctx, env.Text, intent, now)
	}
	if reply == nil {
		return nil
	}

	if _, err := m.Post(ctx, env.Channel, reply); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	return nil
}

func (s *AssistantService) check(ctx context.Context, text string, now time.Time) *domain.Proposal {
	req := s.uc.Extraction.ParseRequest(ctx, text, domain.IntentCheck, now)
	events, rng, err := s.uc.Search.Search(ctx, req.Keywords, req.DateToken, now)
	if err != nil {
		fmt.Printf("[Assistant] Check search failed: %v\n", err)
		return domain.TextProposal("予定の検索に失敗しました: " + err.Error())
	}
	return s.uc.Confirm.RenderEvents(events, rng)
}

func (s *AssistantService) add(ctx context.Context, res *usecase.FusionResult, dl repo.FileDownloader, now time.Time) *domain.Proposal {
	corpus, err := s.uc.Fusion.Build(ctx, res, dl)
	if err != nil {
		fmt.Printf("[Assistant] Fusion failed: %v\n", err)
		var ce *domain.ConversionError
		if errors.As(err, &ce) {
			return domain.TextProposal("内容を読み取れませんでした: " + ce.Error())
		}
		return domain.TextProposal(usecase.MsgNoSchedule)
	}

	raw, err := s.uc.Extraction.Extract(ctx, corpus, now)
	if err != nil {
		fmt.Printf("[Assistant] Extraction failed: %v\n", err)
		return domain.TextProposal(usecase.MsgExtractionFailed)
	}
	return s.uc.Confirm.ProposeCandidates(usecase.NormalizeCandidates(raw, now))
}

func (s *AssistantService) target(ctx context.Context, text string, intent domain.Intent, now time.Time) *domain.Proposal {
	op := string(intent)
	req := s.uc.Extraction.ParseRequest(ctx, text, intent, now)
	if intent == domain.IntentModify && req.Modification.IsEmpty() {
		return domain.TextProposal(usecase.MsgNeedChanges)
	}

	events, _, err := s.uc.Search.Search(ctx, req.Keywords, req.DateToken, now)
	if err != nil {
		fmt.Printf("[Assistant] Target search failed: %v\n", err)
		s.uc.Lifecycle.Transition(op, domain.StateRequested, domain.StateFailed)
		return domain.TextProposal("予定の検索に失敗しました: " + err.Error())
	}
	if len(events) == 0 {
		s.uc.Lifecycle.Transition(op, domain.StateRequested, domain.StateFailed)
		return domain.TextProposal(usecase.MsgNoMatchingEvent)
	}
	s.uc.Lifecycle.Transition(op, domain.StateRequested, domain.StatePreviewed)

	if len(events) > 1 {
		return s.uc.Confirm.ProposeSelection(events, intent, req.Modification)
	}
	ev := &events[0]
	if intent == domain.IntentModify {
		return s.uc.Confirm.ProposeModify(ev, req.Modification)
	}
	return s.uc.Confirm.ProposeDelete(ev, s.uc.Lifecycle.IsRecurring(ctx, ev))
}

// HandleAction applies a button click and replaces the proposal with the outcome
func (s *AssistantService) HandleAction(ctx context.Context, act *domain.ActionEnvelope) error {
	m, err := s.messenger(act.Source)
	if err != nil {
		return err
	}
	if !s.uc.Dedup.CheckAction(ctx, act) {
		return nil
	}

	var reply *domain.Proposal
	a, err := domain.DecodePayload(act.ActionID, act.Value)
	if err != nil {
		fmt.Printf("[Assistant] Stale payload on %s: %v\n", act.ActionID, err)
		reply = domain.TextProposal(usecase.MsgStalePayload)
	} else {
		fmt.Printf("[Assistant] %s: action %s by %s\n", act.Source, a.Kind, act.UserID)
		reply = s.handlers[a.Kind](ctx, a)
	}

	if err := m.Update(ctx, act.Channel, act.MessageTS, reply); err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	return nil
}

func (s *AssistantService) applyAdd(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	s.uc.Lifecycle.Transition("create", domain.StatePreviewed, domain.StateConfirmed)
	ev, err := s.uc.Lifecycle.Create(ctx, *a.Candidate)
	return s.uc.Confirm.RenderCreated([]usecase.CreateResult{{Candidate: *a.Candidate, Event: ev, Err: err}})
}

func (s *AssistantService) applyAddAll(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	s.uc.Lifecycle.Transition("create_all", domain.StatePreviewed, domain.StateConfirmed)
	return s.uc.Confirm.RenderCreated(s.uc.Lifecycle.CreateAll(ctx, a.Candidates))
}

func (s *AssistantService) applyModify(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	s.uc.Lifecycle.Transition("modify", domain.StatePreviewed, domain.StateConfirmed)
	ev, err := s.uc.Lifecycle.Modify(ctx, a.EventID, a.Modification)
	return s.uc.Confirm.RenderModified(ev, err)
}

func (s *AssistantService) applyDelete(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	s.uc.Lifecycle.Transition("delete", domain.StatePreviewed, domain.StateConfirmed)
	ev, err := s.uc.Lifecycle.Delete(ctx, a.EventID)
	return s.uc.Confirm.RenderDeleted(titleOf(ev), 1, err)
}

func (s *AssistantService) applyDeleteScope(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	s.uc.Lifecycle.Transition("delete_"+string(a.Scope), domain.StatePreviewed, domain.StateConfirmed)
	ev, n, err := s.uc.Lifecycle.DeleteScoped(ctx, a.EventID, a.Scope)
	return s.uc.Confirm.RenderDeleted(titleOf(ev), n, err)
}

// applySelectModify turns a selection into a modify preview
func (s *AssistantService) applySelectModify(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	ev, err := s.uc.Lifecycle.Lookup(ctx, a.EventID)
	if err != nil {
		return s.uc.Confirm.RenderModified(nil, err)
	}
	return s.uc.Confirm.ProposeModify(ev, a.Modification)
}

// applySelectDelete turns a selection into a delete preview
func (s *AssistantService) applySelectDelete(ctx context.Context, a domain.PendingAction) *domain.Proposal {
	ev, err := s.uc.Lifecycle.Lookup(ctx, a.EventID)
	if err != nil {
		return s.uc.Confirm.RenderDeleted("", 0, err)
	}
	return s.uc.Confirm.ProposeDelete(ev, s.uc.Lifecycle.IsRecurring(ctx, ev))
}

func (s *AssistantService) applyCancel(_ context.Context, _ domain.PendingAction) *domain.Proposal {
	return domain.TextProposal(usecase.MsgCancelled)
}

func titleOf(ev *domain.CalendarEventRef) string {
	if ev == nil {
		return ""
	}
	return ev.Title
}
