package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

const (
	// MaxPayloadBytes is the largest button value the transports accept
	MaxPayloadBytes = 1900

	maxItemizedCandidates = 3
	maxSelectableEvents   = 5
)

// Reply texts
const (
	MsgNoSchedule       = "予定が見つかりませんでした。"
	MsgNoMatchingEvent  = "該当する予定が見つかりませんでした。"
	MsgCancelled        = "キャンセルしました。"
	MsgStalePayload     = "この確認は無効になりました。もう一度リクエストを送ってください。"
	MsgEventGone        = "この予定はすでに存在しません。"
	MsgExtractionFailed = "予定の読み取りに失敗しました。時間をおいてもう一度お試しください。"
	MsgNeedChanges      = "変更内容を読み取れませんでした。例:「明日の会議を15:00に変更」"
	MsgTooManyToAddAll  = "件数が多いため一括登録できません。予定を分けて送ってください。"
)

// ConfirmUsecase renders proposals whose buttons carry the pending action.
// It keeps no state; everything needed to apply a click is in the payload.
type ConfirmUsecase struct {
	maxPayload int
}

// NewConfirmUsecase creates a new confirm usecase
func NewConfirmUsecase() *ConfirmUsecase {
	return &ConfirmUsecase{maxPayload: MaxPayloadBytes}
}

func (uc *ConfirmUsecase) button(id string, label string, style domain.ButtonStyle, a domain.PendingAction) *domain.Button {
	value, err := domain.EncodePayload(a)
	if err != nil {
		fmt.Printf("[Confirm] Encode %s failed: %v\n", a.Kind, err)
		return nil
	}
	if len(value) > uc.maxPayload {
		fmt.Printf("[Confirm] Payload for %s too large (%d bytes), control dropped\n", a.Kind, len(value))
		return nil
	}
	return &domain.Button{ActionID: id, Label: label, Style: style, Value: value}
}

func (uc *ConfirmUsecase) cancel() domain.Button {
	return *uc.button("cancel", "キャンセル", domain.StyleDefault, domain.NewCancelAction())
}

// addButton builds a per-candidate add control, dropping the description
// when the full candidate does not fit
func (uc *ConfirmUsecase) addButton(id, label string, style domain.ButtonStyle, c domain.ScheduleCandidate) *domain.Button {
	if b := uc.button(id, label, style, domain.NewAddAction(c)); b != nil {
		return b
	}
	c.Description = ""
	return uc.button(id, label, style, domain.NewAddAction(c))
}

// addAllButton builds the add-all control, dropping descriptions when the
// full set does not fit. Nil means the set is too large either way.
func (uc *ConfirmUsecase) addAllButton(cs []domain.ScheduleCandidate) *domain.Button {
	label := fmt.Sprintf("すべて登録（%d件）", len(cs))
	if b := uc.button("add_all", label, domain.StylePrimary, domain.NewAddAllAction(cs)); b != nil {
		return b
	}
	bare := make([]domain.ScheduleCandidate, len(cs))
	for i, c := range cs {
		c.Description = ""
		bare[i] = c
	}
	return uc.button("add_all", label, domain.StylePrimary, domain.NewAddAllAction(bare))
}

// ProposeCandidates renders extraction results
func (uc *ConfirmUsecase) ProposeCandidates(cs []domain.ScheduleCandidate) *domain.Proposal {
	switch len(cs) {
	case 0:
		return domain.TextProposal(MsgNoSchedule)
	case 1:
		p := &domain.Proposal{
			Text:     "📅 この予定を登録しますか？",
			Sections: []domain.Section{{Text: "📅 この予定を登録しますか？"}, {Text: FormatCandidate(cs[0])}},
		}
		if b := uc.addButton("add_0", "登録する", domain.StylePrimary, cs[0]); b != nil {
			p.Actions = append(p.Actions, *b)
		}
		p.Actions = append(p.Actions, uc.cancel())
		return p
	}

	header := fmt.Sprintf("📅 %d件の予定が見つかりました。", len(cs))
	p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}}}
	for i, c := range cs {
		if i == maxItemizedCandidates {
			p.Sections = append(p.Sections, domain.Section{Text: fmt.Sprintf("…ほか%d件", len(cs)-maxItemizedCandidates)})
			break
		}
		p.Sections = append(p.Sections, domain.Section{
			Text:   FormatCandidate(c),
			Button: uc.addButton(fmt.Sprintf("add_%d", i), "追加", domain.StyleDefault, c),
		})
	}
	if b := uc.addAllButton(cs); b != nil {
		p.Actions = append(p.Actions, *b)
	} else {
		p.Sections = append(p.Sections, domain.Section{Text: MsgTooManyToAddAll})
	}
	p.Actions = append(p.Actions, uc.cancel())
	return p
}

// ProposeSelection asks which existing event a modify or delete targets
func (uc *ConfirmUsecase) ProposeSelection(events []domain.CalendarEventRef, intent domain.Intent, mod *domain.Modification) *domain.Proposal {
	verb := "削除"
	if intent == domain.IntentModify {
		verb = "変更"
	}
	header := fmt.Sprintf("%d件の予定が該当しました。%sする予定を選んでください。", len(events), verb)
	p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}}}

	for i := range events {
		if i == maxSelectableEvents {
			p.Sections = append(p.Sections, domain.Section{Text: fmt.Sprintf("…ほか%d件（条件を絞ってください）", len(events)-maxSelectableEvents)})
			break
		}
		ev := &events[i]
		var action domain.PendingAction
		if intent == domain.IntentModify && mod != nil {
			action = domain.NewSelectModifyAction(ev.ID, *mod)
		} else {
			action = domain.NewSelectDeleteAction(ev.ID)
		}
		p.Sections = append(p.Sections, domain.Section{
			Text:   FormatEvent(ev),
			Button: uc.button(fmt.Sprintf("select_%d", i), "選択", domain.StyleDefault, action),
		})
	}
	p.Actions = []domain.Button{uc.cancel()}
	return p
}

// ProposeModify previews an in-place or recreating modification
func (uc *ConfirmUsecase) ProposeModify(ev *domain.CalendarEventRef, mod *domain.Modification) *domain.Proposal {
	before := ev.ToCandidate()
	after := MergeModification(before, mod)

	var diff []string
	if after.Title != before.Title {
		diff = append(diff, fmt.Sprintf("タイトル: %s → %s", before.Title, after.Title))
	}
	if t1, t2 := FormatCandidateTime(before), FormatCandidateTime(after); t1 != t2 {
		diff = append(diff, fmt.Sprintf("日時: %s → %s", t1, t2))
	}
	if after.Location != before.Location {
		diff = append(diff, fmt.Sprintf("場所: %s → %s", orDash(before.Location), orDash(after.Location)))
	}
	if len(diff) == 0 {
		diff = append(diff, "（変更点はありません）")
	}

	header := "✏️ この予定を変更しますか？"
	p := &domain.Proposal{
		Text: header,
		Sections: []domain.Section{
			{Text: header},
			{Text: FormatEvent(ev)},
			{Text: strings.Join(diff, "\n")},
		},
	}
	if b := uc.button("modify", "変更する", domain.StylePrimary, domain.NewModifyAction(ev.ID, *mod)); b != nil {
		p.Actions = append(p.Actions, *b)
	}
	p.Actions = append(p.Actions, uc.cancel())
	return p
}

// ProposeDelete previews a delete; recurring events get the three scopes
func (uc *ConfirmUsecase) ProposeDelete(ev *domain.CalendarEventRef, recurring bool) *domain.Proposal {
	if !recurring {
		header := "🗑 この予定を削除しますか？"
		p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}, {Text: FormatEvent(ev)}}}
		if b := uc.button("delete", "削除する", domain.StyleDanger, domain.NewDeleteAction(ev.ID)); b != nil {
			p.Actions = append(p.Actions, *b)
		}
		p.Actions = append(p.Actions, uc.cancel())
		return p
	}

	header := "🔁 繰り返し予定です。削除する範囲を選んでください。"
	p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}, {Text: FormatEvent(ev)}}}
	scopes := []struct {
		scope domain.DeleteScope
		label string
		style domain.ButtonStyle
	}{
		{domain.ScopeThis, "この予定のみ", domain.StyleDefault},
		{domain.ScopeFollowing, "これ以降すべて", domain.StyleDefault},
		{domain.ScopeAll, "すべての予定", domain.StyleDanger},
	}
	for _, s := range scopes {
		if b := uc.button("delete_"+string(s.scope), s.label, s.style, domain.NewDeleteScopeAction(ev.ID, s.scope)); b != nil {
			p.Actions = append(p.Actions, *b)
		}
	}
	p.Actions = append(p.Actions, uc.cancel())
	return p
}

// RenderEvents lists events for a check request, without controls
func (uc *ConfirmUsecase) RenderEvents(events []domain.CalendarEventRef, rng domain.DateRange) *domain.Proposal {
	header := fmt.Sprintf("📅 %s の予定（%d件）", FormatRange(rng), len(events))
	if len(events) == 0 {
		header = fmt.Sprintf("📅 %s の予定はありません。", FormatRange(rng))
		return domain.TextProposal(header)
	}
	p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}}}
	for i := range events {
		p.Sections = append(p.Sections, domain.Section{Text: FormatEvent(&events[i])})
	}
	return p
}

// RenderCreated reports the outcome of one or more creates
func (uc *ConfirmUsecase) RenderCreated(results []CreateResult) *domain.Proposal {
	var ok, failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("❌ %s: %v", r.Candidate.Title, r.Err))
			continue
		}
		ok = append(ok, fmt.Sprintf("✅ %s（%s）", r.Candidate.Title, FormatCandidateTime(r.Candidate)))
	}

	var header string
	switch {
	case len(failed) == 0:
		header = fmt.Sprintf("%d件の予定を登録しました。", len(ok))
	case len(ok) == 0:
		header = "予定の登録に失敗しました。"
	default:
		header = fmt.Sprintf("%d件を登録し、%d件は失敗しました。", len(ok), len(failed))
	}
	return outcome(header, append(ok, failed...))
}

// RenderModified reports the outcome of a modification
func (uc *ConfirmUsecase) RenderModified(ev *domain.CalendarEventRef, err error) *domain.Proposal {
	var partial *domain.PartialSuccessError
	switch {
	case errors.As(err, &partial):
		return outcome("⚠️ 新しい予定は作成しましたが、元の予定を削除できませんでした。元の予定を手動で削除してください。",
			[]string{FormatEvent(partial.Created), fmt.Sprintf("元の予定ID: %s", partial.OriginalID)})
	case errors.Is(err, domain.ErrEventGone):
		return domain.TextProposal(MsgEventGone)
	case err != nil:
		return domain.TextProposal("予定の変更に失敗しました: " + err.Error())
	}
	return outcome("✅ 予定を変更しました。", []string{FormatEvent(ev)})
}

// RenderDeleted reports the outcome of a delete
func (uc *ConfirmUsecase) RenderDeleted(title string, n int, err error) *domain.Proposal {
	switch {
	case errors.Is(err, domain.ErrEventGone):
		return domain.TextProposal(MsgEventGone)
	case err != nil:
		return domain.TextProposal("予定の削除に失敗しました: " + err.Error())
	case n > 1:
		return domain.TextProposal(fmt.Sprintf("🗑 「%s」を%d件削除しました。", title, n))
	}
	return domain.TextProposal(fmt.Sprintf("🗑 「%s」を削除しました。", title))
}

func outcome(header string, lines []string) *domain.Proposal {
	p := &domain.Proposal{Text: header, Sections: []domain.Section{{Text: header}}}
	if len(lines) > 0 {
		p.Sections = append(p.Sections, domain.Section{Text: strings.Join(lines, "\n")})
	}
	return p
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
