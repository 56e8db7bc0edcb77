package domain

import (
	"regexp"
	"strings"
)

// Intent is the routed meaning of a free-text message
type Intent string

const (
	IntentCheck   Intent = "check"
	IntentAdd     Intent = "add"
	IntentModify  Intent = "modify"
	IntentDelete  Intent = "delete"
	IntentUnknown Intent = "unknown"
)

var (
	checkMarkers = []string{
		"確認", "教えて", "予定は", "予定ある", "ありますか", "何があ", "空いて",
		"what's on", "what is on", "do i have", "check my", "show my", "list my",
	}
	deleteMarkers = []string{
		"削除", "キャンセル", "取り消", "取消", "消して", "中止",
		"delete", "cancel", "remove",
	}
	modifyMarkers = []string{
		"変更", "修正", "ずらし", "ずらす", "移動", "リスケ", "延期", "前倒し",
		"change", "reschedule", "move", "postpone", "update",
	}
	createPhrases = []string{
		"予定を作成", "予定作成", "予定を登録", "予定登録", "予定を追加", "予定追加",
		"カレンダーに追加", "カレンダーに登録", "カレンダーに入れ",
		"create a schedule", "create an event", "create event", "add to calendar", "add to my calendar",
	}
)

var scheduleTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}:\d{2}`),
	regexp.MustCompile(`\d{1,2}時`),
	regexp.MustCompile(`[日月火水木金土]曜`),
	regexp.MustCompile(`\d{1,2}月\d{1,2}日`),
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`),
	regexp.MustCompile(`今日|明日|明後日|あさって|今週|来週|再来週|今月|来月`),
	regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|next week|this week|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s?(am|pm)\b`),
}

// FoldWidth maps full-width digits, colons and slashes to ASCII
func FoldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '：':
			return ':'
		case r == '／':
			return '/'
		case r == '－':
			return '-'
		}
		return r
	}, s)
}

// ClassifyIntent routes text to an intent. Rules are checked in order and
// the first match wins: check, delete, modify, schedule-like tokens (add).
func ClassifyIntent(text string) Intent {
	t := strings.ToLower(FoldWidth(strings.TrimSpace(text)))
	if t == "" {
		return IntentUnknown
	}
	switch {
	case containsAny(t, checkMarkers):
		return IntentCheck
	case containsAny(t, deleteMarkers):
		return IntentDelete
	case containsAny(t, modifyMarkers):
		return IntentModify
	case HasScheduleTokens(t):
		return IntentAdd
	}
	return IntentUnknown
}

// HasScheduleTokens reports whether text carries time or date tokens
func HasScheduleTokens(text string) bool {
	t := FoldWidth(text)
	for _, re := range scheduleTokenPatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// HasExplicitCreatePhrase reports whether the user explicitly asked to create a schedule
func HasExplicitCreatePhrase(text string) bool {
	return containsAny(strings.ToLower(text), createPhrases)
}

// MessageContext is where a message was said, used to gate auto-firing
type MessageContext struct {
	IsDirect    bool
	MentionsBot bool
	Text        string
}

// ShouldAutoFire decides whether an intent may trigger work in this context.
// Ambient text in shared channels that merely looks date-like never fires.
func ShouldAutoFire(intent Intent, mc MessageContext) bool {
	if intent == IntentUnknown {
		return false
	}
	if mc.IsDirect || mc.MentionsBot {
		return true
	}
	return intent == IntentAdd && HasExplicitCreatePhrase(mc.Text)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
