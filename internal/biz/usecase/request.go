package usecase

import (
	"regexp"
	"strings"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

var (
	changeSeparators = []string{"→", "->", "⇒", "を"}

	clockRe    = regexp.MustCompile(`(\d{1,2})(?::(\d{2})|時(半)?)`)
	dateExprRe = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}|\d{1,2}月\d{1,2}日|\d{1,2}/\d{1,2}`)
	particleRe = regexp.MustCompile(`[のをはにでとへがも、。,.!?！？「」『』()（）\s]+`)

	requestStopwords = []string{
		"予定", "スケジュール", "確認", "教えて", "ありますか", "削除", "キャンセル", "取り消し", "取消",
		"消して", "中止", "変更", "修正", "移動", "リスケ", "延期", "前倒し", "して", "ください", "お願い",
		"今日", "本日", "明日", "明後日", "あさって", "今週", "来週", "今月", "全部", "すべて",
		"場所", "タイトル", "名前",
	}
	englishStopwords = map[string]bool{
		"delete": true, "cancel": true, "remove": true, "change": true, "reschedule": true, "move": true,
		"postpone": true, "update": true, "today": true, "tomorrow": true, "next": true, "this": true,
		"week": true, "month": true, "my": true, "the": true, "please": true, "event": true, "to": true,
		"on": true, "at": true, "what's": true, "do": true, "have": true, "check": true, "show": true,
		"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
		"saturday": true, "sunday": true,
	}
)

// ParseRequestRules is the rule-based request parser used when no model answers
func ParseRequestRules(text string, intent domain.Intent, now time.Time) *TargetRequest {
	t := domain.FoldWidth(strings.TrimSpace(text))
	target, change := t, ""
	if intent == domain.IntentModify {
		target, change = splitChange(t)
	}

	req := &TargetRequest{
		DateToken: domain.DetectDateToken(target, now),
		Keywords:  extractKeywords(target),
	}
	if intent == domain.IntentModify {
		req.Modification = parseChange(target, change, now)
	}
	return req
}

// splitChange splits "<target>を<change>" style requests at the last separator
func splitChange(text string) (string, string) {
	for _, sep := range changeSeparators {
		if idx := strings.LastIndex(text, sep); idx > 0 {
			return text[:idx], text[idx+len(sep):]
		}
	}
	return text, ""
}

func extractKeywords(target string) []string {
	s := dateExprRe.ReplaceAllString(target, " ")
	s = clockRe.ReplaceAllString(s, " ")
	lower := strings.ToLower(s)
	for _, w := range requestStopwords {
		lower = strings.ReplaceAll(lower, w, " ")
	}

	var out []string
	seen := map[string]bool{}
	for _, tok := range particleRe.Split(lower, -1) {
		tok = strings.TrimSpace(tok)
		if len([]rune(tok)) < 2 || seen[tok] || englishStopwords[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func parseChange(target, change string, now time.Time) *domain.Modification {
	if change == "" {
		return nil
	}
	m := &domain.Modification{}
	value := cleanChangeValue(change)

	switch {
	case strings.Contains(target, "場所") || strings.Contains(strings.ToLower(target), "location"):
		if value != "" {
			m.Location = &value
		}
		return nilIfEmpty(m)
	case strings.Contains(target, "タイトル") || strings.Contains(target, "名前") || strings.Contains(strings.ToLower(target), "title"):
		if value != "" {
			m.Title = &value
		}
		return nilIfEmpty(m)
	}

	clocks := clockRe.FindAllStringSubmatch(change, 2)
	if len(clocks) > 0 {
		start := clockFromMatch(clocks[0])
		m.StartTime = &start
	}
	if len(clocks) > 1 {
		end := clockFromMatch(clocks[1])
		m.EndTime = &end
	}

	if tok := domain.DetectDateToken(change, now); tok != "" {
		switch tok {
		case domain.TokenToday, domain.TokenTomorrow:
			d := domain.ResolveDateRange(tok, now).Start.Format(domain.DateLayout)
			m.Date = &d
		default:
			if _, err := domain.ParseDate(tok, now.Location()); err == nil {
				m.Date = &tok
			}
		}
	}

	if strings.Contains(change, "終日") {
		allDay := true
		m.IsAllDay = &allDay
	}
	return nilIfEmpty(m)
}

func clockFromMatch(m []string) string {
	minute := "00"
	if m[2] != "" {
		minute = m[2]
	} else if m[3] != "" {
		minute = "30"
	}
	clock, ok := domain.NormalizeClock(m[1] + ":" + minute)
	if !ok {
		return domain.DefaultStartClock
	}
	return clock
}

func cleanChangeValue(change string) string {
	s := strings.TrimSpace(change)
	for _, suffix := range []string{"に変更して", "に変更", "へ変更", "にして", "に修正", "に"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	return strings.TrimSpace(s)
}

func nilIfEmpty(m *domain.Modification) *domain.Modification {
	if m.IsEmpty() {
		return nil
	}
	return m
}
