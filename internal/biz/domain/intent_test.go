package domain

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"明日の予定を確認して", IntentCheck},
		{"今週の予定は？", IntentCheck},
		{"what's on tomorrow", IntentCheck},
		{"明日の会議を削除して", IntentDelete},
		{"cancel the dentist", IntentDelete},
		{"定例会議を15時に変更", IntentModify},
		{"reschedule the standup", IntentModify},
		{"8月5日 14:00 打ち合わせ", IntentAdd},
		{"８月５日　１４：００から打ち合わせ", IntentAdd},
		{"lunch tomorrow at 12:30", IntentAdd},
		{"こんにちは", IntentUnknown},
		{"", IntentUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyIntent(tt.text); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestClassifyIntent_FirstMatchWins(t *testing.T) {
	// check beats delete when both markers appear
	if got := ClassifyIntent("削除する前に明日の予定を確認"); got != IntentCheck {
		t.Errorf("Expected check, got %s", got)
	}
	// delete beats modify
	if got := ClassifyIntent("変更じゃなくて削除して"); got != IntentDelete {
		t.Errorf("Expected delete, got %s", got)
	}
}

func TestShouldAutoFire(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		mc     MessageContext
		want   bool
	}{
		{"unknown never fires", IntentUnknown, MessageContext{IsDirect: true}, false},
		{"direct message", IntentAdd, MessageContext{IsDirect: true}, true},
		{"mention", IntentDelete, MessageContext{MentionsBot: true}, true},
		{"ambient date-like text", IntentAdd, MessageContext{Text: "8/5 14:00 集合"}, false},
		{"ambient explicit create", IntentAdd, MessageContext{Text: "8/5 14:00 集合 カレンダーに追加して"}, true},
		{"ambient check", IntentCheck, MessageContext{Text: "予定を確認 カレンダーに追加"}, false},
	}

	for _, tt := range tests {
		if got := ShouldAutoFire(tt.intent, tt.mc); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFoldWidth(t *testing.T) {
	if got := FoldWidth("１２：３０／８"); got != "12:30/8" {
		t.Errorf("Expected 12:30/8, got %s", got)
	}
}
