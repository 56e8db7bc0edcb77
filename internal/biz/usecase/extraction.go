package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

// ExtractionPrompts holds the prompt templates sent to the model
type ExtractionPrompts struct {
	// Extract has {{now}}, {{weekday}}, {{year}} and {{corpus}} placeholders
	Extract string
	// Request has {{now}}, {{weekday}}, {{intent}} and {{text}} placeholders
	Request string
}

// ExtractionConfig configures the extraction usecase
type ExtractionConfig struct {
	Models   []string // tried in order
	Policy   RetryPolicy
	Location *time.Location
	Prompts  ExtractionPrompts
}

// RawCandidate is one item of the model's JSON output before normalization
type RawCandidate struct {
	Title         string `json:"title"`
	Date          string `json:"date"`
	EndDate       string `json:"endDate"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	IsAllDay      *bool  `json:"isAllDay"`
	Location      string `json:"location"`
	Description   string `json:"description"`
	Recurrence    string `json:"recurrence"`
	YearSpecified *bool  `json:"yearSpecified"`
}

// TargetRequest is what a modify, delete or check message asks for
type TargetRequest struct {
	Keywords     []string             `json:"keywords"`
	DateToken    string               `json:"date"`
	Modification *domain.Modification `json:"changes,omitempty"`
}

// ExtractionUsecase drives the LLM extraction step
type ExtractionUsecase struct {
	llm    repo.LLMRepo
	config ExtractionConfig
}

// NewExtractionUsecase creates a new extraction usecase
func NewExtractionUsecase(llm repo.LLMRepo, config ExtractionConfig) *ExtractionUsecase {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Prompts.Extract == "" {
		config.Prompts.Extract = DefaultExtractionPrompts.Extract
	}
	if config.Prompts.Request == "" {
		config.Prompts.Request = DefaultExtractionPrompts.Request
	}
	if config.Policy.Retryable == nil {
		config.Policy.Retryable = IsTransient
	}
	return &ExtractionUsecase{llm: llm, config: config}
}

// Extract asks the models for schedule candidates in corpus
func (uc *ExtractionUsecase) Extract(ctx context.Context, corpus string, now time.Time) ([]RawCandidate, error) {
	prompt := uc.render(uc.config.Prompts.Extract, now, map[string]string{"{{corpus}}": corpus})

	strategies := make([]Strategy[[]RawCandidate], 0, len(uc.config.Models))
	for _, model := range uc.config.Models {
		model := model
		strategies = append(strategies, Strategy[[]RawCandidate]{
			Name: model,
			Run: func(ctx context.Context) ([]RawCandidate, error) {
				text, err := uc.llm.Generate(ctx, model, prompt)
				if err != nil {
					return nil, err
				}
				return ParseCandidateArray(text)
			},
		})
	}

	raw, err := Attempt(ctx, strategies, uc.config.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionExhausted, err)
	}
	fmt.Printf("[Extract] %d raw candidates\n", len(raw))
	return raw, nil
}

// ParseRequest extracts the target of a modify, delete or check message.
// When every model fails the rule-based parser is used instead.
func (uc *ExtractionUsecase) ParseRequest(ctx context.Context, text string, intent domain.Intent, now time.Time) *TargetRequest {
	prompt := uc.render(uc.config.Prompts.Request, now, map[string]string{
		"{{intent}}": string(intent),
		"{{text}}":   text,
	})

	strategies := make([]Strategy[*TargetRequest], 0, len(uc.config.Models))
	for _, model := range uc.config.Models {
		model := model
		strategies = append(strategies, Strategy[*TargetRequest]{
			Name: model,
			Run: func(ctx context.Context) (*TargetRequest, error) {
				out, err := uc.llm.Generate(ctx, model, prompt)
				if err != nil {
					return nil, err
				}
				return parseTargetRequest(out)
			},
		})
	}

	req, err := Attempt(ctx, strategies, uc.config.Policy)
	if err != nil {
		fmt.Printf("[Extract] Request parsing fell back to rules: %v\n", err)
		return ParseRequestRules(text, intent, now)
	}
	if req.DateToken == "" {
		req.DateToken = domain.DetectDateToken(text, now)
	}
	if intent != domain.IntentModify {
		req.Modification = nil
	}
	return req
}

func (uc *ExtractionUsecase) render(tmpl string, now time.Time, vars map[string]string) string {
	local := now.In(uc.config.Location)
	pairs := []string{
		"{{now}}", local.Format("2006-01-02 15:04 MST"),
		"{{weekday}}", domain.JaWeekday(local.Weekday()),
		"{{year}}", fmt.Sprintf("%d", local.Year()),
	}
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// ParseCandidateArray parses a model response that must be a JSON array.
// Items that do not decode are skipped.
func ParseCandidateArray(text string) ([]RawCandidate, error) {
	body := StripCodeFence(text)
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	out := make([]RawCandidate, 0, len(items))
	for _, item := range items {
		var c RawCandidate
		if err := json.Unmarshal(item, &c); err != nil {
			fmt.Printf("[Extract] Skipping unparseable item: %v\n", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func parseTargetRequest(text string) (*TargetRequest, error) {
	body := StripCodeFence(text)
	var req TargetRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	kept := req.Keywords[:0]
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	req.Keywords = kept
	if req.Modification != nil && req.Modification.IsEmpty() {
		req.Modification = nil
	}
	return &req, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DefaultExtractionPrompts are used when configs/prompts.yaml does not override them
var DefaultExtractionPrompts = ExtractionPrompts{
	Extract: `あなたは予定抽出アシスタントです。以下の内容から予定を抽出してください。

現在日時: {{now}}（{{weekday}}曜日）

## 出力形式
JSON配列のみを出力してください。説明文やコードブロックは不要です。
[
  {
    "title": "予定のタイトル",
    "date": "YYYY-MM-DD",
    "endDate": "YYYY-MM-DD または null",
    "startTime": "HH:MM または null",
    "endTime": "HH:MM または null",
    "isAllDay": true/false,
    "location": "場所 または null",
    "description": "補足 または null",
    "recurrence": "繰り返し（例: 毎週火曜日、毎月第2水曜日）または null",
    "yearSpecified": true/false
  }
]

## ルール
- 「8/2〜8/3」のような期間は1件にまとめ、date に開始日、endDate に終了日を入れる
- 年の記載がない場合は {{year}} 年とし、yearSpecified を false にする
- 時刻がない予定は isAllDay を true にする
- 日付が特定できない項目は出力しない
- 予定がなければ [] を出力する

## 内容
{{corpus}}`,
	Request: `ユーザーのメッセージから、操作対象の予定を特定する情報を抽出してください。

現在日時: {{now}}（{{weekday}}曜日）
操作: {{intent}}

## 出力形式
JSONオブジェクトのみを出力してください。
{
  "keywords": ["予定タイトルに含まれる語"],
  "date": "today / tomorrow / this_week / next_week / this_month / YYYY-MM-DD / 空文字",
  "changes": {
    "title": "新しいタイトル",
    "date": "YYYY-MM-DD",
    "endDate": "YYYY-MM-DD",
    "startTime": "HH:MM",
    "endTime": "HH:MM",
    "location": "新しい場所",
    "isAllDay": true/false
  }
}
changes には変更を求められた項目だけを入れ、変更でなければ省略してください。

## メッセージ
{{text}}`,
}
