package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

// ScheduleServer exposes calendar search and schedule extraction as MCP tools
type ScheduleServer struct {
	server     *mcp.Server
	search     *usecase.SearchUsecase
	extraction *usecase.ExtractionUsecase
	loc        *time.Location
	now        func() time.Time
}

// NewServer creates a new MCP server; extraction may be nil, which leaves
// only the search tool registered
func NewServer(search *usecase.SearchUsecase, extraction *usecase.ExtractionUsecase, loc *time.Location, version string) *ScheduleServer {
	if loc == nil {
		loc = time.Local
	}
	s := &ScheduleServer{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "schedule-tools",
			Version: version,
		}, nil),
		search:     search,
		extraction: extraction,
		loc:        loc,
	}
	s.now = func() time.Time { return time.Now().In(s.loc) }
	s.registerTools()
	return s
}

// Run serves the tools over stdio until the client disconnects.
// Log output is moved to stderr so it never interleaves with protocol frames.
func (s *ScheduleServer) Run(ctx context.Context) error {
	stdout := os.Stdout
	os.Stdout = os.Stderr
	defer func() { os.Stdout = stdout }()
	return s.server.Run(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: stdout})
}

func (s *ScheduleServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "calendar_search",
		Description: "Search calendar events by keyword within a date window (today, tomorrow, this_week, next_week, this_month or YYYY-MM-DD; default the next 60 days).",
	}, s.handleSearch)

	if s.extraction != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "schedule_extract",
			Description: "Extract schedule candidates from free text without creating anything. Returns normalized candidates.",
		}, s.handleExtract)
	}
}

// SearchInput is the input for calendar_search
type SearchInput struct {
	Keywords []string `json:"keywords,omitempty" jsonschema:"Words the event title must contain; empty matches every event"`
	Date     string   `json:"date,omitempty" jsonschema:"Date window token or YYYY-MM-DD"`
}

// EventOutput is one event in tool results
type EventOutput struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	When     string `json:"when"`
	Location string `json:"location,omitempty"`
	Repeats  bool   `json:"repeats"`
}

// SearchOutput is the output for calendar_search
type SearchOutput struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	Events []EventOutput `json:"events"`
}

func (s *ScheduleServer) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	events, rng, err := s.search.Search(ctx, input.Keywords, input.Date, s.now())
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	out := SearchOutput{
		From:   rng.Start.Format(domain.DateLayout),
		To:     rng.End.AddDate(0, 0, -1).Format(domain.DateLayout),
		Events: make([]EventOutput, 0, len(events)),
	}
	for i := range events {
		ev := &events[i]
		out.Events = append(out.Events, EventOutput{
			ID:       ev.ID,
			Title:    ev.Title,
			When:     usecase.FormatEventTime(ev),
			Location: ev.Location,
			Repeats:  ev.IsRecurring(),
		})
	}
	return nil, out, nil
}

// ExtractInput is the input for schedule_extract
type ExtractInput struct {
	Text string `json:"text" jsonschema:"Free text such as an announcement or an email body"`
}

// ExtractOutput is the output for schedule_extract
type ExtractOutput struct {
	Candidates []domain.ScheduleCandidate `json:"candidates"`
}

func (s *ScheduleServer) handleExtract(ctx context.Context, req *mcp.CallToolRequest, input ExtractInput) (*mcp.CallToolResult, ExtractOutput, error) {
	if input.Text == "" {
		return nil, ExtractOutput{}, fmt.Errorf("text is required")
	}
	now := s.now()
	raw, err := s.extraction.Extract(ctx, input.Text, now)
	if err != nil {
		return nil, ExtractOutput{}, err
	}
	return nil, ExtractOutput{Candidates: usecase.NormalizeCandidates(raw, now)}, nil
}
