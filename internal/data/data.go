package data

import (
	"fmt"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
	"github.com/schedulebridge/schedule-bridge/internal/infra/llm"
)

// Options configures the shared repositories
type Options struct {
	CalendarDBPath string
	Location       *time.Location
	EventLinkFmt   string

	LedgerDBPath   string
	LedgerCapacity int

	LLMClient   *llm.Client
	LLMProvider string

	ConverterEndpoint string
	ConverterPoll     time.Duration
	ConverterMaxWait  time.Duration

	FetcherEnabled  bool
	FetcherTimeout  time.Duration
	FetcherMaxChars int
}

// Repositories contains all channel-independent repositories.
// Messengers are created per chat platform.
type Repositories struct {
	Calendar  *CalendarStore
	Ledger    *LedgerStore
	LLM       repo.LLMRepo
	Converter repo.ConverterRepo
	Fetcher   repo.WebFetcherRepo
}

// NewRepositories creates all repositories
func NewRepositories(opts Options) (*Repositories, error) {
	calendar, err := NewCalendarStore(opts.CalendarDBPath, opts.Location, opts.EventLinkFmt)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}

	ledger, err := NewLedgerStore(opts.LedgerDBPath, opts.LedgerCapacity)
	if err != nil {
		calendar.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	repos := &Repositories{
		Calendar:  calendar,
		Ledger:    ledger,
		LLM:       NewLLMRepo(opts.LLMClient, opts.LLMProvider),
		Converter: NewConverterRepo(opts.ConverterEndpoint, opts.ConverterPoll, opts.ConverterMaxWait),
	}
	if opts.FetcherEnabled {
		repos.Fetcher = NewWebFetcher(opts.FetcherTimeout, opts.FetcherMaxChars)
	}
	return repos, nil
}

// Close releases the databases
func (r *Repositories) Close() {
	if r.Calendar != nil {
		r.Calendar.Close()
	}
	if r.Ledger != nil {
		r.Ledger.Close()
	}
}
