package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract schedule candidates from text",
		Long:  "Run the extraction pipeline on text (or stdin with -). Links in the text are fetched when the fetcher is enabled. Nothing is written unless --apply is given.",
		Args:  cobra.ArbitraryArgs,
		Run:   runExtract,
	}

	cmd.Flags().Bool("apply", false, "Create every extracted candidate in the calendar")

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) {
	apply, _ := cmd.Flags().GetBool("apply")

	text, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		exitErr("read input", err)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("read input", domain.ErrNoContent)
	}

	c, err := openCore(true)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close()

	ctx := cmd.Context()
	now := c.now()

	res := c.fusion.Collect(&domain.Envelope{Text: text})
	corpus, err := c.fusion.Build(ctx, res, nil)
	if err != nil {
		exitErr("collect", err)
	}

	raw, err := c.extraction.Extract(ctx, corpus, now)
	if err != nil {
		exitErr("extract", err)
	}
	candidates := usecase.NormalizeCandidates(raw, now)

	if !apply {
		if formatFlag == "json" {
			printJSON(candidates)
			return
		}
		if len(candidates) == 0 {
			fmt.Println("予定は見つかりませんでした")
			return
		}
		for _, cand := range candidates {
			fmt.Println(usecase.FormatCandidate(cand))
		}
		return
	}

	results := c.lifecycle.CreateAll(ctx, candidates)
	if formatFlag == "json" {
		printJSON(toCreated(results))
		return
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("✗ %s: %v\n", r.Candidate.Title, r.Err)
			continue
		}
		fmt.Printf("✓ %s (%s)\n", usecase.FormatEvent(r.Event), r.Event.ID)
	}
}

// readInput joins args, or reads stdin when there are none or the only arg is "-"
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type createdOutput struct {
	Title   string `json:"title"`
	EventID string `json:"eventId,omitempty"`
	Link    string `json:"link,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toCreated(results []usecase.CreateResult) []createdOutput {
	out := make([]createdOutput, 0, len(results))
	for _, r := range results {
		o := createdOutput{Title: r.Candidate.Title}
		if r.Err != nil {
			o.Error = r.Err.Error()
		} else {
			o.EventID, o.Link = r.Event.ID, r.Event.ExternalLink
		}
		out = append(out, o)
	}
	return out
}
