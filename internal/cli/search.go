package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search calendar events",
		Long:  "Search events whose title contains any keyword within a date window. Without keywords every event in the window is listed.",
		Args:  cobra.ArbitraryArgs,
		Run:   runSearch,
	}

	cmd.Flags().String("date", "", "Window: today, tomorrow, this_week, next_week, this_month or YYYY-MM-DD (default: next 60 days)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	date, _ := cmd.Flags().GetString("date")

	c, err := openCore(false)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close()

	events, rng, err := c.search.Search(cmd.Context(), args, date, c.now())
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "json" {
		if len(events) == 0 {
			fmt.Println("[]")
			return
		}
		printJSON(events)
		return
	}

	fmt.Printf("%s (%d件)\n", usecase.FormatRange(rng), len(events))
	for i := range events {
		fmt.Printf("  %s  [%s]\n", usecase.FormatEvent(&events[i]), events[i].ID)
	}
}
