package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the calendar as iCalendar",
		Long:  "Write every event, series and exception date as an RFC 5545 document.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	c, err := openCore(false)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close()

	doc, err := c.repos.Calendar.ExportICS(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		fmt.Print(doc)
		return
	}
	if err := os.WriteFile(out, []byte(doc), 0644); err != nil {
		exitErr("write", err)
	}
	fmt.Fprintf(os.Stderr, "exported to %s\n", out)
}
