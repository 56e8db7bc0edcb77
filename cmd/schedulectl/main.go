package main

import (
	"os"

	"github.com/schedulebridge/schedule-bridge/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
