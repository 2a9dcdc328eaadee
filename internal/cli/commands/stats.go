package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	coll, err := openCollection()
	if err != nil {
		return err
	}
	defer coll.Close()

	stats, err := coll.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("filings: %d\n", stats.Filings)
	fmt.Printf("sources: %d\n", stats.Sources)
	if stats.Filings > 0 {
		fmt.Printf("oldest:  %s\n", stats.OldestAt)
		fmt.Printf("newest:  %s\n", stats.NewestAt)
	}
	return nil
}
