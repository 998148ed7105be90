package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edusignal/kbingest/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document status counts and the total chunk count",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(""); err != nil {
		return err
	}
	st, err := openStore(cfg, "")
	if err != nil {
		return err
	}
	defer st.Close()

	counts, totalChunks, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	color.New(color.Bold).Println("knowledge base stats")
	fmt.Printf("  pending:     %d\n", counts.Pending)
	fmt.Printf("  in progress: %d\n", counts.InProgress)
	fmt.Printf("  completed:   %d\n", counts.Completed)
	if counts.Failed > 0 {
		color.New(color.FgRed).Printf("  failed:      %d\n", counts.Failed)
	} else {
		fmt.Printf("  failed:      %d\n", counts.Failed)
	}
	fmt.Printf("  chunks:      %d\n", totalChunks)
	return nil
}
