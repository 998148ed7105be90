package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/store"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect stored documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored documents",
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show one document and its chunk layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

func init() {
	docsCmd.AddCommand(docsListCmd, docsShowCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(""); err != nil {
		return err
	}
	st, err := openStore(cfg, "")
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("%-36s  %-11s  %6s  %s\n", "ID", "STATUS", "CHUNKS", "TITLE")
	for _, d := range docs {
		fmt.Printf("%-36s  %-11s  %6d  %s\n", d.ID, d.Status, d.ChunksCreated, d.Title)
	}
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(""); err != nil {
		return err
	}
	st, err := openStore(cfg, "")
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	doc, err := st.GetDocument(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("document %s not found", args[0])
		}
		return err
	}

	bold := color.New(color.Bold)
	bold.Println(doc.Title)
	fmt.Printf("  id:          %s\n", doc.ID)
	fmt.Printf("  source:      %s\n", doc.SourcePath)
	fmt.Printf("  status:      %s\n", doc.Status)
	fmt.Printf("  fingerprint: %s\n", doc.Fingerprint)
	if doc.ChunksExpected != nil {
		fmt.Printf("  chunks:      %d / %d\n", doc.ChunksCreated, *doc.ChunksExpected)
	} else {
		fmt.Printf("  chunks:      %d\n", doc.ChunksCreated)
	}
	if doc.ErrorMessage != nil {
		color.New(color.FgRed).Printf("  error:       %s\n", *doc.ErrorMessage)
	}
	if doc.CompletedAt != nil {
		fmt.Printf("  completed:   %s\n", doc.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	chunks, err := st.GetChunks(ctx, doc.ID)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		fmt.Printf("  [%3d] %6d..%-6d  ~%d tokens\n", c.Index, c.Start, c.End, c.TokenCount)
	}
	return nil
}
