package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/src/infrastructure/log"
)

var askFiles []string

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Long: `The ask command runs one question through the agent loop. With --file the
given documents are ingested and indexed first, so a single invocation can
answer against fresh files.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "documents to ingest before asking")

	settingDefaultConfig()
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := buildApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if len(askFiles) > 0 {
		result, err := app.ingestService.IngestFiles(ctx, askFiles)
		if err != nil {
			return err
		}
		log.Info("Documents ingested", "documents", result.DocumentsIngested, "chunks", result.ChunksCreated)

		if _, err := app.retrievalService.BuildIndex(ctx); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
	}

	answer, err := app.coordinator.Answer(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if answer.Degraded {
		fmt.Println("\n(answer degraded: tool budget exhausted)")
	}
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		seen := make(map[string]bool)
		for _, s := range answer.Sources {
			if !seen[s.SourceDocument] {
				seen[s.SourceDocument] = true
				fmt.Printf("  - %s\n", s.SourceDocument)
			}
		}
	}
	return nil
}
