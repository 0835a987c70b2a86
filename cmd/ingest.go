package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/src/fsutil"
	"docqa/src/infrastructure/job"
	"docqa/src/infrastructure/log"
)

var (
	ingestDir     bool
	ingestRebuild bool
	ingestAsync   bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into the chunk store",
	Long: `The ingest command extracts text from the given files, splits it into
chunks and stores them. With --rebuild-index the vector index is refreshed
afterwards so the documents become retrievable immediately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestDir, "dir", false, "treat arguments as directories and ingest their files")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild-index", false, "rebuild the vector index after ingestion")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "enqueue a background job instead of ingesting inline")

	settingDefaultConfig()
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := buildApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	paths := args
	if ingestDir {
		fs := fsutil.NewLocalFileStore()
		paths = nil
		for _, dir := range args {
			files, err := fs.ListFiles(dir)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, err)
			}
			paths = append(paths, files...)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found to ingest")
	}

	ctx := context.Background()
	if ingestAsync {
		return enqueueIngest(ctx, paths)
	}
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var totalChunks, ingested int
	var skipped []string
	for _, path := range paths {
		result, err := app.ingestService.IngestFiles(ctx, []string{path})
		if err != nil {
			return err
		}
		ingested += result.DocumentsIngested
		totalChunks += result.ChunksCreated
		skipped = append(skipped, result.Skipped...)
		bar.Add(1)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Printf("Ingested %d documents (%d chunks)\n", ingested, totalChunks)
	for _, path := range skipped {
		fmt.Printf("Skipped %s\n", path)
	}

	if ingestRebuild {
		size, err := app.retrievalService.BuildIndex(ctx)
		if err != nil {
			return fmt.Errorf("failed to rebuild index: %w", err)
		}
		log.Info("Index rebuilt", "size", size)
		fmt.Printf("Index rebuilt with %d chunks\n", size)
	}

	return nil
}

// enqueueIngest hands the file list to the worker via the job queue. The
// worker resolves the paths, so they must be reachable from its filesystem.
func enqueueIngest(ctx context.Context, paths []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer publisher.Close()

	repo, err := job.NewPostgresJobRepository(db)
	if err != nil {
		return err
	}
	jobService := job.NewJobService(publisher, repo, watermill.NewStdLogger(false, false), nil, nil)

	payload, err := json.Marshal(job.IngestPayload{
		FileRefs:     paths,
		RebuildIndex: ingestRebuild,
	})
	if err != nil {
		return err
	}

	j, err := jobService.EnqueueJob(ctx, job.TaskTypeIngest, payload)
	if err != nil {
		return err
	}
	fmt.Printf("Enqueued ingest job %d for %d files\n", j.ID, len(paths))
	return nil
}
