package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v1 "docqa/handler/http/v1"
	"docqa/src/infrastructure/job"
	"docqa/src/infrastructure/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document Q&A server",
	Long:  `The serve command starts an HTTP server exposing document upload, indexing, retrieval and question answering.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func runServer(cmd *cobra.Command, args []string) error {
	app, err := buildApplication()
	if err != nil {
		log.Error(err, "Failed to build application")
		return err
	}
	defer app.Close()

	// Async ingestion jobs need a durable job record, so the queue is only
	// wired together with the postgres store.
	var jobService *job.JobService
	if viper.GetBool("jobs.enabled") && app.db != nil {
		publisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Error(err, "Failed to create AMQP publisher")
			return err
		}
		defer publisher.Close()

		repo, err := job.NewPostgresJobRepository(app.db)
		if err != nil {
			log.Error(err, "Failed to initialize job repository")
			return err
		}
		jobService = job.NewJobService(publisher, repo, watermill.NewStdLogger(false, false),
			app.ingestService, app.retrievalService)
	}

	handler := v1.NewHandler(
		app.ingestService,
		app.retrievalService,
		app.documents,
		app.coordinator,
		jobService,
	)

	r := gin.Default()
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
		}
	}()
	log.Info("Server started", "port", viper.GetString("server.port"))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
		return err
	}

	log.Info("Server exited")
	return nil
}
