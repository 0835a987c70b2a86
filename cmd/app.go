package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	weaviateclient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docqa/src/core/agent"
	"docqa/src/core/chunker"
	"docqa/src/core/docstore"
	"docqa/src/core/index"
	"docqa/src/core/ingest"
	"docqa/src/core/retrieval"
	"docqa/src/fsutil"
	"docqa/src/infrastructure/integrations/ollama"
	"docqa/src/infrastructure/integrations/unstructured"
	"docqa/src/storage/minioctrl"
	"docqa/src/storage/postgres/chunkctrl"
	"docqa/src/storage/postgres/documentctrl"
	"docqa/src/storage/weaviate"
)

const indexClassName = "DocumentChunk"

// application bundles the wired services shared by the CLI commands.
type application struct {
	documents docstore.DocumentStore
	chunks    docstore.ChunkStore

	ingestService    *ingest.Service
	retrievalService *retrieval.Service
	coordinator      *agent.Coordinator

	db *gorm.DB
}

// buildApplication wires the service graph from viper configuration. The
// memory backends need no external services; postgres and weaviate are
// opt-in per backend key.
func buildApplication() (*application, error) {
	app := &application{}

	// Stores
	switch backend := viper.GetString("store.backend"); backend {
	case "memory":
		store := docstore.NewMemoryStore()
		app.documents = store
		app.chunks = store
	case "postgres":
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		app.db = db
		documents, err := documentctrl.NewDocumentService(db)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document store: %w", err)
		}
		chunks, err := chunkctrl.NewChunkService(db)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chunk store: %w", err)
		}
		app.documents = documents
		app.chunks = chunks
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	// Model provider
	oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: 120 * time.Second,
	})
	provider := ollama.NewProvider(
		oc,
		viper.GetString("ollama.chat_model"),
		viper.GetString("ollama.embedding_model"),
		viper.GetInt("ollama.dimension"),
	)

	// Vector index
	var vectors retrieval.VectorIndex
	switch backend := viper.GetString("index.backend"); backend {
	case "memory":
		mem, err := index.NewMemory(provider.Dimension())
		if err != nil {
			return nil, err
		}
		vectors = mem
	case "weaviate":
		wc := weaviateclient.New(weaviateclient.Config{
			Host:   viper.GetString("weaviate.host"),
			Scheme: "http",
		})
		vectors = weaviate.NewIndex(weaviate.NewSDK(wc), indexClassName)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}

	app.retrievalService = retrieval.NewService(provider, vectors, app.chunks, app.documents)

	// Chunker
	maxSize := viper.GetInt("chunker.max_size")
	overlap := viper.GetInt("chunker.overlap")
	var splitter chunker.Splitter
	var err error
	switch strategy := viper.GetString("chunker.strategy"); strategy {
	case "boundary":
		splitter, err = chunker.NewBoundary(maxSize, overlap)
	case "recursive":
		splitter, err = chunker.NewRecursive(maxSize, overlap)
	default:
		return nil, fmt.Errorf("unknown chunker strategy %q", strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	// Extractor
	var partition *unstructured.UnstructuredService
	if url := viper.GetString("unstructured.url"); url != "" {
		partition = unstructured.NewUnstructuredService(url, &http.Client{
			Timeout: 120 * time.Second,
		})
	}
	extractor := unstructured.NewExtractor(partition)

	// Ingestion
	ids, err := docstore.NewIDGenerator(1)
	if err != nil {
		return nil, err
	}
	app.ingestService = ingest.NewService(
		fsutil.NewLocalFileStore(),
		extractor,
		splitter,
		app.documents,
		app.chunks,
		ids,
	)
	if viper.GetBool("minio.enabled") {
		minioService, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio service: %w", err)
		}
		app.ingestService.WithObjectStore(minioService, viper.GetString("minio.bucket"))
	}

	// Agent
	registry := agent.NewRegistry(agent.StandardTools(
		app.ingestService,
		app.retrievalService,
		viper.GetInt("retrieval.top_k"),
	)...)
	app.coordinator = agent.NewCoordinator(provider, registry, agent.Config{
		MaxToolCalls:   viper.GetInt("agent.max_tool_calls"),
		MaxRetries:     viper.GetInt("agent.max_retries"),
		RetryBaseDelay: viper.GetDuration("agent.retry_base_delay"),
		RequestTimeout: viper.GetDuration("agent.request_timeout"),
	})

	return app, nil
}

// Close releases the database connection when one was opened.
func (a *application) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
