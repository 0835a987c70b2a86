package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"docqa/src/core/ingest"
	"docqa/src/core/retrieval"
)

// Names of the fixed tool catalog.
const (
	ToolProcessFiles    = "process_files"
	ToolBuildIndex      = "build_index"
	ToolRetrieveContext = "retrieve_context"
)

// StandardTools binds the ingestion and retrieval services into the tool
// catalog offered to the model. defaultK applies when the model omits k.
func StandardTools(ingestSvc *ingest.Service, retrievalSvc *retrieval.Service, defaultK int) []Tool {
	return []Tool{
		{
			Name:        ToolProcessFiles,
			Description: "Parse the given document files, split them into text chunks and store the chunks for retrieval.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_refs": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Paths of the documents to ingest"
					}
				},
				"required": ["file_refs"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
				var in struct {
					FileRefs []string `json:"file_refs"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				if len(in.FileRefs) == 0 {
					return nil, fmt.Errorf("%w: file_refs must not be empty", ErrInvalidToolArguments)
				}
				result, err := ingestSvc.IngestFiles(ctx, in.FileRefs)
				if err != nil {
					return nil, err
				}
				return json.Marshal(map[string]int{"chunks_created": result.ChunksCreated})
			},
		},
		{
			Name:        ToolBuildIndex,
			Description: "Encode all stored chunks and rebuild the vector index. Must run after ingesting documents and before retrieving context.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
				var in struct{}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				size, err := retrievalSvc.BuildIndex(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(map[string]int{"index_size": size})
			},
		},
		{
			Name:        ToolRetrieveContext,
			Description: "Retrieve the text chunks most relevant to a query from the indexed documents, with similarity scores and source documents.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "The search query"},
					"k": {"type": "integer", "description": "Number of chunks to retrieve"}
				},
				"required": ["query"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
				var in struct {
					Query string `json:"query"`
					K     int    `json:"k"`
				}
				if err := decodeArgs(args, &in); err != nil {
					return nil, err
				}
				if in.Query == "" {
					return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidToolArguments)
				}
				if in.K <= 0 {
					in.K = defaultK
				}
				chunks, err := retrievalSvc.Retrieve(ctx, in.Query, in.K)
				if err != nil {
					return nil, err
				}
				return json.Marshal(chunks)
			},
		},
	}
}
