package unstructured

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// plainTextFormats are decoded locally without the partition API.
var plainTextFormats = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".log":      true,
}

// Extractor decodes document payloads into plain text. Text-like formats are
// read directly; everything else goes through the unstructured API. A nil
// service restricts ingestion to text-like formats.
type Extractor struct {
	service *UnstructuredService
}

func NewExtractor(service *UnstructuredService) *Extractor {
	return &Extractor{service: service}
}

func (e *Extractor) Extract(ctx context.Context, filename string, payload []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if plainTextFormats[ext] {
		if !utf8.Valid(payload) {
			return "", fmt.Errorf("file %s is not valid UTF-8 text", filename)
		}
		return string(payload), nil
	}

	if e.service == nil {
		return "", fmt.Errorf("unsupported file format %q and no partition service configured", ext)
	}
	return e.service.ExtractText(ctx, filename, payload)
}
