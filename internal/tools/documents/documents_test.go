package documents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/novachat/nova/config"
)

func TestIndexIngestAndSearch(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.md":      "Go is a statically typed language designed at Google for building servers.",
		"cooking.md": "Slow roasting a chicken at low temperature keeps the meat moist.",
		"notes.log":  "this extension is not indexed",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	idx, err := NewIndex(config.DocumentsConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	hits, err := idx.Search("statically typed language", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].File != "go.md" {
		t.Fatalf("expected go.md as top hit, got %+v", hits)
	}

	hits, err = idx.Search("indexed", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.File == "notes.log" {
			t.Fatalf("non-document extension was indexed: %+v", h)
		}
	}
}

func TestChunkTextSplitsLongDocuments(t *testing.T) {
	line := strings.Repeat("word ", 100) + "\n"
	long := strings.Repeat(line, 10)

	chunks := chunkText(long)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > chunkSize {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(c))
		}
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestDocumentsTool(t *testing.T) {
	idx, err := NewIndex(config.DocumentsConfig{})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.AddChunk(DocChunk{DocID: "1", File: "tax.md", Text: "File your tax return before the end of April."}); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	tool := New(idx, 4)
	out, err := tool.Run(context.Background(), map[string]any{"query": "tax return"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	passages, ok := out["passages"].([]map[string]any)
	if !ok || len(passages) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if passages[0]["file"] != "tax.md" {
		t.Fatalf("wrong passage: %+v", passages[0])
	}

	out, err = tool.Run(context.Background(), map[string]any{"query": "zzzzzz nothing"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := out["error"]; !ok {
		t.Fatalf("expected error payload for no matches, got %+v", out)
	}
}
