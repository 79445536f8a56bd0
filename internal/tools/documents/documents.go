package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/google/uuid"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
)

const chunkSize = 1200 // characters per indexed chunk

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "What to look for in the local documents"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

// DocChunk is one indexed slice of a local document.
type DocChunk struct {
	DocID string `json:"doc_id"`
	File  string `json:"file"`
	Text  string `json:"text"`
}

// Index holds the bleve index over the local document directory.
type Index struct {
	bleve bleve.Index
	meta  map[string]DocChunk
	mu    sync.RWMutex
}

// NewIndex opens or builds the document index. With an empty IndexPath the
// index lives in memory and is rebuilt from DataDir on startup.
func NewIndex(cfg config.DocumentsConfig) (*Index, error) {
	var (
		index bleve.Index
		err   error
	)
	if cfg.IndexPath != "" {
		index, err = bleve.Open(cfg.IndexPath)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			index, err = bleve.New(cfg.IndexPath, bleve.NewIndexMapping())
		}
	} else {
		index, err = bleve.NewMemOnly(bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("document index open failed: %w", err)
	}

	idx := &Index{bleve: index, meta: make(map[string]DocChunk)}
	if cfg.DataDir != "" {
		if err := idx.ingestDir(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *Index) ingestDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, text := range chunkText(string(data)) {
			chunk := DocChunk{DocID: uuid.NewString(), File: filepath.Base(path), Text: text}
			if err := idx.AddChunk(chunk); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddChunk indexes one chunk.
func (idx *Index) AddChunk(chunk DocChunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.meta[chunk.DocID] = chunk
	return idx.bleve.Index(chunk.DocID, chunk)
}

// Search runs a BM25 query and returns the top k chunks.
func (idx *Index) Search(q string, k int) ([]DocChunk, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := idx.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []DocChunk
	for _, hit := range res.Hits {
		if chunk, ok := idx.meta[hit.ID]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

// Close releases the underlying index.
func (idx *Index) Close() error { return idx.bleve.Close() }

func chunkText(s string) []string {
	s = strings.TrimSpace(s)
	var chunks []string
	for len(s) > chunkSize {
		cut := strings.LastIndexByte(s[:chunkSize], '\n')
		if cut < chunkSize/2 {
			cut = chunkSize
		}
		chunks = append(chunks, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// New returns the local document search tool over an already-built index.
func New(idx *Index, topK int) tools.Tool {
	if topK <= 0 {
		topK = 4
	}
	return tools.Tool{
		Name:        "documents",
		Description: "Search the user's local documents and return matching passages.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			hits, err := idx.Search(query, topK)
			if err != nil {
				return nil, fmt.Errorf("document search failed: %w", err)
			}
			if len(hits) == 0 {
				return map[string]any{"error": fmt.Sprintf("no document passages match %q", query)}, nil
			}
			passages := make([]map[string]any, 0, len(hits))
			for _, h := range hits {
				passages = append(passages, map[string]any{"file": h.File, "text": h.Text})
			}
			return map[string]any{"passages": passages}, nil
		},
	}
}
