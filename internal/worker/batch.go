package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Processor runs one document through extraction
type Processor interface {
	Process(ctx context.Context, doc model.Document) (*model.RunSummary, error)
}

// DocumentJob processes one document of a batch
type DocumentJob struct {
	Index     int
	Document  model.Document
	Processor Processor
	Limiter   *Limiter // nil disables throttling
}

// Execute processes the document, waiting on the limiter first when the
// document still has to be fetched
func (j *DocumentJob) Execute(ctx context.Context) Result {
	res := &DocumentResult{Index: j.Index, Document: j.Document}

	if j.Limiter != nil && j.Document.Text == "" && j.Document.URL != "" {
		if err := j.Limiter.Wait(ctx, j.Document.URL); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	res.Summary, res.Error = j.Processor.Process(ctx, j.Document)
	return res
}

// DocumentResult is the outcome for one document of a batch
type DocumentResult struct {
	Index    int
	Document model.Document
	Summary  *model.RunSummary
	Error    error
}

// GetError returns the document-level failure, if any
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor processes many documents concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. rps <= 0 disables
// per-host throttling of fetched documents.
func NewBatchProcessor(p Processor, concurrency int, rps float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		processor:   p,
		concurrency: concurrency,
	}
	if rps > 0 {
		b.limiter = NewLimiter(rps, burst)
	}
	return b
}

// ProcessDocuments processes docs and returns one result per document in
// input order. Documents not started before ctx is cancelled are reported
// with the context error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []model.Document) []*DocumentResult {
	if len(docs) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, doc := range docs {
		if !pool.Submit(&DocumentJob{Index: i, Document: doc, Processor: b.processor, Limiter: b.limiter}) {
			break
		}
	}

	out := make([]*DocumentResult, len(docs))
	for _, r := range pool.Wait() {
		dr := r.(*DocumentResult)
		out[dr.Index] = dr
	}
	for i := range out {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &DocumentResult{Index: i, Document: docs[i], Error: err}
		}
	}
	return out
}

// ProcessFile reads documents from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	docs, err := ReadDocumentsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return b.ProcessDocuments(ctx, docs), nil
}

// ReadDocumentsFromFile reads one document per line. A line is either a
// JSON document object or a bare URL. Blank lines and lines starting with
// '#' are skipped, and repeated lines are read once.
func ReadDocumentsFromFile(filePath string) ([]model.Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var docs []model.Document
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true

		if !strings.HasPrefix(line, "{") {
			docs = append(docs, model.Document{URL: line})
			continue
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		docs = append(docs, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return docs, nil
}
