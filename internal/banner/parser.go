package banner

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"github.com/hyperjump/crosstab/internal/workbook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Parser turns banner workbooks into ParseResults. A Parser holds no
// per-workbook state and is safe for concurrent use.
type Parser struct {
	heuristics Heuristics
	workers    int
	logger     *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets a logger for per-sheet debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithWorkers sets how many sheets are parsed concurrently. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Parser) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithHeuristics replaces the recognition rules. Zero fields keep their defaults.
func WithHeuristics(h Heuristics) Option {
	return func(p *Parser) { p.heuristics = h.withDefaults() }
}

// NewParser returns a Parser using DefaultHeuristics and a single worker.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		heuristics: DefaultHeuristics(),
		workers:    1,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// ParseFile opens the workbook at path and parses every sheet.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, &ParseError{Op: "open", Err: err}
	}
	defer wb.Close()
	return p.ParseWorkbook(ctx, wb)
}

// ParseReader parses a workbook read from r; name becomes the result's Filename.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, name string) (*ParseResult, error) {
	wb, err := workbook.OpenReader(r, name)
	if err != nil {
		return nil, &ParseError{Op: "open", Err: err}
	}
	defer wb.Close()
	return p.ParseWorkbook(ctx, wb)
}

// ParseWorkbook parses every sheet of wb. Sheets are parsed independently
// and the result lists banners in workbook sheet order.
func (p *Parser) ParseWorkbook(ctx context.Context, wb *workbook.Workbook) (*ParseResult, error) {
	names := wb.SheetNames()
	records := make([]*BannerRecord, len(names))

	// The workbook reader is not shared across goroutines; only parsing is.
	var readMu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			readMu.Lock()
			grid, err := wb.Grid(name)
			readMu.Unlock()
			if err != nil {
				return &ParseError{Sheet: name, Op: "read sheet", Err: err}
			}
			records[i] = p.ParseSheet(name, grid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ParseResult{
		Filename:   filepath.Base(wb.Name()),
		SheetNames: append([]string{}, names...),
	}
	for _, rec := range records {
		result.Banners.add(rec)
	}
	if first := result.Banners.First(); first != nil {
		result.TotalQuestions = first.TotalQuestions
	}
	p.logger.Debug("workbook parsed",
		zap.String("file", result.Filename),
		zap.Int("sheets", len(names)),
		zap.Int("questions", result.TotalQuestions))
	return result, nil
}

// ParseSheet parses one sheet grid into a BannerRecord.
func (p *Parser) ParseSheet(name string, grid workbook.Grid) *BannerRecord {
	h := p.heuristics
	demos, categoryRow := h.LocateDemographics(grid)
	labels, labelRow := h.LocateColumnLabels(grid)

	stubs := h.LocateQuestions(grid)
	questions := make([]QuestionRecord, 0, len(stubs)+1)
	for _, q := range stubs {
		questions = append(questions, h.ExtractResponses(grid, q, demos))
	}
	if idx, ok := h.ExtractIndices(grid, demos); ok {
		questions = append(questions, idx)
	}

	rec := assemble(name, demos, labels, questions)
	p.logger.Debug("sheet parsed",
		zap.String("sheet", name),
		zap.Int("rows", grid.Rows()),
		zap.Int("category_row", categoryRow),
		zap.Int("label_row", labelRow),
		zap.Int("demographics", len(demos)),
		zap.Int("questions", rec.TotalQuestions))
	return rec
}
