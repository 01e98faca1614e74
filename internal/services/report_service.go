package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/cache"
	"finboard/internal/report"
	"finboard/internal/report/xlsx"
)

// SheetPublisher receives finished documents. *google.Publisher implements it.
type SheetPublisher interface {
	Publish(ctx context.Context, doc *report.Document) error
}

// ErrSheetsDisabled is returned by PublishToSheets without a publisher.
var ErrSheetsDisabled = errors.New("google sheets publishing not configured")

// Rendered is an encoded workbook.
type Rendered struct {
	Filename   string
	Data       []byte
	Profitable bool
	Seq        int64
}

type encoded struct {
	data       []byte
	profitable bool
}

type ReportService struct {
	engine    *aggregate.Engine
	loc       *time.Location
	now       func() time.Time
	cache     *cache.LRU[int64, encoded]
	publisher SheetPublisher
}

type ReportOptions struct {
	Location *time.Location // UTC when nil
	// CacheSize bounds the number of encoded workbooks kept. Zero disables caching.
	CacheSize int
	CacheTTL  time.Duration // five minutes when zero
	Publisher SheetPublisher
}

// NewReportService builds reports from engine snapshots.
func NewReportService(engine *aggregate.Engine, opts ReportOptions) *ReportService {
	s := &ReportService{
		engine:    engine,
		loc:       opts.Location,
		now:       time.Now,
		publisher: opts.Publisher,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if opts.CacheSize > 0 {
		if opts.CacheTTL <= 0 {
			opts.CacheTTL = 5 * time.Minute
		}
		s.cache = cache.NewLRU[int64, encoded](opts.CacheSize, opts.CacheTTL)
	}
	return s
}

// Cache exposes the workbook cache for periodic sweeping. It is nil when
// caching is disabled.
func (s *ReportService) Cache() cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// SheetsEnabled reports whether PublishToSheets has a destination.
func (s *ReportService) SheetsEnabled() bool {
	return s.publisher != nil
}

// Build generates the document from the current snapshot.
func (s *ReportService) Build(ctx context.Context) (*report.Document, int64, error) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		return nil, 0, fmt.Errorf("read snapshot: %w", err)
	}

	doc, err := report.Generate(report.Input{
		Transactions: snap.Transactions,
		TotalIncome:  snap.TotalIncome,
		TotalExpense: snap.TotalExpense,
		GeneratedAt:  s.now(),
	}, report.Options{Location: s.loc})
	if err != nil {
		return nil, 0, err
	}

	slog.DebugContext(ctx, "Report generated",
		"seq", snap.Seq,
		"transactions", len(snap.Transactions),
		"profitable", doc.Profitable)
	return doc, snap.Seq, nil
}

// Render returns the workbook bytes. Workbooks are cached per snapshot
// sequence; only the filename changes between cached renders.
func (s *ReportService) Render(ctx context.Context) (Rendered, error) {
	now := s.now()
	if s.cache != nil {
		if seq := s.engine.Seq(); seq >= 0 {
			if e, ok := s.cache.Get(seq); ok {
				return Rendered{Filename: report.Filename(now, s.loc), Data: e.data, Profitable: e.profitable, Seq: seq}, nil
			}
		}
	}

	doc, seq, err := s.Build(ctx)
	if err != nil {
		return Rendered{}, err
	}
	data, err := xlsx.Bytes(doc)
	if err != nil {
		return Rendered{}, err
	}
	if s.cache != nil {
		s.cache.Set(seq, encoded{data: data, profitable: doc.Profitable})
	}
	return Rendered{Filename: doc.Filename, Data: data, Profitable: doc.Profitable, Seq: seq}, nil
}

// Export writes the workbook to dir and returns its path.
func (s *ReportService) Export(ctx context.Context, dir string) (string, error) {
	doc, _, err := s.Build(ctx)
	if err != nil {
		return "", err
	}
	path, err := xlsx.WriteFile(dir, doc)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Report exported", "path", path, "profitable", doc.Profitable)
	return path, nil
}

// PublishToSheets pushes the current report to Google Sheets.
func (s *ReportService) PublishToSheets(ctx context.Context) error {
	if s.publisher == nil {
		return ErrSheetsDisabled
	}
	doc, seq, err := s.Build(ctx)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, doc); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	slog.InfoContext(ctx, "Report published", "seq", seq)
	return nil
}
