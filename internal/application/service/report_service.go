package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

// reportRowLimit bounds a single report query
const reportRowLimit = 100000

// ReportService aggregates and exports organization spending
type ReportService interface {
	Summary(ctx context.Context, p authz.Principal, req ReportRequest) (*ReportSummary, error)
	// Export writes the matching expenses in the named format
	Export(ctx context.Context, p authz.Principal, format string, req ReportRequest, w io.Writer) error
	// Writer returns the report writer for a format so callers can set
	// content headers before streaming
	Writer(format string) (port.ReportWriter, error)
}

// ReportRequest restricts a report to a creation date range; zero bounds are open
type ReportRequest struct {
	From time.Time
	To   time.Time
}

// Bucket is one group of a report
type Bucket struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ReportSummary totals spending by category and by month
type ReportSummary struct {
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	ByCategory []Bucket        `json:"by_category"`
	ByMonth    []Bucket        `json:"by_month"`
}

type reportServiceImpl struct {
	expenses port.ExpenseRepository
	writers  map[string]port.ReportWriter
	location *time.Location
	logger   Logger
}

// NewReportService creates a new ReportService. Month keys are computed in loc.
func NewReportService(expenses port.ExpenseRepository, writers []port.ReportWriter, loc *time.Location, logger Logger) ReportService {
	if loc == nil {
		loc = time.Local
	}
	byFormat := make(map[string]port.ReportWriter, len(writers))
	for _, w := range writers {
		byFormat[w.Format()] = w
	}
	return &reportServiceImpl{
		expenses: expenses,
		writers:  byFormat,
		location: loc,
		logger:   logger,
	}
}

func (s *reportServiceImpl) Summary(ctx context.Context, p authz.Principal, req ReportRequest) (*ReportSummary, error) {
	if err := authz.Authorize(p, authz.ViewReports); err != nil {
		return nil, err
	}

	expenses, err := s.load(ctx, p, req)
	if err != nil {
		return nil, err
	}
	return summarize(expenses, s.location), nil
}

func (s *reportServiceImpl) Writer(format string) (port.ReportWriter, error) {
	w, ok := s.writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, invalid("format", "unsupported export format %q", format)
	}
	return w, nil
}

func (s *reportServiceImpl) Export(ctx context.Context, p authz.Principal, format string, req ReportRequest, w io.Writer) error {
	if err := authz.Authorize(p, authz.ViewReports); err != nil {
		return err
	}
	writer, err := s.Writer(format)
	if err != nil {
		return err
	}

	expenses, err := s.load(ctx, p, req)
	if err != nil {
		return err
	}

	rows := make([]port.ExportRow, 0, len(expenses))
	for _, e := range expenses {
		employee := ""
		if e.User != nil {
			employee = e.User.DisplayName()
		}
		rows = append(rows, port.ExportRow{
			Title:    e.Title,
			Amount:   e.Amount,
			Currency: e.Currency,
			Status:   string(e.Status),
			Employee: employee,
			Category: e.CategoryName(),
			Store:    e.StoreName(),
			Date:     e.Date.In(s.location),
		})
	}

	if err := writer.Write(w, rows); err != nil {
		s.logger.Error("Failed to write export", "error", err, "format", writer.Format())
		return fmt.Errorf("write %s export: %w", writer.Format(), err)
	}

	s.logger.Info("Expenses exported", "organization_id", p.OrganizationID(), "format", writer.Format(), "rows", len(rows))
	return nil
}

func (s *reportServiceImpl) load(ctx context.Context, p authz.Principal, req ReportRequest) ([]*entity.Expense, error) {
	if !req.From.IsZero() && !req.To.IsZero() && !req.From.Before(req.To) {
		return nil, invalid("from", "must be before to")
	}
	return s.expenses.List(ctx, port.ExpenseFilter{
		OrganizationID: p.OrganizationID(),
		CreatedFrom:    req.From,
		CreatedTo:      req.To,
		Limit:          reportRowLimit,
	})
}

// summarize groups by category name and by createdAt month, both sorted by key
func summarize(expenses []*entity.Expense, loc *time.Location) *ReportSummary {
	summary := &ReportSummary{Total: decimal.Zero}
	byCategory := map[string]*Bucket{}
	byMonth := map[string]*Bucket{}

	add := func(groups map[string]*Bucket, key string, amount decimal.Decimal) {
		b, ok := groups[key]
		if !ok {
			b = &Bucket{Key: key, Total: decimal.Zero}
			groups[key] = b
		}
		b.Total = b.Total.Add(amount)
		b.Count++
	}

	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		summary.Count++
		add(byCategory, e.CategoryName(), e.Amount)
		add(byMonth, e.CreatedAt.In(loc).Format("2006-01"), e.Amount)
	}

	summary.ByCategory = sortedBuckets(byCategory)
	summary.ByMonth = sortedBuckets(byMonth)
	return summary
}

func sortedBuckets(groups map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(groups))
	for _, b := range groups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
