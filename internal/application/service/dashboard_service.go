package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/expense-manager/internal/application/policy"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

const (
	recentExpenseCount = 5
	trendMonths        = 6
)

// DashboardService builds the landing page figures
type DashboardService interface {
	Get(ctx context.Context, p authz.Principal) (*Dashboard, error)
}

// Dashboard figures are organization-wide for members who can view team
// expenses and personal otherwise
type Dashboard struct {
	Scope          string            `json:"scope"`
	Total          int64             `json:"total"`
	Pending        int64             `json:"pending"`
	Approved       int64             `json:"approved"`
	Rejected       int64             `json:"rejected"`
	Reimbursed     int64             `json:"reimbursed"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	ThisMonth      decimal.Decimal   `json:"this_month"`
	LastMonth      decimal.Decimal   `json:"last_month"`
	Recent         []*entity.Expense `json:"recent"`
	ByCategory     []Bucket          `json:"by_category"`
	MonthlyTrend   []Bucket          `json:"monthly_trend"`
	UnreadMessages int64             `json:"unread_messages"`
}

type dashboardServiceImpl struct {
	expenses      port.ExpenseRepository
	notifications port.NotificationRepository
	clock         port.Clock
	location      *time.Location
	logger        Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	expenses port.ExpenseRepository,
	notifications port.NotificationRepository,
	clock port.Clock,
	loc *time.Location,
	logger Logger,
) DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &dashboardServiceImpl{
		expenses:      expenses,
		notifications: notifications,
		clock:         clockOrSystem(clock),
		location:      loc,
		logger:        logger,
	}
}

// Get runs the dashboard queries concurrently
func (s *dashboardServiceImpl) Get(ctx context.Context, p authz.Principal) (*Dashboard, error) {
	if err := authz.Authorize(p, authz.ViewDashboard); err != nil {
		return nil, err
	}

	orgID := p.OrganizationID()
	userID := ""
	d := &Dashboard{Scope: "organization"}
	if !p.Allows(authz.ViewAllExpenses) {
		userID = p.UserID()
		d.Scope = "personal"
	}

	thisFrom, thisTo := policy.MonthBounds(s.clock.Now(), s.location)
	lastFrom := thisFrom.AddDate(0, -1, 0)
	trendFrom := thisFrom.AddDate(0, -(trendMonths - 1), 0)

	g, ctx := errgroup.WithContext(ctx)

	sum := func(dst *decimal.Decimal, from, to time.Time) func() error {
		return func() error {
			total, err := s.expenses.SumAmounts(ctx, port.SpendQuery{
				OrganizationID: orgID,
				UserID:         userID,
				From:           from,
				To:             to,
			})
			if err != nil {
				return err
			}
			*dst = total
			return nil
		}
	}

	var trend []*entity.Expense

	g.Go(func() error {
		counts, err := s.expenses.CountByStatus(ctx, orgID, userID)
		if err != nil {
			return err
		}
		d.Pending = counts[entity.ExpenseStatusPending]
		d.Approved = counts[entity.ExpenseStatusApproved]
		d.Rejected = counts[entity.ExpenseStatusRejected]
		d.Reimbursed = counts[entity.ExpenseStatusReimbursed]
		d.Total = d.Pending + d.Approved + d.Rejected + d.Reimbursed
		return nil
	})
	g.Go(sum(&d.TotalAmount, time.Time{}, time.Time{}))
	g.Go(sum(&d.ThisMonth, thisFrom.UTC(), thisTo.UTC()))
	g.Go(sum(&d.LastMonth, lastFrom.UTC(), thisFrom.UTC()))
	g.Go(func() error {
		recent, err := s.expenses.List(ctx, port.ExpenseFilter{
			OrganizationID: orgID,
			UserID:         userID,
			Limit:          recentExpenseCount,
		})
		d.Recent = recent
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = s.expenses.List(ctx, port.ExpenseFilter{
			OrganizationID: orgID,
			UserID:         userID,
			CreatedFrom:    trendFrom,
			CreatedTo:      thisTo,
			Limit:          reportRowLimit,
		})
		return err
	})
	g.Go(func() error {
		unread, err := s.notifications.CountUnread(ctx, orgID, p.UserID())
		d.UnreadMessages = unread
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build dashboard", "error", err, "organization_id", orgID)
		return nil, err
	}

	summary := summarize(trend, s.location)
	d.ByCategory = summary.ByCategory
	d.MonthlyTrend = fillMonths(summary.ByMonth, trendFrom, trendMonths)
	return d, nil
}

// fillMonths returns one bucket per month starting at from, with zero totals
// for months without expenses
func fillMonths(buckets []Bucket, from time.Time, months int) []Bucket {
	byKey := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b
	}

	out := make([]Bucket, 0, months)
	for i := 0; i < months; i++ {
		key := from.AddDate(0, i, 0).Format("2006-01")
		b, ok := byKey[key]
		if !ok {
			b = Bucket{Key: key, Total: decimal.Zero}
		}
		out = append(out, b)
	}
	return out
}
