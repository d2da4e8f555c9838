package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/price-relay/internal/model"
)

// ErrNoHoldings is returned when the user holds nothing to analyze.
var ErrNoHoldings = errors.New("user not found or no holdings")

// DefaultLookback is the history window used for analytics.
const DefaultLookback = 365 * 24 * time.Hour

// maxConcurrentFetches bounds parallel history requests per report.
const maxConcurrentFetches = 4

// HoldingsLister lists a user's holdings.
type HoldingsLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Holding, error)
}

// CloseFetcher fetches a symbol's daily close history.
type CloseFetcher interface {
	GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyClose, error)
}

// Report is the analytics payload for one user.
type Report struct {
	SharpeRatio float64 `json:"sharpe_ratio"`
	ValueAtRisk string  `json:"value_at_risk"`
	MaxDrawdown string  `json:"max_drawdown"`
	Symbols     int     `json:"symbols"`
	Days        int     `json:"days"`
}

// Service builds analytics reports.
type Service struct {
	holdings HoldingsLister
	closes   CloseFetcher
	logger   *slog.Logger
	lookback time.Duration
	now      func() time.Time
}

// NewService creates a Service.
func NewService(holdings HoldingsLister, closes CloseFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		holdings: holdings,
		closes:   closes,
		logger:   logger.With("component", "portfolio"),
		lookback: DefaultLookback,
		now:      time.Now,
	}
}

// Analytics computes the report for userID.
func (s *Service) Analytics(ctx context.Context, userID uuid.UUID) (Report, error) {
	held, err := s.holdings.List(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("list holdings: %w", err)
	}
	if len(held) == 0 {
		return Report{}, ErrNoHoldings
	}

	// Several lots of one symbol share a single history request.
	quantities := make(map[string]float64)
	for _, h := range held {
		quantities[h.Symbol] += h.Quantity
	}
	symbols := make([]string, 0, len(quantities))
	for sym := range quantities {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	to := s.now().UTC()
	from := to.Add(-s.lookback)

	positions := make([]Position, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, sym := range symbols {
		g.Go(func() error {
			closes, err := s.closes.GetDailyCloses(gctx, sym, from, to)
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}
			positions[i] = Position{Symbol: sym, Quantity: quantities[sym], Closes: closes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("fetch history failed", "user_id", userID, "error", err)
		return Report{}, err
	}

	series := MergeValues(positions)
	returns := DailyReturns(series)

	report := Report{
		SharpeRatio: SharpeRatio(returns),
		ValueAtRisk: FormatPercent(ValueAtRisk(returns)),
		MaxDrawdown: FormatPercent(MaxDrawdown(series)),
		Symbols:     len(symbols),
		Days:        len(series),
	}
	s.logger.Debug("analytics computed",
		"user_id", userID,
		"symbols", report.Symbols,
		"days", report.Days,
	)
	return report, nil
}
