package intel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/metrics"
	"github.com/liamashdown/agentlens/internal/scorer"
)

const (
	DefaultScanLimit = 15
	DefaultBatchSize = 5
)

// ActivitySource fetches one wallet's history from the market data provider
type ActivitySource interface {
	FetchActivity(ctx context.Context, address string) (*domain.WalletActivity, error)
}

// Options tunes how many holders are scanned and how many at once
type Options struct {
	ScanLimit int
	BatchSize int
}

// Analyzer runs the deep scan of a market's top holders
type Analyzer struct {
	source     ActivitySource
	scorer     *scorer.Scorer
	limit      int
	workerPool chan struct{}
	log        *logrus.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(source ActivitySource, sc *scorer.Scorer, opts Options, log *logrus.Logger) *Analyzer {
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = DefaultScanLimit
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	workerPool := make(chan struct{}, opts.BatchSize)
	for i := 0; i < opts.BatchSize; i++ {
		workerPool <- struct{}{}
	}
	return &Analyzer{
		source:     source,
		scorer:     sc,
		limit:      opts.ScanLimit,
		workerPool: workerPool,
		log:        log,
	}
}

// Analyze scans the largest holders of a market and aggregates the results.
// A wallet whose activity cannot be fetched is skipped; the rest of the batch
// still completes. Zero holders yields ErrMarketNotFound.
func (a *Analyzer) Analyze(ctx context.Context, market domain.Market, holders []domain.Holder, now time.Time) (*DeepAnalysisResult, error) {
	if len(holders) == 0 {
		metrics.RecordMarketAnalysis("not_found")
		return nil, ErrMarketNotFound
	}

	top := topHolders(holders, a.limit)
	results := make([]*scorer.Result, len(top))

	var wg sync.WaitGroup
	for i, h := range top {
		wg.Add(1)
		go func(i int, h domain.Holder) {
			defer wg.Done()

			// Acquire worker
			<-a.workerPool
			defer func() { a.workerPool <- struct{}{} }()

			res, err := a.scanWallet(ctx, market, h)
			if err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{
					"wallet":       scorer.ShortenAddress(h.Address),
					"condition_id": market.ConditionID,
				}).Warn("Skipping wallet: activity fetch failed")
				return
			}
			results[i] = res
		}(i, h)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		metrics.RecordMarketAnalysis("error")
		return nil, err
	}

	scanned := make([]scorer.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			scanned = append(scanned, *r)
		}
	}

	res := Aggregate(market.ConditionID, len(holders), scanned, now)
	metrics.RecordMarketAnalysis("success")

	a.log.WithFields(logrus.Fields{
		"condition_id": market.ConditionID,
		"scanned":      res.ScannedHolders,
		"failed":       len(top) - res.ScannedHolders,
		"agent_rate":   res.AgentRate,
		"smart_money":  res.SmartMoney.Direction,
		"red_flags":    len(res.RedFlags),
		"signal_hash":  res.SignalHash,
	}).Info("Market deep scan complete")

	return res, nil
}

func (a *Analyzer) scanWallet(ctx context.Context, market domain.Market, h domain.Holder) (*scorer.Result, error) {
	start := time.Now()
	activity, err := a.source.FetchActivity(ctx, h.Address)
	if err == nil && activity == nil {
		err = ErrNoActivity
	}
	metrics.RecordWalletScan(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if activity.Address == "" {
		activity.Address = h.Address
	}
	if activity.Pseudonym == "" {
		activity.Pseudonym = h.Pseudonym
	}

	res := a.scorer.Score(activity, scorer.Context{
		MarketID:     market.ConditionID,
		Side:         h.Outcome,
		PositionSize: h.Amount,
		MarketVolume: market.Volume,
	})
	metrics.RecordClassification(string(res.Tier), res.BotScore)
	return &res, nil
}

// topHolders returns the n largest holders by amount
func topHolders(holders []domain.Holder, n int) []domain.Holder {
	sorted := append([]domain.Holder(nil), holders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
