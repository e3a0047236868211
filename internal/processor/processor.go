// Package processor wires the market data clients, the scoring pipeline,
// persistence and alerting into the two operations the service runs: a deep
// scan of one market and the smart-money consensus scan.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/alerts"
	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/domain"
	"github.com/liamashdown/agentlens/internal/intel"
	"github.com/liamashdown/agentlens/internal/polymarket/dataapi"
	"github.com/liamashdown/agentlens/internal/polymarket/gammaapi"
	"github.com/liamashdown/agentlens/internal/probability"
	"github.com/liamashdown/agentlens/internal/storage"
)

const (
	marketTradeLimit    = 500
	closedPositionLimit = 200
	yieldScanLimit      = 200
	alertCooldown       = 6 * time.Hour
)

// Store is the persistence the processor needs
type Store interface {
	SaveMarketAnalysis(ctx context.Context, analysis *storage.MarketAnalysis, wallets []storage.WalletClassification) error
	SaveConsensusSnapshot(ctx context.Context, snap *storage.ConsensusSnapshot) error
	LatestConsensusSnapshot(ctx context.Context, notBeforeTS int64) (*storage.ConsensusSnapshot, error)
	SaveAlphaSignal(ctx context.Context, signal *storage.AlphaSignal) error
	LastAlertedSignal(ctx context.Context, kind, conditionID string) (*storage.AlphaSignal, error)
	MarkAlphaAlerted(ctx context.Context, id int64) error
	UpsertTraderScores(ctx context.Context, scores []storage.TraderScore) error
}

// DataProvider is the subset of the Data API the processor reads
type DataProvider interface {
	GetHolders(ctx context.Context, conditionID string, limit int) ([]dataapi.HolderGroup, error)
	GetLeaderboard(ctx context.Context, limit int) ([]dataapi.LeaderboardEntry, error)
	GetPositions(ctx context.Context, wallet string) ([]dataapi.Position, error)
	GetClosedPositions(ctx context.Context, wallet string, limit int) ([]dataapi.ClosedPosition, error)
	GetMarketTrades(ctx context.Context, conditionID string, limit int) ([]dataapi.Trade, error)
	GetOpenInterest(ctx context.Context, conditionIDs []string) (map[string]float64, error)
}

// MarketProvider is the subset of the Gamma API the processor reads
type MarketProvider interface {
	GetMarketByConditionID(ctx context.Context, conditionID string) (*gammaapi.Market, error)
	GetMarketBySlug(ctx context.Context, slug string) (*gammaapi.Market, error)
	ListActiveMarkets(ctx context.Context, limit int) ([]gammaapi.Market, error)
}

// MarketAnalyzer runs the holder deep scan
type MarketAnalyzer interface {
	Analyze(ctx context.Context, market domain.Market, holders []domain.Holder, now time.Time) (*intel.DeepAnalysisResult, error)
}

// Processor orchestrates market scans
type Processor struct {
	cfg         *config.Config
	store       Store
	data        DataProvider
	markets     MarketProvider
	analyzer    MarketAnalyzer
	engine      *probability.Engine
	alertSender alerts.Sender
	workerPool  chan struct{}
	log         *logrus.Logger
	now         func() time.Time
	scanMu      sync.Mutex // serializes smart-money scans
}

// New creates a new processor
func New(
	cfg *config.Config,
	store Store,
	data DataProvider,
	markets MarketProvider,
	analyzer MarketAnalyzer,
	alertSender alerts.Sender,
	log *logrus.Logger,
) *Processor {
	workers := cfg.ScanBatchSize
	if workers <= 0 {
		workers = intel.DefaultBatchSize
	}
	workerPool := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		workerPool <- struct{}{}
	}

	engine := probability.NewEngine(probability.Config{
		MaxAgentAdjustment: cfg.MaxAgentAdjustment,
		ImpactThresholdPct: cfg.ImpactThresholdPct,
		NeutralBand:        cfg.NeutralBand,
		KellyFraction:      cfg.KellyFraction,
	})

	return &Processor{
		cfg:         cfg,
		store:       store,
		data:        data,
		markets:     markets,
		analyzer:    analyzer,
		engine:      engine,
		alertSender: alertSender,
		workerPool:  workerPool,
		log:         log,
		now:         time.Now,
	}
}

// forEach runs fn for indexes 0..n-1 on the worker pool and waits for all
func (p *Processor) forEach(ctx context.Context, n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case <-p.workerPool:
			case <-ctx.Done():
				return
			}
			defer func() { p.workerPool <- struct{}{} }()

			fn(i)
		}(i)
	}
	wg.Wait()
}
