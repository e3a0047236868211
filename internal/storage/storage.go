package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/metrics"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

func newGormLogger(log *logrus.Logger) logger.Interface {
	return logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate runs GORM auto-migration (for development only)
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&AppState{},
		&MarketAnalysis{},
		&WalletClassification{},
		&AlphaSignal{},
		&ConsensusSnapshot{},
		&TraderScore{},
	)
}

// GetState retrieves a state value by key
func (db *DB) GetState(ctx context.Context, key string) (value string, err error) {
	defer observe("get_state", time.Now(), &err)

	var state AppState
	result := db.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a state value
func (db *DB) SetState(ctx context.Context, key, value string) (err error) {
	defer observe("set_state", time.Now(), &err)

	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	return db.conn.WithContext(ctx).Save(&state).Error
}

// SaveMarketAnalysis stores a scan and its wallet verdicts in one
// transaction. A scan already stored under the same signal hash is skipped.
func (db *DB) SaveMarketAnalysis(ctx context.Context, analysis *MarketAnalysis, wallets []WalletClassification) (err error) {
	defer observe("save_market_analysis", time.Now(), &err)

	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(analysis)
		if res.Error != nil {
			return fmt.Errorf("insert analysis: %w", res.Error)
		}
		if res.RowsAffected == 0 || len(wallets) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(wallets, 100).Error; err != nil {
			return fmt.Errorf("insert classifications: %w", err)
		}
		return nil
	})
}

// LatestMarketAnalysis returns the most recent scan of a market, or nil
func (db *DB) LatestMarketAnalysis(ctx context.Context, conditionID string) (a *MarketAnalysis, err error) {
	defer observe("latest_market_analysis", time.Now(), &err)

	var analysis MarketAnalysis
	result := db.conn.WithContext(ctx).
		Where("condition_id = ?", conditionID).
		Order("created_ts DESC").
		First(&analysis)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &analysis, nil
}

// WalletHistory returns a wallet's classifications, newest first
func (db *DB) WalletHistory(ctx context.Context, wallet string, limit int) (rows []WalletClassification, err error) {
	defer observe("wallet_history", time.Now(), &err)

	err = db.conn.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		Order("created_ts DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SaveConsensusSnapshot stores one consensus pass
func (db *DB) SaveConsensusSnapshot(ctx context.Context, snap *ConsensusSnapshot) (err error) {
	defer observe("save_consensus_snapshot", time.Now(), &err)

	return db.conn.WithContext(ctx).Create(snap).Error
}

// LatestConsensusSnapshot returns the newest snapshot created at or after
// notBeforeTS, or nil when the cache is stale
func (db *DB) LatestConsensusSnapshot(ctx context.Context, notBeforeTS int64) (s *ConsensusSnapshot, err error) {
	defer observe("latest_consensus_snapshot", time.Now(), &err)

	var snap ConsensusSnapshot
	result := db.conn.WithContext(ctx).
		Where("created_ts >= ?", notBeforeTS).
		Order("created_ts DESC").
		First(&snap)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &snap, nil
}

// SaveAlphaSignal stores a detected signal and fills in its ID
func (db *DB) SaveAlphaSignal(ctx context.Context, signal *AlphaSignal) (err error) {
	defer observe("save_alpha_signal", time.Now(), &err)

	return db.conn.WithContext(ctx).Create(signal).Error
}

// LastAlertedSignal returns the most recent alerted signal of a kind on a
// market, or nil
func (db *DB) LastAlertedSignal(ctx context.Context, kind, conditionID string) (s *AlphaSignal, err error) {
	defer observe("last_alerted_signal", time.Now(), &err)

	var signal AlphaSignal
	result := db.conn.WithContext(ctx).
		Where("kind = ? AND condition_id = ? AND alerted = ?", kind, conditionID, true).
		Order("created_ts DESC").
		First(&signal)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &signal, nil
}

// MarkAlphaAlerted records that an alert went out for a signal
func (db *DB) MarkAlphaAlerted(ctx context.Context, id int64) (err error) {
	defer observe("mark_alpha_alerted", time.Now(), &err)

	return db.conn.WithContext(ctx).
		Model(&AlphaSignal{}).
		Where("id = ?", id).
		Update("alerted", true).Error
}

// UpsertTraderScores inserts or updates trader ratings
func (db *DB) UpsertTraderScores(ctx context.Context, scores []TraderScore) (err error) {
	defer observe("upsert_trader_scores", time.Now(), &err)

	if len(scores) == 0 {
		return nil
	}
	return db.conn.WithContext(ctx).Save(&scores).Error
}

// TopTraderScores returns the highest rated traders
func (db *DB) TopTraderScores(ctx context.Context, limit int) (rows []TraderScore, err error) {
	defer observe("top_trader_scores", time.Now(), &err)

	err = db.conn.WithContext(ctx).
		Order("score DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery(operation, time.Since(start), *err)
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
