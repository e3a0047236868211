package storage

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppState stores application state for checkpointing
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// MarketAnalysis is one persisted deep scan of a market
type MarketAnalysis struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement"`
	ConditionID         string          `gorm:"size:128;not null;index"`
	MarketTitle         string          `gorm:"size:512"`
	SignalHash          string          `gorm:"size:32;not null;uniqueIndex"`
	TotalHolders        int             `gorm:"not null"`
	ScannedHolders      int             `gorm:"not null"`
	AgentRate           int             `gorm:"not null"`
	SmartMoneyDirection string          `gorm:"size:16;not null"`
	SmartMoneyPct       int             `gorm:"not null"`
	RedFlagCount        int             `gorm:"not null"`
	Recommendation      string          `gorm:"size:512"`
	YesPrice            decimal.Decimal `gorm:"type:decimal(10,6)"`
	FinalProbability    decimal.Decimal `gorm:"type:decimal(10,4)"`
	Body                string          `gorm:"type:mediumtext;not null"` // JSON report
	CreatedTS           int64           `gorm:"not null;index"`
}

func (MarketAnalysis) TableName() string {
	return "market_analyses"
}

// WalletClassification is one wallet's verdict within a market scan
type WalletClassification struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement"`
	WalletAddress      string          `gorm:"size:128;not null;index:idx_wallet_market"`
	ConditionID        string          `gorm:"size:128;not null;index:idx_wallet_market"`
	SignalHash         string          `gorm:"size:32;not null;index"`
	Side               string          `gorm:"size:16;not null"`
	PositionUSD        decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	BotScore           int             `gorm:"not null;index"`
	Tier               string          `gorm:"size:16;not null"`
	Strategy           string          `gorm:"size:32;not null"`
	StrategyConfidence int             `gorm:"not null"`
	GhostMode          bool            `gorm:"not null;default:false"`
	CreatedTS          int64           `gorm:"not null;index"`
}

func (WalletClassification) TableName() string {
	return "wallet_classifications"
}

// AlphaSignal is a detected opportunity and whether it was alerted
type AlphaSignal struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Kind        string `gorm:"size:32;not null;index:idx_kind_market"`
	ConditionID string `gorm:"size:128;not null;index:idx_kind_market"`
	MarketTitle string `gorm:"size:512"`
	Confidence  int    `gorm:"not null;index"`
	Traders     string `gorm:"type:text"` // comma-separated
	Action      string `gorm:"size:512"`
	Alerted     bool   `gorm:"not null;default:false"`
	CreatedTS   int64  `gorm:"not null;index"`
}

func (AlphaSignal) TableName() string {
	return "alpha_signals"
}

// ConsensusSnapshot caches one smart-money consensus pass
type ConsensusSnapshot struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	MarketCount  int             `gorm:"not null"`
	TraderCount  int             `gorm:"not null"`
	TotalCapital decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Body         string          `gorm:"type:mediumtext;not null"` // JSON report
	CreatedTS    int64           `gorm:"not null;index"`
}

func (ConsensusSnapshot) TableName() string {
	return "consensus_snapshots"
}

// TraderScore tracks the latest reliability rating of a trader
type TraderScore struct {
	WalletAddress string          `gorm:"primaryKey;size:128"`
	Name          string          `gorm:"size:255"`
	Rank          int             `gorm:"not null;default:0"`
	Score         int             `gorm:"not null;index"`
	Tier          string          `gorm:"size:16;not null"`
	WinRate       decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	PnLUSD        decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UpdatedTS     int64           `gorm:"not null;index"`
}

func (TraderScore) TableName() string {
	return "trader_scores"
}

// BeforeCreate hook for timestamps
func (a *AppState) BeforeCreate(tx *gorm.DB) error {
	if a.UpdatedTS == 0 {
		a.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (m *MarketAnalysis) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedTS == 0 {
		m.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (w *WalletClassification) BeforeCreate(tx *gorm.DB) error {
	if w.CreatedTS == 0 {
		w.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (a *AlphaSignal) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedTS == 0 {
		a.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (c *ConsensusSnapshot) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedTS == 0 {
		c.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (t *TraderScore) BeforeSave(tx *gorm.DB) error {
	if t.UpdatedTS == 0 {
		t.UpdatedTS = time.Now().Unix()
	}
	return nil
}
