package ledger

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"main/internal/exec"
	"main/internal/schema"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for the PostgreSQL ledger.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
}

// OrderRow is the persisted order record.
type OrderRow struct {
	ID         string `gorm:"primaryKey"`
	StrategyID string `gorm:"index"`
	Symbol     string `gorm:"index"`
	Side       string
	Status     string
	Reason     string
	Qty        float64
	Price      float64
	Slippage   float64
	FilledAt   time.Time
}

func (OrderRow) TableName() string { return "sim_orders" }

// TradeRow is the persisted closed-trade record.
type TradeRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	StrategyID  string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Qty         float64
	EntryPrice  float64
	ExitPrice   float64
	RealizedPnL float64
	EnteredAt   time.Time
	ExitedAt    time.Time
}

func (TradeRow) TableName() string { return "sim_trades" }

// SnapshotRow is the persisted position snapshot.
type SnapshotRow struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	Timestamp int64
	Capital   float64
	Positions []byte `gorm:"type:jsonb"`
}

func (SnapshotRow) TableName() string { return "sim_snapshots" }

// Postgres writes ledger rows to PostgreSQL. Every write is
// best-effort: failures are logged and discarded at this call site.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres connects and migrates the ledger tables.
func NewPostgres(opt Option) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(opt.dsn()), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.AutoMigrate(&OrderRow{}, &TradeRow{}, &SnapshotRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate ledger tables")
	}
	return &Postgres{db: db}, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) RecordOrder(o schema.Order) {
	row := OrderRow{
		ID:         o.ID,
		StrategyID: o.StrategyID,
		Symbol:     o.Symbol,
		Side:       o.Side.String(),
		Status:     o.Status.String(),
		Reason:     o.Reason,
		Qty:        o.FilledQty,
		Price:      o.FilledPrice,
		Slippage:   o.SlippageApplied,
		FilledAt:   o.FillTime,
	}
	if err := p.db.Create(&row).Error; err != nil {
		logs.Warnf("ledger: order write discarded: %+v", err)
	}
}

func (p *Postgres) RecordTrade(t exec.Trade) {
	row := TradeRow{
		StrategyID:  t.StrategyID,
		Symbol:      t.Symbol,
		Qty:         t.Qty,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		RealizedPnL: t.RealizedPnL,
		EnteredAt:   t.EntryTime,
		ExitedAt:    t.ExitTime,
	}
	if err := p.db.Create(&row).Error; err != nil {
		logs.Warnf("ledger: trade write discarded: %+v", err)
	}
}

func (p *Postgres) RecordSnapshot(s exec.Snapshot) {
	positions, err := json.Marshal(s.Positions)
	if err != nil {
		logs.Warnf("ledger: snapshot encode discarded: %+v", err)
		return
	}
	row := SnapshotRow{
		Timestamp: s.Timestamp,
		Capital:   s.Capital,
		Positions: positions,
	}
	if err := p.db.Create(&row).Error; err != nil {
		logs.Warnf("ledger: snapshot write discarded: %+v", err)
	}
}

func (opt Option) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()
	return u.String()
}
