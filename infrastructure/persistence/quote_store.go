// Package persistence provides GORM-backed stores.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/smarthealth/quotekit/internal/database"
)

// QuoteModel is the GORM model for a served quote.
type QuoteModel struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt    time.Time `gorm:"index"`
	Age          *int
	Location     string
	SumInsured   *int
	PaymentMode  string
	TotalPayable float64
	ExampleCount int
	Degraded     bool
	Reconciled   bool
}

// TableName sets the table name for QuoteModel.
func (QuoteModel) TableName() string { return "quotes" }

// QuoteStore records served quotes for auditing.
type QuoteStore struct {
	db *database.Database
}

// NewQuoteStore creates a QuoteStore and migrates its table.
func NewQuoteStore(ctx context.Context, db *database.Database) (*QuoteStore, error) {
	if err := db.Session(ctx).AutoMigrate(&QuoteModel{}); err != nil {
		return nil, fmt.Errorf("migrate quotes table: %w", err)
	}
	return &QuoteStore{db: db}, nil
}

// Record persists one served quote.
func (s *QuoteStore) Record(ctx context.Context, q QuoteModel) error {
	q.ID = 0
	q.CreatedAt = time.Now()
	if result := s.db.Session(ctx).Create(&q); result.Error != nil {
		return fmt.Errorf("record quote: %w", result.Error)
	}
	return nil
}

// Recent returns the most recently served quotes, newest first.
func (s *QuoteStore) Recent(ctx context.Context, limit int) ([]QuoteModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var quotes []QuoteModel
	result := s.db.Session(ctx).Order("created_at DESC").Limit(limit).Find(&quotes)
	if result.Error != nil {
		return nil, fmt.Errorf("list quotes: %w", result.Error)
	}
	return quotes, nil
}
