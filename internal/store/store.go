// Package store persists normalized opportunities and the append-only
// refresh log.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/model"
)

// Store wraps the database connection behind the operations the orchestrator
// and the read paths need. The composite unique index on
// (provider, asset, chain) is the sole concurrency-correctness mechanism for
// interleaved writes.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database: DATABASE_URL selects postgres,
// otherwise the sqlite file at DatabasePath is used.
func Open(cfg config.Config) (*Store, error) {
	var dialector gorm.Dialector
	if cfg.DatabaseURL != "" {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabasePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenMemory creates an in-memory sqlite store with the schema migrated.
// Used by tests.
func OpenMemory() (*Store, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	s := &Store{db: db}
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AutoMigrate creates or updates the schema for all models.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&model.Opportunity{}, &model.RefreshLogEntry{})
}

// Upsert inserts the opportunity or, when the (provider, asset, chain) key
// already exists, updates its mutable fields in place. The surface ID of an
// existing row is preserved.
func (s *Store) Upsert(ctx context.Context, o model.Opportunity) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.UpdatedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"}, {Name: "asset"}, {Name: "chain"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "apr", "category", "liquidity", "risk_score", "updated_at",
			}),
		}).
		Create(&o).Error
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity %s: %w", o.Key(), err)
	}
	return nil
}

// Filter narrows and orders an opportunity listing.
type Filter struct {
	Provider  string
	Chain     model.Chain
	Category  model.Category
	Liquidity model.Liquidity

	// MinAPR in basis points; nil means no bound.
	MinAPR *int

	// MaxRisk 1-10; nil means no bound.
	MaxRisk *int

	// SortBy is one of "apr", "risk", "updated"; Order "asc" or "desc".
	SortBy string
	Order  string

	Limit  int
	Offset int
}

// FindMany returns the filtered page of opportunities plus the total count
// matching the filter.
func (s *Store) FindMany(ctx context.Context, f Filter) ([]model.Opportunity, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Opportunity{})

	if f.Provider != "" {
		q = q.Where("provider = ?", f.Provider)
	}
	if f.Chain != "" {
		q = q.Where("chain = ?", f.Chain)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Liquidity != "" {
		q = q.Where("liquidity = ?", f.Liquidity)
	}
	if f.MinAPR != nil {
		q = q.Where("apr >= ?", *f.MinAPR)
	}
	if f.MaxRisk != nil {
		q = q.Where("risk_score <= ?", *f.MaxRisk)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count opportunities: %w", err)
	}

	q = q.Order(orderClause(f.SortBy, f.Order))
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []model.Opportunity
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list opportunities: %w", err)
	}
	return rows, total, nil
}

// orderClause translates the filter sort fields into SQL ordering. Sorting by
// risk inverts the direction so that "desc" means best-first, matching the
// APR sort.
func orderClause(sortBy, order string) string {
	if order != "asc" {
		order = "desc"
	}
	switch sortBy {
	case "risk":
		if order == "desc" {
			return "risk_score asc"
		}
		return "risk_score desc"
	case "updated":
		return "updated_at " + order
	default:
		return "apr " + order
	}
}

// FindByID returns the opportunity with the given surface ID, or nil when
// absent.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Opportunity, error) {
	var o model.Opportunity
	err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunity %s: %w", id, err)
	}
	return &o, nil
}

// AppendLog records one adapter's refresh outcome. Entries are never mutated
// or deleted afterwards.
func (s *Store) AppendLog(ctx context.Context, entry model.RefreshLogEntry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append refresh log for %s: %w", entry.Provider, err)
	}
	return nil
}

// RecentLogs returns the newest refresh log entries, most recent first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.RefreshLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []model.RefreshLogEntry
	err := s.db.WithContext(ctx).
		Order("fetched_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh logs: %w", err)
	}
	return logs, nil
}

// LastSuccessfulRefresh returns the timestamp of the newest success entry,
// or nil when no refresh has succeeded yet.
func (s *Store) LastSuccessfulRefresh(ctx context.Context) (*time.Time, error) {
	var entry model.RefreshLogEntry
	err := s.db.WithContext(ctx).
		Where("status = ?", model.RefreshStatusSuccess).
		Order("fetched_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last refresh: %w", err)
	}
	return &entry.FetchedAt, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
