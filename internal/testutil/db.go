// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"fulfillment/internal/database"
	"fulfillment/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps
// every query on the same in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// SeedProduct inserts a product and returns it.
func SeedProduct(t *testing.T, db *gorm.DB, sku, name string, reorderLevel int) *model.Product {
	t.Helper()
	p := &model.Product{SKU: sku, Name: name, ReorderLevel: reorderLevel}
	require.NoError(t, db.WithContext(context.Background()).Create(p).Error)
	return p
}

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Event is one captured publication.
type Event struct {
	Name string
	Data interface{}
}

// Recorder captures published events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Data: data})
}

// Names returns the captured event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// ID parses a uuid string, failing the test when it is malformed.
func ID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
