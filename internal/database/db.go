package database

import (
	"fmt"

	"fulfillment/internal/config"
	"fulfillment/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if log.Core().Enabled(zap.DebugLevel) {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info("connected to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("name", cfg.Name),
	)
	return db, nil
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Product{},
		&model.Order{},
		&model.OrderLine{},
		&model.Delivery{},
		&model.DeliveryLine{},
		&model.InventoryBatch{},
		&model.StockMovement{},
		&model.Issue{},
		&model.IssueLine{},
		&model.AuditLog{},
	}
}

// AutoMigrate creates or updates the schema for all fulfillment models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
