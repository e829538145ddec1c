package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "gpuprices/internal/model"
	"gpuprices/pkg/config"
	"gpuprices/pkg/store/database/model"
)

// Datastore wraps GORM DB and provides transaction support
type Datastore struct {
	db     *gorm.DB
	driver string
}

// NewDatastore opens the configured price store and migrates its schema.
// Any failure is reported as domain.ErrStoreUnavailable.
func NewDatastore(cfg config.StoreConfig) (*Datastore, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	// stdout carries CLI output, SQL warnings go to stderr
	newLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newLogger,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return domain.NormalizeTimestamp(time.Now())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", domain.ErrStoreUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get generic database object: %w", domain.ErrStoreUnavailable, err)
	}

	if cfg.Driver == config.DriverMySQL || cfg.Driver == config.DriverPostgres {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// SQLite is single-writer; one connection serializes access and
		// keeps an in-memory database alive for the lifetime of the store.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := db.AutoMigrate(&model.PriceRecord{}, &model.SnapshotSummary{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to migrate schema: %w", domain.ErrStoreUnavailable, err)
	}

	return &Datastore{db: db, driver: cfg.Driver}, nil
}

func openDialector(cfg config.StoreConfig) (gorm.Dialector, error) {
	dsn := cfg.StoreDSN()
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		if cfg.DSN == "" && cfg.Path != "" && !strings.HasPrefix(cfg.Path, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(dsn), nil
	}
}

// Driver returns the configured store driver name
func (ds *Datastore) Driver() string {
	return ds.driver
}

// Ping checks that the backend is reachable
func (ds *Datastore) Ping(ctx context.Context) error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection
func (ds *Datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction support using context
type contextTxKey struct{}

// ExecTx executes a function within a transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (ds *Datastore) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, contextTxKey{}, tx)
		return fn(ctx)
	})
}

// DB returns the GORM DB instance for the current context
// If a transaction is active in the context, it returns the transaction DB
// Otherwise, it returns the main DB
func (ds *Datastore) DB(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB)
	if ok {
		return tx.WithContext(ctx)
	}
	return ds.db.WithContext(ctx)
}

// unavailable wraps a backend error so callers can match domain.ErrStoreUnavailable
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
