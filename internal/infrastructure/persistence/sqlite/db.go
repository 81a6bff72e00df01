package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garyjia/expense-manager/internal/application/port"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const txKey contextKey = "tx"

// DB wraps gorm.DB and implements port.TransactionManager
type DB struct {
	gorm   *gorm.DB
	logger *zap.Logger
}

// NewDB creates a new database wrapper
func NewDB(db *gorm.DB, logger *zap.Logger) *DB {
	return &DB{
		gorm:   db,
		logger: logger,
	}
}

// WithTransaction runs fn inside a transaction carried by the returned
// context. A context that already carries a transaction joins it.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if extractTx(ctx) != nil {
		return fn(ctx)
	}

	tx := db.gorm.WithContext(ctx).Begin()
	if tx.Error != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(tx.Error))
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Conn returns the transaction carried by ctx, or the pool bound to ctx
func (db *DB) Conn(ctx context.Context) *gorm.DB {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return db.gorm.WithContext(ctx)
}

// Gorm returns the underlying handle
func (db *DB) Gorm() *gorm.DB {
	return db.gorm
}

// Ping checks the connection
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// InTransaction reports whether ctx carries a transaction
func InTransaction(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

func extractTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// Verify interface compliance
var _ port.TransactionManager = (*DB)(nil)
