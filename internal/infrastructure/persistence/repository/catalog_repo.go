package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

// CategoryRepository implements port.CategoryRepository
type CategoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sqlite.DB, logger *zap.Logger) port.CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

func (r *CategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	if err := r.db.Conn(ctx).Create(category).Error; err != nil {
		err = translate(err)
		if !errors.Is(err, port.ErrConflict) {
			r.logger.Error("Failed to create category", zap.String("name", category.Name), zap.Error(err))
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, orgID, id string) (*entity.Category, error) {
	var category entity.Category
	if err := r.db.Conn(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to get category: %w", translate(err))
	}
	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context, orgID, search string) ([]*entity.Category, error) {
	q := r.db.Conn(ctx).Where("organization_id = ?", orgID)
	if search != "" {
		q = q.Where("name LIKE ?", likePattern(search))
	}

	var categories []*entity.Category
	if err := q.Order("name ASC").Find(&categories).Error; err != nil {
		r.logger.Error("Failed to list categories", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, orgID, id string) error {
	return deleteScoped(r.db.Conn(ctx), r.logger, &entity.Category{}, "category", orgID, id)
}

// StoreRepository implements port.StoreRepository
type StoreRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *sqlite.DB, logger *zap.Logger) port.StoreRepository {
	return &StoreRepository{db: db, logger: logger}
}

func (r *StoreRepository) Create(ctx context.Context, store *entity.Store) error {
	if err := r.db.Conn(ctx).Create(store).Error; err != nil {
		r.logger.Error("Failed to create store", zap.String("name", store.Name), zap.Error(err))
		return fmt.Errorf("failed to create store: %w", translate(err))
	}
	return nil
}

func (r *StoreRepository) GetByID(ctx context.Context, orgID, id string) (*entity.Store, error) {
	var store entity.Store
	if err := r.db.Conn(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&store).Error; err != nil {
		return nil, fmt.Errorf("failed to get store: %w", translate(err))
	}
	return &store, nil
}

func (r *StoreRepository) List(ctx context.Context, orgID, search string) ([]*entity.Store, error) {
	q := r.db.Conn(ctx).Where("organization_id = ?", orgID)
	if search != "" {
		p := likePattern(search)
		q = q.Where("name LIKE ? OR address LIKE ? OR type LIKE ?", p, p, p)
	}

	var stores []*entity.Store
	if err := q.Order("name ASC").Find(&stores).Error; err != nil {
		r.logger.Error("Failed to list stores", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

func (r *StoreRepository) Delete(ctx context.Context, orgID, id string) error {
	return deleteScoped(r.db.Conn(ctx), r.logger, &entity.Store{}, "store", orgID, id)
}
