package store

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormPermissions struct {
	db *gorm.DB
}

func (r *gormPermissions) Seed(ctx context.Context, catalog []models.Permission) error {
	if len(catalog) == 0 {
		return nil
	}
	rows := make([]models.Permission, len(catalog))
	for i, p := range catalog {
		rows[i] = models.Permission{ID: uuid.New(), Name: p.Name, Description: p.Description}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}

func (r *gormPermissions) List(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *gormPermissions) ListByNames(ctx context.Context, names []string) ([]models.Permission, error) {
	if len(names) == 0 {
		return []models.Permission{}, nil
	}
	var perms []models.Permission
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}
