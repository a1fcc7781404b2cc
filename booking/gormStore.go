package booking

import (
	"context"

	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"gorm.io/gorm"
)

// GormStore runs each booking in one gorm transaction.
// A nil DB falls back to the shared connection from config.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	db := s.DB
	if db == nil {
		db = config.GetDB()
	}
	if db == nil {
		return utils.WrapStorage("booking.transaction", gorm.ErrInvalidDB)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(models.NewBookingTx(tx))
	})
}
