package repository

import (
	"context"

	"github.com/umagate/umagate/internal/compliance/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) InsertPayment(ctx context.Context, table string, rec *domain.PaymentRecord) error {
	return r.db.WithContext(ctx).Table(table).Create(rec).Error
}

func (r *repository) InsertUtxos(ctx context.Context, table string, recs []domain.UtxoRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Table(table).Create(&recs).Error
}

func (r *repository) ListPayments(ctx context.Context, table string) ([]domain.PaymentRecord, error) {
	var recs []domain.PaymentRecord
	err := r.db.WithContext(ctx).Table(table).Order("id").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *repository) ListUtxos(ctx context.Context, table string) ([]domain.UtxoRecord, error) {
	var recs []domain.UtxoRecord
	err := r.db.WithContext(ctx).Table(table).Order("id").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
