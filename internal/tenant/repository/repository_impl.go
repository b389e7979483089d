package repository

import (
	"context"
	"errors"

	compliancedomain "github.com/umagate/umagate/internal/compliance/domain"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	"github.com/umagate/umagate/internal/tenant/domain"
	dbpkg "github.com/umagate/umagate/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domain.Tenant{}, &domain.TenantKeys{})
}

func (r *repository) Create(ctx context.Context, t domain.Tenant) error {
	// Select("*") forces zero-valued columns into the insert; without it
	// gorm omits a false Active and the column default flips it to true.
	err := r.db.WithContext(ctx).Select("*").Create(&t).Error
	if dbpkg.IsDuplicateKeyErr(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *repository) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetByDomain(ctx context.Context, dom string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.WithContext(ctx).First(&t, "domain = ?", dom).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Exists checks id and domain against storage directly. The directory uses
// this instead of its cache so concurrent directory instances cannot race
// past each other on add.
func (r *repository) Exists(ctx context.Context, id, dom string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ? OR domain = ?", id, dom).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, t domain.Tenant) error {
	err := r.db.WithContext(ctx).Save(&t).Error
	if dbpkg.IsDuplicateKeyErr(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Tenant{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repository) UpsertKeys(ctx context.Context, keys domain.TenantKeys) error {
	return r.db.WithContext(ctx).Save(&keys).Error
}

func (r *repository) GetKeys(ctx context.Context, tenantID string) (*domain.TenantKeys, error) {
	var keys domain.TenantKeys
	err := r.db.WithContext(ctx).First(&keys, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &keys, nil
}

func (r *repository) DeleteKeys(ctx context.Context, tenantID string) error {
	return r.db.WithContext(ctx).Delete(&domain.TenantKeys{}, "tenant_id = ?", tenantID).Error
}

func (r *repository) EnsurePartitions(ctx context.Context, t domain.Tenant) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Table(t.Tables.Users).AutoMigrate(&receiverdomain.User{}); err != nil {
		return err
	}
	if err := conn.Table(t.Tables.Payments).AutoMigrate(&compliancedomain.PaymentRecord{}); err != nil {
		return err
	}
	return conn.Table(t.Tables.Utxos).AutoMigrate(&compliancedomain.UtxoRecord{})
}
