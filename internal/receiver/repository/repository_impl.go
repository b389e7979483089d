package repository

import (
	"context"
	"errors"

	"github.com/umagate/umagate/internal/receiver/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) EnsureTable(ctx context.Context, table string) error {
	return r.db.WithContext(ctx).Table(table).AutoMigrate(&domain.User{})
}

func (r *repository) FindByUsername(ctx context.Context, table, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Table(table).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByCallbackID(ctx context.Context, table, callbackID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Table(table).First(&user, "callback_id = ?", callbackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, table string, user *domain.User) error {
	return r.db.WithContext(ctx).Table(table).Create(user).Error
}

func (r *repository) ListPage(ctx context.Context, table, afterUsername string, limit int) ([]domain.User, error) {
	q := r.db.WithContext(ctx).Table(table).Order("username").Limit(limit + 1)
	if afterUsername != "" {
		q = q.Where("username > ?", afterUsername)
	}
	var users []domain.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
