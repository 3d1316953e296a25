// Package repository, veritabanı erişim katmanı.
//
// Her tablo için bir interface + bir SQLite implementasyonu vardır.
// Service katmanı sadece interface'leri görür; testlerde veya ileride
// başka bir DB'ye geçişte implementasyon değişir, service değişmez.
package repository

import (
	"context"

	"github.com/denizyurt/takas/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
