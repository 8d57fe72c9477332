package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type auctionSnapshot struct {
	Key       string `gorm:"primaryKey;size:64"`
	Blob      []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (auctionSnapshot) TableName() string { return "auction_snapshots" }

// GormBackend stores blobs in postgres, one row per key.
type GormBackend struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&auctionSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate auction_snapshots: %w", err)
	}
	return &GormBackend{db: db}, nil
}

func (g *GormBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row auctionSnapshot
	err := g.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Blob, true, nil
}

func (g *GormBackend) Put(ctx context.Context, key string, blob []byte) error {
	row := auctionSnapshot{Key: key, Blob: blob, UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(&row).Error
}

func (g *GormBackend) Delete(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Where("key = ?", key).Delete(&auctionSnapshot{}).Error
}
