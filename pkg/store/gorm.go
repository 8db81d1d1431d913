package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
)

// Open connects to the configured SQL backend.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "relay.db"
		}
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// GormStore persists messages in a SQL table through gorm.
type GormStore struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the messages table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&models.Message{})
}

func (s *GormStore) Append(ctx context.Context, m models.Message) (models.Message, error) {
	if err := validate(m); err != nil {
		return models.Message{}, err
	}
	m.ID = 0
	m.CreatedAt = stamp(s.Now)

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return models.Message{}, apperr.Store("append", err)
	}
	return m, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperr.Store("list all", err)
	}
	return msgs, nil
}

func (s *GormStore) ListBySession(ctx context.Context, sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperr.Store("list session", err)
	}
	return msgs, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (models.Message, error) {
	var m models.Message
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Message{}, fmt.Errorf("message %d: %w", id, apperr.ErrNotFound)
		}
		return models.Message{}, apperr.Store("get", err)
	}
	return m, nil
}
