package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/internal/model/user"
	"github.com/Chauhan0050r/GPT-clone/internal/store"
)

// Store implements store.Store on Postgres via GORM.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &sessionRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type userRow struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Nickname     string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type sessionRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "chat_sessions" }

type messageRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;not null"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"not null"`
	Timestamp time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

// CreateUser inserts a new account, mapping the unique-email violation to
// store.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return store.ErrEmailTaken
	}

	row := userRow{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindUserByEmail looks up an account by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, store.ErrUserNotFound
		}
		return user.User{}, err
	}
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		Nickname:     row.Nickname,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}, nil
}

// ListSessions returns the caller's sessions ordered newest first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]chat.SessionSummary, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]chat.SessionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, chat.SessionSummary{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: row.CreatedAt,
		})
	}
	return summaries, nil
}

// CreateSession provisions an empty session owned by userID.
func (s *Store) CreateSession(ctx context.Context, userID, name string) (chat.Session, error) {
	if name == "" {
		name = chat.DefaultSessionName
	}

	now := time.Now().UTC()
	row := sessionRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return chat.Session{}, err
	}

	return chat.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Messages:  []chat.Message{},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// GetSession retrieves an owned session with its full log.
func (s *Store) GetSession(ctx context.Context, id, userID string) (chat.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Session{}, store.ErrSessionNotFound
		}
		return chat.Session{}, err
	}

	var msgRows []messageRow
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("id ASC").
		Find(&msgRows).Error; err != nil {
		return chat.Session{}, err
	}

	messages := make([]chat.Message, 0, len(msgRows))
	for _, m := range msgRows {
		messages = append(messages, chat.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	return chat.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Messages:  messages,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// RenameSession updates the session name of an owned session.
func (s *Store) RenameSession(ctx context.Context, id, userID, name string) error {
	result := s.db.WithContext(ctx).
		Model(&sessionRow{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes an owned session together with its log.
func (s *Store) DeleteSession(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&sessionRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrSessionNotFound
		}
		return tx.Where("session_id = ?", id).Delete(&messageRow{}).Error
	})
}

// AppendMessages appends messages in one transaction, stamping timestamps at
// append time.
func (s *Store) AppendMessages(ctx context.Context, id, userID string, messages []chat.Message) error {
	if len(messages) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&sessionRow{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrSessionNotFound
		}

		now := time.Now().UTC()
		rows := make([]messageRow, 0, len(messages))
		for _, msg := range messages {
			rows = append(rows, messageRow{
				SessionID: id,
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		return tx.Model(&sessionRow{}).Where("id = ?", id).Update("updated_at", now).Error
	})
}
