package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
)

const sessionKey = "session"

// MetadataRepository is a small key/value table for client state.
type MetadataRepository struct {
	db dbx.DBTX
}

func (r *MetadataRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("failed to select metadata: %w", err)
	}
	return value, nil
}

func (r *MetadataRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (r *MetadataRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

func (r *MetadataRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

type storedSession struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PasswordHash string `json:"password_hash"`
}

// SaveSession remembers the signed-in user.
func (s *Store) SaveSession(ctx context.Context, sess *models.Session) error {
	b, err := json.Marshal(storedSession(*sess))
	if err != nil {
		return err
	}
	return s.Metadata().Set(ctx, sessionKey, string(b))
}

// LoadSession returns the remembered user or common.ErrorNotFound.
func (s *Store) LoadSession(ctx context.Context) (*models.Session, error) {
	raw, err := s.Metadata().Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("corrupt session: %w", err)
	}
	sess := models.Session(stored)
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context) error {
	return s.Metadata().Delete(ctx, sessionKey)
}
