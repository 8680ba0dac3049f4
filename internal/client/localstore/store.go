// Package localstore keeps the client's copy of the timeline in SQLite:
// events, their attachments, private comments and session metadata.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/localstore/migrations"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// nowFunc stamps created/updated times.
var nowFunc = time.Now

// Store hands out repositories bound to the database or to one transaction.
type Store struct {
	db   dbx.DBTX
	conn *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite file at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, conn: db}, nil
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// DB exposes the underlying pool; nil inside a transaction.
func (s *Store) DB() *sql.DB { return s.conn }

func (s *Store) Events() *EventRepository     { return &EventRepository{db: s.db, conn: s.conn} }
func (s *Store) Media() *MediaRepository       { return &MediaRepository{db: s.db} }
func (s *Store) Comments() *CommentRepository  { return &CommentRepository{db: s.db} }
func (s *Store) Metadata() *MetadataRepository { return &MetadataRepository{db: s.db} }

// Tx runs fn with a Store bound to a single transaction. Inside a
// transaction fn runs on the same one.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if s.conn == nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &Store{db: tx})
	})
}

// Clear removes every local record, session included.
func (s *Store) Clear(ctx context.Context) error {
	return s.Tx(ctx, func(ctx context.Context, tx *Store) error {
		for _, table := range []string{"comments", "media", "events", "metadata"} {
			if _, err := tx.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// PromoteEvent replaces the pending event localID with its server copy and
// moves its media and comments along.
func (s *Store) PromoteEvent(ctx context.Context, localID string, remote *models.Event) error {
	return s.Tx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.Events().deleteRow(ctx, localID); err != nil {
			return err
		}
		promoted := *remote
		promoted.Pending = false
		if err := tx.Events().Upsert(ctx, &promoted); err != nil {
			return err
		}
		if err := tx.Media().ReassignEvent(ctx, localID, remote.ID); err != nil {
			return err
		}
		return tx.Comments().ReassignEvent(ctx, localID, remote.ID)
	})
}
