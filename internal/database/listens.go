// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/listenkeep/listenkeep/internal/models"
)

const listenColumns = "id, listened_at, track_name, artist_name, release_name, additional_info, created_at"

// InsertListen writes one listen. Inserting an ID that already exists
// is treated as already-stored, not an error, because IDs are
// deterministic over the identity fields.
func (db *DB) InsertListen(ctx context.Context, l *models.Listen) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	info, err := marshalInfo(l.AdditionalInfo)
	if err != nil {
		return err
	}

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO listens (id, listened_at, track_name, artist_name, release_name, additional_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.ListenedAt, l.TrackName, l.ArtistName,
		nullString(l.ReleaseName), info, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting listen: %w", err)
	}
	return nil
}

// FindMatching returns a stored listen with the same track and artist
// whose timestamp is within toleranceSeconds of listenedAt, or nil.
// The closest match wins when several qualify.
func (db *DB) FindMatching(ctx context.Context, trackName, artistName string, listenedAt, toleranceSeconds int64) (*models.Listen, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listenColumns+`
		 FROM listens
		 WHERE track_name = ? AND artist_name = ?
		   AND listened_at BETWEEN ? AND ?
		 ORDER BY abs(listened_at - ?) ASC
		 LIMIT 1`,
		trackName, artistName,
		listenedAt-toleranceSeconds, listenedAt+toleranceSeconds,
		listenedAt)

	listen, err := scanListen(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding matching listen: %w", err)
	}
	return listen, nil
}

// MergeAdditionalInfo folds new metadata keys into a stored listen.
// Incoming values overwrite existing keys; keys absent from info are
// kept untouched.
func (db *DB) MergeAdditionalInfo(ctx context.Context, id uuid.UUID, info map[string]interface{}) error {
	if len(info) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT additional_info FROM listens WHERE id = ?`, id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("merging metadata: listen %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("reading listen metadata: %w", err)
	}

	merged := make(map[string]interface{})
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &merged); err != nil {
			return fmt.Errorf("decoding stored metadata: %w", err)
		}
	}
	for k, v := range info {
		merged[k] = v
	}

	encoded, err := marshalInfo(merged)
	if err != nil {
		return err
	}

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE listens SET additional_info = ? WHERE id = ?`, encoded, id.String()); err != nil {
		return fmt.Errorf("updating listen metadata: %w", err)
	}
	return nil
}

// RecentListens returns the most recent listens, newest first.
func (db *DB) RecentListens(ctx context.Context, limit int) ([]models.Listen, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listenColumns+` FROM listens ORDER BY listened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent listens: %w", err)
	}
	defer rows.Close()

	return collectListens(rows)
}

// ListListens returns listens with from <= listened_at < until, in
// ascending time order. A non-positive bound is unbounded on that side.
func (db *DB) ListListens(ctx context.Context, from, until int64) ([]models.Listen, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + listenColumns + ` FROM listens`
	var args []interface{}
	switch {
	case from > 0 && until > 0:
		query += ` WHERE listened_at >= ? AND listened_at < ?`
		args = append(args, from, until)
	case from > 0:
		query += ` WHERE listened_at >= ?`
		args = append(args, from)
	case until > 0:
		query += ` WHERE listened_at < ?`
		args = append(args, until)
	}
	query += ` ORDER BY listened_at ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying listens: %w", err)
	}
	defer rows.Close()

	return collectListens(rows)
}

// CountListens returns the total number of stored listens.
func (db *DB) CountListens(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM listens`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting listens: %w", err)
	}
	return count, nil
}

// DeleteAllListens wipes the table, used by replace-mode imports.
func (db *DB) DeleteAllListens(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM listens`); err != nil {
		return fmt.Errorf("deleting listens: %w", err)
	}
	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListen(row rowScanner) (*models.Listen, error) {
	var (
		l       models.Listen
		id      string
		release sql.NullString
		info    sql.NullString
	)

	if err := row.Scan(&id, &l.ListenedAt, &l.TrackName, &l.ArtistName, &release, &info, &l.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing listen id %q: %w", id, err)
	}
	l.ID = parsed
	l.ReleaseName = release.String

	if info.Valid && info.String != "" {
		if err := json.Unmarshal([]byte(info.String), &l.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("decoding listen metadata: %w", err)
		}
	}
	return &l, nil
}

func collectListens(rows *sql.Rows) ([]models.Listen, error) {
	var listens []models.Listen
	for rows.Next() {
		l, err := scanListen(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listen: %w", err)
		}
		listens = append(listens, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listens: %w", err)
	}
	return listens, nil
}

func marshalInfo(info map[string]interface{}) (sql.NullString, error) {
	if len(info) == 0 {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(info)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding listen metadata: %w", err)
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
