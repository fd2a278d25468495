// Package catalog persists videos, channels and the watch-later list in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tubewatch/types"
)

// ErrNotFound is returned when a video is not in the catalog
var ErrNotFound = errors.New("video not found")

// VideoPatch lists the fields to change on a video; nil fields are left alone
type VideoPatch struct {
	Title      *string
	Downloaded *bool
	Location   *string
	Format     *string
	Summary    *string
	Transcript *string
}

// Store is the catalog backed by SQLite
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the catalog database and applies migrations.
// Use ":memory:" for a throwaway catalog.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const videoColumns = `v.id, v.channel_name, v.title, v.url, v.thumbnail, v.description,
    v.published_time, v.published_at, v.view_count, v.duration, v.downloaded, v.ignored,
    v.summary, v.transcript, v.location, v.format, v.added_at,
    (w.video_id IS NOT NULL) AS watch_later`

const videoFrom = ` FROM videos v LEFT JOIN watch_later w ON w.video_id = v.id`

// GetVideo returns a single video with its watch-later flag
func (s *Store) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+videoColumns+videoFrom+" WHERE v.id = ?", id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	return video, nil
}

// UpsertVideos inserts unknown videos and refreshes listing metadata of known
// ones. It returns the videos that were new to the catalog.
func (s *Store) UpsertVideos(ctx context.Context, videos []types.Video) ([]types.Video, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	addedAt := s.now().UnixMilli()
	var added []types.Video
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO videos (
                id, channel_name, title, url, thumbnail, description,
                published_time, published_at, view_count, duration, added_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO NOTHING`,
			v.ID, v.ChannelName, v.Title, nullableString(v.URL), nullableString(v.Thumbnail),
			nullableString(v.Description), nullableString(v.PublishedTime), nullableTime(v.PublishedAt),
			nullableString(v.ViewCount), nullableString(v.Duration), addedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert video %s: %w", v.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			v.AddedAt = addedAt
			added = append(added, v)
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE videos SET title = ?, thumbnail = ?, view_count = ?, published_time = ?
             WHERE id = ?`,
			v.Title, nullableString(v.Thumbnail), nullableString(v.ViewCount), nullableString(v.PublishedTime), v.ID,
		); err != nil {
			return nil, fmt.Errorf("refresh video %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return added, nil
}

// UpdateVideo applies patch and returns the updated video
func (s *Store) UpdateVideo(ctx context.Context, id string, patch VideoPatch) (*types.Video, error) {
	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Downloaded != nil {
		sets = append(sets, "downloaded = ?")
		args = append(args, boolToInt(*patch.Downloaded))
	}
	if patch.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullableString(*patch.Location))
	}
	if patch.Format != nil {
		sets = append(sets, "format = ?")
		args = append(args, nullableString(*patch.Format))
	}
	if patch.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, nullableString(*patch.Summary))
	}
	if patch.Transcript != nil {
		sets = append(sets, "transcript = ?")
		args = append(args, nullableString(*patch.Transcript))
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, "UPDATE videos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, fmt.Errorf("update video %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetVideo(ctx, id)
}

// ToggleIgnored flips the ignored flag and returns the new value
func (s *Store) ToggleIgnored(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE videos SET ignored = 1 - ignored WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("toggle ignored %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var ignored int
	if err := s.db.QueryRowContext(ctx, "SELECT ignored FROM videos WHERE id = ?", id).Scan(&ignored); err != nil {
		return false, fmt.Errorf("read ignored %s: %w", id, err)
	}
	return ignored == 1, nil
}

// AddToWatchLater reports whether the video was added; false means it was already listed
func (s *Store) AddToWatchLater(ctx context.Context, id string) (bool, error) {
	if _, err := s.GetVideo(ctx, id); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO watch_later (video_id, added_at) VALUES (?, ?) ON CONFLICT(video_id) DO NOTHING",
		id, s.now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("add watch later %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveFromWatchLater reports whether the video was listed
func (s *Store) RemoveFromWatchLater(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM watch_later WHERE video_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("remove watch later %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListVideos returns non-ignored videos newest first, filtered by a
// case-insensitive title/channel match when query is set
func (s *Store) ListVideos(ctx context.Context, query string) ([]types.Video, error) {
	q := "SELECT " + videoColumns + videoFrom + " WHERE v.ignored = 0"
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		q += " AND (v.title LIKE ? OR v.channel_name LIKE ?)"
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	q += " ORDER BY COALESCE(v.published_at, '') DESC, v.added_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := []types.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// AddChannel reports whether the channel was new
func (s *Store) AddChannel(ctx context.Context, name string) (bool, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return false, fmt.Errorf("channel name is required")
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO channels (name, added_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("add channel %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveChannel unfollows a channel and reports whether it was followed.
// Videos already in the catalog are kept.
func (s *Store) RemoveChannel(ctx context.Context, name string) (bool, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	res, err := s.db.ExecContext(ctx, "DELETE FROM channels WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("remove channel %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListChannels returns followed channels in insertion order
func (s *Store) ListChannels(ctx context.Context) ([]types.Channel, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, display_name, added_at FROM channels ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := []types.Channel{}
	for rows.Next() {
		var ch types.Channel
		var display sql.NullString
		var added string
		if err := rows.Scan(&ch.Name, &display, &added); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.DisplayName = display.String
		if t, err := time.Parse(time.RFC3339Nano, added); err == nil {
			ch.AddedAt = t
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// VideoCount returns the number of videos in the catalog
func (s *Store) VideoCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM videos").Scan(&n); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}
