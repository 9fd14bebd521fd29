package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tempocut/tempocut-agent/internal/audio"
	"github.com/tempocut/tempocut-agent/internal/sequence"
	"github.com/tempocut/tempocut-agent/internal/video"
)

type Repository interface {
	UpsertClip(ctx context.Context, clip *Clip) error
	GetClip(ctx context.Context, id string) (*Clip, error)
	GetClipByIdentity(ctx context.Context, name string, mtime, size int64) (*Clip, error)
	ListClips(ctx context.Context) ([]*Clip, error)
	ListClipsByStatus(ctx context.Context, status string) ([]*Clip, error)
	UpdateClipStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateClipAnalysis(ctx context.Context, id string, a *video.Analysis) error
	UpdateClipThumbnail(ctx context.Context, id, thumbnailPath string) error
	DeleteClip(ctx context.Context, id string) error
	CountClips(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	UpdateSessionStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateSessionAudio(ctx context.Context, id string, a *audio.Analysis) error
	UpdateSessionDecisions(ctx context.Context, id string, d sequence.DecisionList) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const clipColumns = `id, name, path, mtime, size, duration, width, height, frame_rate, thumbnail_path, status, error, analysis_json, created_at, updated_at`

func (r *SQLiteRepository) UpsertClip(ctx context.Context, c *Clip) error {
	analysisJSON, err := marshalNullable(c.Analysis)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clips (id, name, path, mtime, size, duration, width, height, frame_rate, thumbnail_path, status, error, analysis_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, mtime, size) DO UPDATE SET
			path = excluded.path,
			duration = excluded.duration,
			width = excluded.width,
			height = excluded.height,
			frame_rate = excluded.frame_rate,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.Path, c.MTime, c.Size, c.Duration, c.Width, c.Height, c.FrameRate,
		c.ThumbnailPath, c.Status, c.Error, analysisJSON,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetClip(ctx context.Context, id string) (*Clip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	return scanClipRow(row)
}

func (r *SQLiteRepository) GetClipByIdentity(ctx context.Context, name string, mtime, size int64) (*Clip, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE name = ? AND mtime = ? AND size = ?
	`, name, mtime, size)
	return scanClipRow(row)
}

func (r *SQLiteRepository) ListClips(ctx context.Context) ([]*Clip, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clipColumns+` FROM clips ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClipRows(rows)
}

func (r *SQLiteRepository) ListClipsByStatus(ctx context.Context, status string) ([]*Clip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE status = ? ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClipRows(rows)
}

func (r *SQLiteRepository) UpdateClipStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clips SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, errorMsg, id)
	return err
}

func (r *SQLiteRepository) UpdateClipAnalysis(ctx context.Context, id string, a *video.Analysis) error {
	analysisJSON, err := marshalNullable(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE clips SET analysis_json = ?, status = ?, error = '', updated_at = datetime('now') WHERE id = ?
	`, analysisJSON, ClipStatusAnalyzed, id)
	return err
}

func (r *SQLiteRepository) UpdateClipThumbnail(ctx context.Context, id, thumbnailPath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clips SET thumbnail_path = ?, updated_at = datetime('now') WHERE id = ?
	`, thumbnailPath, id)
	return err
}

func (r *SQLiteRepository) DeleteClip(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM clips WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountClips(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clips").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (*Clip, error) {
	var c Clip
	var analysisJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.Name, &c.Path, &c.MTime, &c.Size, &c.Duration,
		&c.Width, &c.Height, &c.FrameRate, &c.ThumbnailPath, &c.Status, &c.Error,
		&analysisJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if analysisJSON.Valid && analysisJSON.String != "" {
		var a video.Analysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &a); err == nil {
			c.Analysis = &a
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func scanClipRow(row *sql.Row) (*Clip, error) {
	c, err := scanClip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func scanClipRows(rows *sql.Rows) ([]*Clip, error) {
	var clips []*Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

const sessionColumns = `id, mood, track_path, track_duration, status, audio_json, decisions_json, error, created_at, updated_at`

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *Session) error {
	audioJSON, err := marshalNullable(s.Audio)
	if err != nil {
		return err
	}
	decisionsJSON, err := marshalNullable(s.Decisions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, mood, track_path, track_duration, status, audio_json, decisions_json, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Mood, s.TrackPath, s.TrackDuration, s.Status, audioJSON, decisionsJSON, s.Error,
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var audioJSON, decisionsJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Mood, &s.TrackPath, &s.TrackDuration, &s.Status,
		&audioJSON, &decisionsJSON, &s.Error, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if audioJSON.Valid && audioJSON.String != "" {
		var a audio.Analysis
		if err := json.Unmarshal([]byte(audioJSON.String), &a); err == nil {
			s.Audio = &a
		}
	}
	if decisionsJSON.Valid && decisionsJSON.String != "" {
		var d sequence.DecisionList
		if err := json.Unmarshal([]byte(decisionsJSON.String), &d); err == nil {
			s.Decisions = d
		}
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

func (r *SQLiteRepository) UpdateSessionStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, errorMsg, id)
	return err
}

func (r *SQLiteRepository) UpdateSessionAudio(ctx context.Context, id string, a *audio.Analysis) error {
	audioJSON, err := marshalNullable(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE sessions SET audio_json = ?, track_duration = ?, updated_at = datetime('now') WHERE id = ?
	`, audioJSON, a.Duration, id)
	return err
}

func (r *SQLiteRepository) UpdateSessionDecisions(ctx context.Context, id string, d sequence.DecisionList) error {
	decisionsJSON, err := marshalNullable(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE sessions SET decisions_json = ?, status = ?, error = '', updated_at = datetime('now') WHERE id = ?
	`, decisionsJSON, SessionStatusSequenced, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, key, value)
	return err
}

// marshalNullable marshals v to a nullable JSON column. Nil pointers and nil
// slices store as NULL.
func marshalNullable(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *video.Analysis:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *audio.Analysis:
		if x == nil {
			return sql.NullString{}, nil
		}
	case sequence.DecisionList:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
