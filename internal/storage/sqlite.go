//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, session model.Session) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSession(session)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, session.ID, session.CreatedAtUTC, session.SchemaVersion, session.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (model.Session, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Session{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, false, nil
		}
		return model.Session{}, false, err
	}

	session, err := DecodeSession(payload)
	if err != nil {
		return model.Session{}, false, errors.Wrapf(err, "decode session %s", id)
	}
	return session, true, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM sessions ORDER BY created_at_utc DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		session, err := DecodeSession(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode session %s", id)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topology_results WHERE session_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveTopologyResult(ctx context.Context, result model.TopologyResult) error {
	if result.SessionID == "" {
		return errors.New("topology result session id is required")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTopologyResult(result)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO topology_results (session_id, topology_index, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, topology_index) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, result.SessionID, result.Index, result.SchemaVersion, result.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetTopologyResult(ctx context.Context, sessionID string, index int) (model.TopologyResult, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.TopologyResult{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM topology_results WHERE session_id = ? AND topology_index = ?
	`, sessionID, index).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TopologyResult{}, false, nil
		}
		return model.TopologyResult{}, false, err
	}

	result, err := DecodeTopologyResult(payload)
	if err != nil {
		return model.TopologyResult{}, false, errors.Wrapf(err, "decode topology %s/%d", sessionID, index)
	}
	return result, true, nil
}

func (s *SQLiteStore) ListTopologyResults(ctx context.Context, sessionID string) ([]model.TopologyResult, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT topology_index, payload FROM topology_results
		WHERE session_id = ?
		ORDER BY topology_index ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TopologyResult
	for rows.Next() {
		var (
			index   int
			payload []byte
		)
		if err := rows.Scan(&index, &payload); err != nil {
			return nil, err
		}
		result, err := DecodeTopologyResult(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode topology %s/%d", sessionID, index)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS topology_results (
			session_id TEXT NOT NULL,
			topology_index INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (session_id, topology_index)
		);
	`)
	return err
}
