package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Kringle/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	token         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	class         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	is_registered INTEGER NOT NULL DEFAULT 0,
	answers       TEXT,
	tags          TEXT,
	clues         TEXT,
	target_token  TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'UNMATCHED',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS event_config (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	reveal_date        TIMESTAMP NOT NULL,
	status             TEXT NOT NULL DEFAULT 'UNMATCHED',
	total_participants INTEGER NOT NULL DEFAULT 0,
	matched_at         TIMESTAMP
);
`

// SQLiteStore persists the event in a single sqlite database. Batch
// writes run inside one transaction so readers never observe a partially
// applied seed or match.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Open connects to the sqlite file at path and prepares the schema.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewSQLiteStore(conn)
}

var _ Store = (*SQLiteStore)(nil)

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStringMap(ns sql.NullString) map[string]string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}

func decodeStringSlice(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}

const participantColumns = `token, name, class, email, is_registered, answers, tags, clues, target_token, status, created_at, updated_at`

func scanParticipant(row interface{ Scan(...any) error }) (*models.Participant, error) {
	var (
		p            models.Participant
		isRegistered int64
		answers      sql.NullString
		tags         sql.NullString
		clues        sql.NullString
		status       string
	)
	err := row.Scan(&p.Token, &p.Name, &p.Class, &p.Email, &isRegistered,
		&answers, &tags, &clues, &p.TargetToken, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.IsRegistered = isRegistered != 0
	p.Answers = decodeStringMap(answers)
	p.Tags = decodeStringSlice(tags)
	p.Clues = decodeStringSlice(clues)
	p.Status = models.MatchStatus(status)
	return &p, nil
}

func (s *SQLiteStore) GetParticipant(token string) (*models.Participant, error) {
	row := s.db.QueryRow(`SELECT `+participantColumns+` FROM participants WHERE token = ?`, token)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) listWhere(where string, args ...any) ([]*models.Participant, error) {
	rows, err := s.db.Query(`SELECT `+participantColumns+` FROM participants `+where+` ORDER BY token`, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListParticipants() ([]*models.Participant, error) {
	return s.listWhere("")
}

func (s *SQLiteStore) ListRegistered() ([]*models.Participant, error) {
	return s.listWhere("WHERE is_registered = 1")
}

func upsertParticipant(tx *sql.Tx, p *models.Participant) error {
	answers, err := encodeJSON(p.Answers)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(p.Tags)
	if err != nil {
		return err
	}
	clues, err := encodeJSON(p.Clues)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			name = excluded.name, class = excluded.class, email = excluded.email,
			is_registered = excluded.is_registered, answers = excluded.answers,
			tags = excluded.tags, clues = excluded.clues,
			target_token = excluded.target_token, status = excluded.status,
			updated_at = excluded.updated_at`,
		p.Token, p.Name, p.Class, p.Email, boolToInt64(p.IsRegistered),
		answers, tags, clues, p.TargetToken, string(p.Status), p.CreatedAt, p.UpdatedAt)
	return err
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (s *SQLiteStore) PutParticipants(ps []*models.Participant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, p := range ps {
		if err := upsertParticipant(tx, p); err != nil {
			return fmt.Errorf("put participant %s: %w", p.Token, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateParticipant(p *models.Participant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM participants WHERE token = ?`, p.Token).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("participant %s not found", p.Token)
	}
	if err := upsertParticipant(tx, p); err != nil {
		return fmt.Errorf("update participant %s: %w", p.Token, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ApplyMatch(assignments map[string]string, cfg *models.EventConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin match: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	// Validate every token up front so a bad batch rolls back whole.
	for giver, target := range assignments {
		for _, token := range []string{giver, target} {
			var exists int
			if err := tx.QueryRow(`SELECT COUNT(1) FROM participants WHERE token = ?`, token).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return fmt.Errorf("participant %s not found", token)
			}
		}
	}
	for giver, target := range assignments {
		if _, err := tx.Exec(`UPDATE participants SET target_token = ?, status = ?, updated_at = ? WHERE token = ?`,
			target, string(models.StatusMatched), time.Now().UTC(), giver); err != nil {
			return fmt.Errorf("assign %s: %w", giver, err)
		}
	}
	if err := setConfigTx(tx, cfg); err != nil {
		return fmt.Errorf("write event config: %w", err)
	}
	return tx.Commit()
}

func setConfigTx(tx *sql.Tx, cfg *models.EventConfig) error {
	matchedAt := sql.NullTime{}
	if !cfg.MatchedAt.IsZero() {
		matchedAt = sql.NullTime{Time: cfg.MatchedAt, Valid: true}
	}
	status := cfg.Status
	if status == "" {
		status = models.StatusUnmatched
	}
	_, err := tx.Exec(`INSERT INTO event_config (id, reveal_date, status, total_participants, matched_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reveal_date = excluded.reveal_date, status = excluded.status,
			total_participants = excluded.total_participants, matched_at = excluded.matched_at`,
		cfg.RevealDate, string(status), cfg.TotalParticipants, matchedAt)
	return err
}

func (s *SQLiteStore) GetEventConfig() (*models.EventConfig, error) {
	var (
		cfg       models.EventConfig
		status    string
		matchedAt sql.NullTime
	)
	err := s.db.QueryRow(`SELECT reveal_date, status, total_participants, matched_at FROM event_config WHERE id = 1`).
		Scan(&cfg.RevealDate, &status, &cfg.TotalParticipants, &matchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event config: %w", err)
	}
	cfg.Status = models.MatchStatus(status)
	if matchedAt.Valid {
		cfg.MatchedAt = matchedAt.Time
	}
	return &cfg, nil
}

func (s *SQLiteStore) SetEventConfig(cfg *models.EventConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin config write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := setConfigTx(tx, cfg); err != nil {
		return err
	}
	return tx.Commit()
}
