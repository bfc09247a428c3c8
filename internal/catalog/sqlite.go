package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"showrunner/internal/automation"
	"showrunner/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the sqlite-backed Catalog. It also carries the write surface the
// surrounding process needs (config sync upserts, retention deletes) that the
// engine-facing Catalog interface deliberately omits.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (creating if needed) the catalog database and runs migrations.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("catalog: sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Automations ----

func (s *Store) AutomationsByTrigger(ctx context.Context, kind automation.TriggerKind) ([]automation.Automation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config FROM automations WHERE kind = ? AND enabled = 1 ORDER BY sort_order ASC`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAutomations(rows)
}

func (s *Store) CommandsByWord(ctx context.Context, word string) ([]automation.Automation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.config FROM automations a
		 JOIN command_words w ON w.automation_id = a.id
		 WHERE w.word = ? AND a.enabled = 1
		 ORDER BY a.sort_order ASC`,
		strings.ToLower(strings.TrimSpace(word)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAutomations(rows)
}

// UpsertAutomation writes one automation row plus its command-word index.
// Used by the config-sync boundary and tests, not by the engine.
func (s *Store) UpsertAutomation(ctx context.Context, a automation.Automation) error {
	cfg, err := json.Marshal(a)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO automations(id, kind, enabled, sort_order, config) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   kind=excluded.kind, enabled=excluded.enabled,
		   sort_order=excluded.sort_order, config=excluded.config`,
		a.ID, string(a.Trigger.Kind), boolInt(a.Enabled), a.Order, string(cfg),
	)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM command_words WHERE automation_id = ?`, a.ID); err != nil {
		return err
	}
	if a.IsCommand() {
		words := append([]string{a.InvocationWord}, a.Aliases...)
		if ct := a.Trigger.Command; ct != nil {
			words = append(words, ct.InvocationText)
		}
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO command_words(automation_id, word) VALUES(?,?)
				 ON CONFLICT(automation_id, word) DO NOTHING`, a.ID, w); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteAutomation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, id)
	return err
}

// ---- Executions ----

func (s *Store) AppendExecution(ctx context.Context, rec automation.ExecutionRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	var userID any
	if rec.Metadata.User != nil {
		userID = rec.Metadata.User.ID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO executions(id, automation_id, user_id, metadata, created_at) VALUES(?,?,?,?,?)`,
		rec.ID, rec.AutomationID, userID, string(meta), rec.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *Store) LastExecution(ctx context.Context, automationID string, offset int) (*automation.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, automation_id, metadata, created_at FROM executions
		 WHERE automation_id = ? ORDER BY created_at DESC LIMIT 1 OFFSET ?`,
		automationID, offset,
	)
	return scanExecution(row)
}

func (s *Store) LastExecutionByUser(ctx context.Context, automationID, userID string) (*automation.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, automation_id, metadata, created_at FROM executions
		 WHERE automation_id = ? AND user_id = ? ORDER BY created_at DESC LIMIT 1`,
		automationID, userID,
	)
	return scanExecution(row)
}

func (s *Store) DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- Chat messages ----

func (s *Store) RecordChatMessage(ctx context.Context, row ChatRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages(id, user_id, text, created_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		row.ID, nullStr(row.UserID), nullStr(row.Text), row.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *Store) CountChatMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chat_messages WHERE created_at >= ?`, since.UnixMilli(),
	).Scan(&n)
	return n, err
}

func (s *Store) DeleteChatMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- Items and sounds ----

func (s *Store) Items(ctx context.Context, ids []string) ([]automation.Item, error) {
	items := make([]automation.Item, 0, len(ids))
	for _, id := range ids {
		var cfg string
		err := s.db.QueryRowContext(ctx, `SELECT config FROM items WHERE id = ?`, id).Scan(&cfg)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var it automation.Item
		if err := json.Unmarshal([]byte(cfg), &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *Store) Sound(ctx context.Context, id string) (*automation.Sound, error) {
	var cfg string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM sounds WHERE id = ?`, id).Scan(&cfg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snd automation.Sound
	if err := json.Unmarshal([]byte(cfg), &snd); err != nil {
		return nil, err
	}
	return &snd, nil
}

func (s *Store) SoundsByIDs(ctx context.Context, ids []string) ([]automation.Sound, error) {
	sounds := make([]automation.Sound, 0, len(ids))
	for _, id := range ids {
		snd, err := s.Sound(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, *snd)
	}
	return sounds, nil
}

func (s *Store) UpsertItem(ctx context.Context, it automation.Item) error {
	cfg, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items(id, config) VALUES(?,?)
		 ON CONFLICT(id) DO UPDATE SET config=excluded.config`,
		it.ID, string(cfg),
	)
	return err
}

func (s *Store) UpsertSound(ctx context.Context, snd automation.Sound) error {
	cfg, err := json.Marshal(snd)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sounds(id, config) VALUES(?,?)
		 ON CONFLICT(id) DO UPDATE SET config=excluded.config`,
		snd.ID, string(cfg),
	)
	return err
}

// ---- helpers ----

func scanAutomations(rows *sql.Rows) ([]automation.Automation, error) {
	var out []automation.Automation
	for rows.Next() {
		var cfg string
		if err := rows.Scan(&cfg); err != nil {
			return nil, err
		}
		var a automation.Automation
		if err := json.Unmarshal([]byte(cfg), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanExecution(row *sql.Row) (*automation.ExecutionRecord, error) {
	var (
		rec  automation.ExecutionRecord
		meta string
		ms   int64
	)
	err := row.Scan(&rec.ID, &rec.AutomationID, &meta, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(ms)
	return &rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
