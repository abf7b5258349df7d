// Package ledger keeps a durable audit trail of invocations and approval
// decisions in a local sqlite database.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	worker TEXT NOT NULL,
	iterations INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	ended_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session_id);

CREATE TABLE IF NOT EXISTS approvals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	args_json TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_approvals_session ON approvals(session_id);
`

// Invocation is one recorded invocation of a worker.
type Invocation struct {
	ID        int64      `json:"id"`
	SessionID string     `json:"session_id"`
	Worker    string     `json:"worker"`
	// Iterations counts successful model calls only.
	Iterations int        `json:"iterations"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// ApprovalRecord is one resolved approval decision.
type ApprovalRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Operation string    `json:"operation"`
	ArgsJSON  string    `json:"args_json"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is the sqlite-backed ledger. It is safe for use from the single
// conversation goroutine; sqlite's busy timeout covers process restarts.
type Service struct {
	db *sql.DB
}

// NewService opens (creating if needed) the ledger database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	return s.db.Close()
}

// BeginInvocation records the start of one invocation and returns its row id.
func (s *Service) BeginInvocation(sessionID, worker string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO invocations (session_id, worker, started_at) VALUES (?, ?, ?)`,
		sessionID, worker, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record invocation start: %w", err)
	}
	return res.LastInsertId()
}

// EndInvocation finalizes an invocation row with its iteration count.
func (s *Service) EndInvocation(id int64, iterations int) error {
	_, err := s.db.Exec(
		`UPDATE invocations SET iterations = ?, ended_at = ? WHERE id = ?`,
		iterations, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation end: %w", err)
	}
	return nil
}

// RecordApproval stores one resolved approval decision. Recording is
// best-effort: a storage failure is logged and never surfaces to the gate.
func (s *Service) RecordApproval(sessionID, operation string, args map[string]any, status string) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	_, err = s.db.Exec(
		`INSERT INTO approvals (session_id, operation, args_json, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, operation, string(argsJSON), status, time.Now().UTC(),
	)
	if err != nil {
		slog.Warn("Failed to record approval", "operation", operation, "error", err)
	}
}

// InvocationsForSession returns the recorded invocations of one session,
// oldest first.
func (s *Service) InvocationsForSession(sessionID string) ([]Invocation, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, worker, iterations, started_at, ended_at
		 FROM invocations WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var ended sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.Worker, &inv.Iterations, &inv.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		if ended.Valid {
			t := ended.Time
			inv.EndedAt = &t
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ApprovalsForSession returns the recorded approval decisions of one
// session, oldest first.
func (s *Service) ApprovalsForSession(sessionID string) ([]ApprovalRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, operation, args_json, status, created_at
		 FROM approvals WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var out []ApprovalRecord
	for rows.Next() {
		var rec ApprovalRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Operation, &rec.ArgsJSON, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
