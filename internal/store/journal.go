package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Digest domains. The version suffix allows a future algorithm change.
const (
	DomainRegistry = "cdcflow/registry/v1"
	DomainFlow     = "cdcflow/flow/v1"
)

// Digest computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Compile is one journaled run.
type Compile struct {
	Seq            int64     `json:"seq"`
	RunID          string    `json:"run_id"`
	SpecPath       string    `json:"spec_path"`
	Tables         []string  `json:"tables"`
	RegistrySHA256 string    `json:"registry_sha256"`
	FlowSHA256     string    `json:"flow_sha256"`
	EntryCount     int       `json:"entry_count"`
	RepairCount    int       `json:"repair_count"`
	CompiledAt     time.Time `json:"compiled_at"`
}

// ErrNoCompiles is returned by Latest on an empty journal.
var ErrNoCompiles = errors.New("journal has no compiles")

// Record appends c. RunID is generated when empty; Seq is assigned by the
// database and set on c.
func (s *Store) Record(ctx context.Context, c *Compile) error {
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	tables, err := json.Marshal(c.Tables)
	if err != nil {
		return fmt.Errorf("record compile: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO compiles
		(run_id, spec_path, tables, registry_sha256, flow_sha256, entry_count, repair_count, compiled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.RunID,
		c.SpecPath,
		string(tables),
		c.RegistrySHA256,
		c.FlowSHA256,
		c.EntryCount,
		c.RepairCount,
		c.CompiledAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record compile: %w", err)
	}
	if c.Seq, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("record compile: %w", err)
	}
	return nil
}

// Latest returns the most recent compile.
func (s *Store) Latest(ctx context.Context) (*Compile, error) {
	compiles, err := s.query(ctx, `ORDER BY seq DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(compiles) == 0 {
		return nil, ErrNoCompiles
	}
	return compiles[0], nil
}

// History returns up to limit compiles, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]*Compile, error) {
	return s.query(ctx, `ORDER BY seq DESC LIMIT ?`, limit)
}

func (s *Store) query(ctx context.Context, tail string, args ...any) ([]*Compile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, spec_path, tables, registry_sha256, flow_sha256,
		       entry_count, repair_count, compiled_at
		FROM compiles
		`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query compiles: %w", err)
	}
	defer rows.Close()

	var out []*Compile
	for rows.Next() {
		c, err := scanCompile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query compiles: %w", err)
	}
	return out, nil
}

func scanCompile(rows *sql.Rows) (*Compile, error) {
	var (
		c          Compile
		tables     string
		compiledAt string
	)
	if err := rows.Scan(&c.Seq, &c.RunID, &c.SpecPath, &tables, &c.RegistrySHA256,
		&c.FlowSHA256, &c.EntryCount, &c.RepairCount, &compiledAt); err != nil {
		return nil, fmt.Errorf("scan compile: %w", err)
	}
	if err := json.Unmarshal([]byte(tables), &c.Tables); err != nil {
		return nil, fmt.Errorf("scan compile %s: tables: %w", c.RunID, err)
	}
	t, err := time.Parse(time.RFC3339, compiledAt)
	if err != nil {
		return nil, fmt.Errorf("scan compile %s: compiled_at: %w", c.RunID, err)
	}
	c.CompiledAt = t
	return &c, nil
}
