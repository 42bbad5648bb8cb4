package align

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS pages (
	page         TEXT PRIMARY KEY,
	fingerprint  TEXT NOT NULL,
	output       TEXT NOT NULL,
	nodes        INTEGER NOT NULL,
	run_id       TEXT NOT NULL,
	processed_at TEXT NOT NULL
);`

// Ledger keeps record of successfully processed pages between runs.
type Ledger struct {
	mu    sync.Mutex
	conn  *sqlite.Conn
	runID string
}

// LedgerEntry is a single record of processed page.
type LedgerEntry struct {
	Page        string
	Fingerprint string
	Output      string
	Nodes       int
	RunID       string
	ProcessedAt time.Time
}

// OpenLedger opens (creating when necessary) ledger database. Every opened
// ledger gets new time ordered run identifier.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create ledger directory: %w", err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open ledger %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, ledgerSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare ledger schema: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to generate run id: %w", err)
	}
	return &Ledger{conn: conn, runID: id.String()}, nil
}

// RunID returns identifier of the current run.
func (l *Ledger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Close closes ledger database.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}

// Lookup returns recorded entry for the page if any.
func (l *Ledger) Lookup(page string) (*LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entry *LedgerEntry
	err := sqlitex.Execute(l.conn,
		`SELECT fingerprint, output, nodes, run_id, processed_at FROM pages WHERE page = ?`,
		&sqlitex.ExecOptions{
			Args: []any{page},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				at, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(4))
				if err != nil {
					return fmt.Errorf("bad processing time for %s: %w", page, err)
				}
				entry = &LedgerEntry{
					Page:        page,
					Fingerprint: stmt.ColumnText(0),
					Output:      stmt.ColumnText(1),
					Nodes:       stmt.ColumnInt(2),
					RunID:       stmt.ColumnText(3),
					ProcessedAt: at,
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to query ledger: %w", err)
	}
	return entry, nil
}

// UpToDate reports whether page was processed with the same inputs and its
// output still exists.
func (l *Ledger) UpToDate(page, fingerprint, output string) (bool, error) {
	if l == nil {
		return false, nil
	}
	entry, err := l.Lookup(page)
	if err != nil || entry == nil {
		return false, err
	}
	if entry.Fingerprint != fingerprint || entry.Output != output {
		return false, nil
	}
	if _, err := os.Stat(output); err != nil {
		return false, nil
	}
	return true, nil
}

// Record stores result of successful page processing.
func (l *Ledger) Record(page, fingerprint, output string, nodes int) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	err := sqlitex.Execute(l.conn,
		`INSERT INTO pages (page, fingerprint, output, nodes, run_id, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(page) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			output = excluded.output,
			nodes = excluded.nodes,
			run_id = excluded.run_id,
			processed_at = excluded.processed_at`,
		&sqlitex.ExecOptions{
			Args: []any{page, fingerprint, output, nodes, l.runID, time.Now().UTC().Format(time.RFC3339Nano)},
		})
	if err != nil {
		return fmt.Errorf("unable to record page %s: %w", page, err)
	}
	return nil
}

// Fingerprint hashes everything page output depends on. Parts are length
// prefixed so moving bytes between them changes the result.
func Fingerprint(parts ...[]byte) string {
	h := blake3.New()
	var size [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
