// Package sqlite implements the table storage runtime on SQLite. Each table
// handle exposes begin/end primitives; every Begin runs its work on its own
// goroutine under a cancelable context, and Cancel cancels that context.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// dbFileName is the database file created inside Config.DataDir.
const dbFileName = "tables.db"

// tableNamePattern is the table service naming rule: alphanumeric, starting
// with a letter, 3 to 63 characters.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,62}$`)

// Backend implements types.Service using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*Table

	// ctx is the parent of every primitive's context; Detach cancels it and
	// waits on inflight before closing the database.
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	// beforeRun, when set, is called on the primitive's goroutine before
	// its work starts. Tests use it to hold a primitive open.
	beforeRun func(ctx context.Context, op string)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]*Table),
	}
}

// Attach opens (or creates) DataDir/tables.db and applies the schema.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		filepath.Join(dataDir, dbFileName), config.SQLite.GetBusyTimeoutMS())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers inside the process; cross-process
	// contention is handled by busy_timeout.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.attached = true
	return nil
}

// Detach cancels in-flight primitives, waits for them to finish and closes
// the database. After Detach, new primitives fail with ErrBackendDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil
	}
	b.attached = false
	b.cancel()
	b.mu.Unlock()

	b.inflight.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables = make(map[string]*Table)
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}

// Table returns the runtime handle for name. Names are case-insensitive;
// the handle keeps the spelling it was first requested with.
func (b *Backend) Table(name string) (types.TableRuntime, error) {
	if !tableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidTableName, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	key := strings.ToLower(name)
	if t, ok := b.tables[key]; ok {
		return t, nil
	}
	t := &Table{name: name, key: key, backend: b}
	b.tables[key] = t
	return t, nil
}

// ListTables returns the names of existing tables sorted by name.
func (b *Backend) ListTables() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}

	rows, err := b.db.QueryContext(b.ctx, `SELECT name FROM tables ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// acquire registers a primitive with the backend. It returns the parent
// context and the database, or ErrBackendDetached. The caller must call
// release when the primitive finishes.
func (b *Backend) acquire() (context.Context, *sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, nil, types.ErrBackendDetached
	}
	b.inflight.Add(1)
	return b.ctx, b.db, nil
}

func (b *Backend) release() {
	b.inflight.Done()
}

// newETag generates a UUID v7 ETag.
func newETag() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

var _ types.Service = (*Backend)(nil)
