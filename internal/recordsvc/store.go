package recordsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// ErrNameRequired is returned when a record has no name.
var ErrNameRequired = errors.New("name is required")

// DefaultBusyTimeout is how long SQLite waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Record is a stored object. Fields holds every attribute other than the
// ones listed here; JSON output flattens them into one object.
type Record struct {
	ID        string
	Name      string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	out["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	out["updated_at"] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// Store keeps records of any kind in one SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps an
	// in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", DefaultBusyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Create stores a new record of kind. fields must carry a non-empty string
// "name"; "id", "created_at" and "updated_at" are assigned here and any
// supplied values are dropped.
func (s *Store) Create(ctx context.Context, kind string, fields map[string]any) (Record, error) {
	name, _ := fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Record{}, ErrNameRequired
	}

	extra := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case "id", "name", "created_at", "updated_at":
			continue
		}
		extra[k] = v
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	now := s.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Fields:    extra,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, kind, name, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, kind, rec.Name, string(data), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

// Get returns the record of kind with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, kind, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fields, created_at, updated_at FROM records WHERE kind = ? AND id = ?`,
		kind, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns every record of kind, oldest first.
func (s *Store) List(ctx context.Context, kind string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, fields, created_at, updated_at FROM records WHERE kind = ? ORDER BY created_at, id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec              Record
		data             string
		created, updated int64
	)
	if err := sc.Scan(&rec.ID, &rec.Name, &data, &created, &updated); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Fields); err != nil {
		return Record{}, fmt.Errorf("failed to decode fields of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return rec, nil
}
