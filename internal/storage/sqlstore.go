package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// DefaultSQLiteFile is used when the sqlite driver is selected without a DSN.
const DefaultSQLiteFile = "bdb.db"

// schema works on both sqlite and postgres. Filterable columns are broken out;
// the full record is kept as JSON in data.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    created TEXT NOT NULL,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    seq BIGINT NOT NULL,
    project_id TEXT NOT NULL REFERENCES projects (id),
    status TEXT NOT NULL,
    phase_name TEXT NOT NULL,
    source TEXT NOT NULL,
    data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks (project_id, seq);
`

// updateLockKey is the postgres advisory lock that serializes Update across
// processes sharing one database.
const updateLockKey int64 = 0x62646275

// sqlStore implements core.TaskStore over database/sql. Every write goes
// straight to the database, so Load and Save are no-ops.
type sqlStore struct {
	conn    *sql.DB
	dialect models.StorageDriver
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// sqlTx runs store operations against a connection or an open transaction.
type sqlTx struct {
	q       querier
	dialect models.StorageDriver
}

// OpenSQLiteStore opens (creating if needed) a sqlite database at path.
func OpenSQLiteStore(path string) (core.TaskStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	// Immediate transactions take the write lock at BEGIN, so concurrent
	// Updates from other processes queue instead of failing on upgrade.
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	conn.SetMaxOpenConns(1)
	return newSQLStore(conn, models.StorageSQLite)
}

// OpenPostgresStore connects to postgres using dsn.
func OpenPostgresStore(dsn string) (core.TaskStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	return newSQLStore(sql.OpenDB(connector), models.StoragePostgres)
}

func newSQLStore(conn *sql.DB, dialect models.StorageDriver) (*sqlStore, error) {
	s := &sqlStore{conn: conn, dialect: dialect}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) migrate() error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func rebind(dialect models.StorageDriver, query string) string {
	if dialect != models.StoragePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) tx() *sqlTx { return &sqlTx{q: s.conn, dialect: s.dialect} }

func (s *sqlStore) SaveProject(project models.Project) error { return s.tx().SaveProject(project) }

func (s *sqlStore) GetProject(projectID string) (*models.Project, error) {
	return s.tx().GetProject(projectID)
}

func (s *sqlStore) ListProjects() ([]models.Project, error) { return s.tx().ListProjects() }

// AddTasks inserts all tasks in one transaction.
func (s *sqlStore) AddTasks(tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return s.Update(func(tx core.TaskTx) error { return tx.AddTasks(tasks) })
}

func (s *sqlStore) UpdateTask(task models.Task) error { return s.tx().UpdateTask(task) }

func (s *sqlStore) GetTask(taskID string) (*models.Task, error) { return s.tx().GetTask(taskID) }

func (s *sqlStore) ListTasks(filter core.TaskFilter) ([]models.Task, error) {
	return s.tx().ListTasks(filter)
}

// Update runs fn inside one database transaction and commits only when fn
// succeeds. On postgres the transaction also takes an advisory lock so
// read-modify-write cycles from other processes wait their turn.
func (s *sqlStore) Update(fn func(tx core.TaskTx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.dialect == models.StoragePostgres {
		if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, updateLockKey); err != nil {
			return fmt.Errorf("acquiring update lock: %w", err)
		}
	}
	if err := fn(&sqlTx{q: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) SaveProject(project models.Project) error {
	if project.ID == "" {
		return fmt.Errorf("saving project: ID must not be empty")
	}
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("saving project %s: encoding: %w", project.ID, err)
	}
	_, err = t.q.Exec(t.rebind(`
		INSERT INTO projects (id, created, data) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`),
		project.ID, project.Created.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("saving project %s: %w", project.ID, err)
	}
	return nil
}

func (t *sqlTx) GetProject(projectID string) (*models.Project, error) {
	var data string
	err := t.q.QueryRow(t.rebind(`SELECT data FROM projects WHERE id = ?`), projectID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, core.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project %s: %w", projectID, err)
	}
	var p models.Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decoding project %s: %w", projectID, err)
	}
	return &p, nil
}

func (t *sqlTx) ListProjects() ([]models.Project, error) {
	rows, err := t.q.Query(`SELECT data FROM projects ORDER BY created, id`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		var p models.Project
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AddTasks numbers tasks after the highest existing sequence so ListTasks
// preserves insertion order.
func (t *sqlTx) AddTasks(tasks []models.Task) error {
	var seq int64
	if err := t.q.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM tasks`).Scan(&seq); err != nil {
		return fmt.Errorf("adding tasks: reading sequence: %w", err)
	}

	insert := t.rebind(`
		INSERT INTO tasks (id, seq, project_id, status, phase_name, source, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("adding task %q: ID must not be empty", task.Title)
		}
		var exists int
		err := t.q.QueryRow(t.rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), task.ProjectID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("adding task %s: %w", task.ID, err)
		}
		if exists == 0 {
			return fmt.Errorf("adding task %s: project %s: %w", task.ID, task.ProjectID, core.ErrProjectNotFound)
		}

		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("adding task %s: encoding: %w", task.ID, err)
		}
		seq++
		if _, err := t.q.Exec(insert, task.ID, seq, task.ProjectID, string(task.Status), task.PhaseName, string(task.Source), string(data)); err != nil {
			return fmt.Errorf("adding task %s: %w", task.ID, err)
		}
	}
	return nil
}

func (t *sqlTx) UpdateTask(task models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("updating task %s: encoding: %w", task.ID, err)
	}
	res, err := t.q.Exec(t.rebind(`
		UPDATE tasks SET status = ?, phase_name = ?, source = ?, data = ? WHERE id = ?`),
		string(task.Status), task.PhaseName, string(task.Source), string(data), task.ID)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating task %s: %w", task.ID, core.ErrTaskNotFound)
	}
	return nil
}

func (t *sqlTx) GetTask(taskID string) (*models.Task, error) {
	var data string
	err := t.q.QueryRow(t.rebind(`SELECT data FROM tasks WHERE id = ?`), taskID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, core.ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying task %s: %w", taskID, err)
	}
	var task models.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", taskID, err)
	}
	return &task, nil
}

func (t *sqlTx) ListTasks(filter core.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Phase != "" {
		where = append(where, "phase_name = ?")
		args = append(args, filter.Phase)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(filter.Source))
	}

	query := `SELECT data FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := t.q.Query(t.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		var task models.Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, fmt.Errorf("decoding task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (t *sqlTx) rebind(query string) string {
	return rebind(t.dialect, query)
}

func (s *sqlStore) Load() error { return nil }
func (s *sqlStore) Save() error { return nil }

func (s *sqlStore) Close() error {
	return s.conn.Close()
}
