/*
Package sqlite provides the SQLite-backed implementation of the loyalty
storage interfaces.

PURPOSE:
  Implements loyalty.Store and loyalty.TxStore using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  customers:   member records, unique external code
  programs:    reward program definitions with validity windows
  memberships: customer<->program links (composite primary key)
  accesses:    append-only visit ledger

APPEND-ONLY ENFORCEMENT:
  The accesses table is append-only:
  - No UPDATE statements on accesses
  - No standalone DELETE; rows go away only with their customer
    (ON DELETE CASCADE)

TIME ENCODING:
  Timestamps are stored as RFC3339 UTC strings, dates as YYYY-MM-DD.
  Both orders compare lexicographically, so range predicates work on
  the raw columns.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/loyalty.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - loyalty/store.go: Interface definitions
  - loyalty/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mttf/loyalty-engine/loyalty"
)

// Store implements loyalty.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the mutex serializes access anyway, and with
	// ":memory:" every pooled connection would otherwise get its own
	// empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_name
		ON customers(name, last_name);

	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT NOT NULL,
		accesses_to_trigger INTEGER NOT NULL,
		accesses_reward INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_programs_window
		ON programs(valid_from, valid_to);

	CREATE TABLE IF NOT EXISTS memberships (
		customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		program_id INTEGER NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		PRIMARY KEY (customer_id, program_id)
	);

	CREATE INDEX IF NOT EXISTS idx_memberships_program
		ON memberships(program_id);

	-- Append-only visit ledger
	CREATE TABLE IF NOT EXISTS accesses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		access_time TEXT NOT NULL,
		is_imported INTEGER NOT NULL DEFAULT 0,
		is_reward INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Hot path: access counting per customer per year window
	CREATE INDEX IF NOT EXISTS idx_accesses_customer_time
		ON accesses(customer_id, access_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so the same statement helpers
// serve both the plain store and transactional views.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeFormat = time.RFC3339

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =============================================================================
// CUSTOMER STORE
// =============================================================================

func (s *Store) CreateCustomer(ctx context.Context, c *loyalty.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCustomer(ctx, s.db, c)
}

func createCustomer(ctx context.Context, q querier, c *loyalty.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO customers (name, last_name, email, address, code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.LastName, c.Email, c.Address, c.Code,
		c.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &loyalty.StorageError{Op: "create customer", Err: loyalty.ErrConflict}
		}
		return &loyalty.StorageError{Op: "create customer", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return &loyalty.StorageError{Op: "create customer", Err: err}
	}
	c.ID = loyalty.CustomerID(id)
	return nil
}

const customerColumns = "id, name, last_name, email, address, code, created_at"

func (s *Store) CustomerByID(ctx context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return customerByID(ctx, s.db, id)
}

func customerByID(ctx context.Context, q querier, id loyalty.CustomerID) (loyalty.Customer, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
	return scanCustomerRow(row, loyalty.ByID(id))
}

func (s *Store) CustomerByCode(ctx context.Context, code string) (loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return customerByCode(ctx, s.db, code)
}

func customerByCode(ctx context.Context, q querier, code string) (loyalty.Customer, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE code = ?", code)
	return scanCustomerRow(row, loyalty.ByCode(code))
}

func scanCustomerRow(row *sql.Row, ref loyalty.CustomerRef) (loyalty.Customer, error) {
	var c loyalty.Customer
	var createdAt string

	err := row.Scan(&c.ID, &c.Name, &c.LastName, &c.Email, &c.Address, &c.Code, &createdAt)
	if err == sql.ErrNoRows {
		return loyalty.Customer{}, loyalty.CustomerNotFound(ref)
	}
	if err != nil {
		return loyalty.Customer{}, &loyalty.StorageError{Op: "get customer", Err: err}
	}

	c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return c, nil
}

func (s *Store) SearchCustomers(ctx context.Context, name, lastName string) ([]loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchCustomers(ctx, s.db, name, lastName)
}

func searchCustomers(ctx context.Context, q querier, name, lastName string) ([]loyalty.Customer, error) {
	query := "SELECT " + customerColumns + " FROM customers WHERE 1=1"
	var args []any
	if name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}
	if lastName != "" {
		query += " AND last_name = ?"
		args = append(args, lastName)
	}
	query += " ORDER BY id ASC"

	return queryCustomers(ctx, q, query, args...)
}

func (s *Store) ListCustomers(ctx context.Context, offset, limit int) ([]loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCustomers(ctx, s.db, offset, limit)
}

func listCustomers(ctx context.Context, q querier, offset, limit int) ([]loyalty.Customer, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	return queryCustomers(ctx, q,
		"SELECT "+customerColumns+" FROM customers ORDER BY id ASC LIMIT ? OFFSET ?",
		limit, offset)
}

func queryCustomers(ctx context.Context, q querier, query string, args ...any) ([]loyalty.Customer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &loyalty.StorageError{Op: "query customers", Err: err}
	}
	defer rows.Close()

	var customers []loyalty.Customer
	for rows.Next() {
		var c loyalty.Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.LastName, &c.Email, &c.Address, &c.Code, &createdAt); err != nil {
			return nil, &loyalty.StorageError{Op: "scan customer", Err: err}
		}
		c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) DeleteCustomer(ctx context.Context, id loyalty.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCustomer(ctx, s.db, id)
}

func deleteCustomer(ctx context.Context, q querier, id loyalty.CustomerID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return &loyalty.StorageError{Op: "delete customer", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &loyalty.StorageError{Op: "delete customer", Err: err}
	}
	if n == 0 {
		return loyalty.CustomerNotFound(loyalty.ByID(id))
	}
	return nil
}

// =============================================================================
// PROGRAM STORE
// =============================================================================

const programColumns = "id, name, valid_from, valid_to, accesses_to_trigger, accesses_reward, created_at"

func (s *Store) CreateProgram(ctx context.Context, p *loyalty.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createProgram(ctx, s.db, p)
}

func createProgram(ctx context.Context, q querier, p *loyalty.Program) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO programs (name, valid_from, valid_to, accesses_to_trigger, accesses_reward, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name,
		p.ValidFrom.String(),
		p.ValidTo.String(),
		p.AccessesToTrigger,
		p.AccessesReward,
		p.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return &loyalty.StorageError{Op: "create program", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return &loyalty.StorageError{Op: "create program", Err: err}
	}
	p.ID = loyalty.ProgramID(id)
	return nil
}

func (s *Store) ProgramByID(ctx context.Context, id loyalty.ProgramID) (loyalty.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return programByID(ctx, s.db, id)
}

func programByID(ctx context.Context, q querier, id loyalty.ProgramID) (loyalty.Program, error) {
	programs, err := queryPrograms(ctx, q,
		"SELECT "+programColumns+" FROM programs WHERE id = ?", id)
	if err != nil {
		return loyalty.Program{}, err
	}
	if len(programs) == 0 {
		return loyalty.Program{}, loyalty.ProgramNotFound(id)
	}
	return programs[0], nil
}

func (s *Store) ListPrograms(ctx context.Context, offset, limit int) ([]loyalty.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPrograms(ctx, s.db, offset, limit)
}

func listPrograms(ctx context.Context, q querier, offset, limit int) ([]loyalty.Program, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryPrograms(ctx, q,
		"SELECT "+programColumns+" FROM programs ORDER BY id ASC LIMIT ? OFFSET ?",
		limit, offset)
}

func (s *Store) ListCurrentPrograms(ctx context.Context, asOf loyalty.Date) ([]loyalty.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCurrentPrograms(ctx, s.db, asOf)
}

func listCurrentPrograms(ctx context.Context, q querier, asOf loyalty.Date) ([]loyalty.Program, error) {
	// Half-open window: valid_from <= asOf < valid_to.
	return queryPrograms(ctx, q,
		"SELECT "+programColumns+` FROM programs
		 WHERE valid_from <= ? AND valid_to > ?
		 ORDER BY id ASC`,
		asOf.String(), asOf.String())
}

func queryPrograms(ctx context.Context, q querier, query string, args ...any) ([]loyalty.Program, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &loyalty.StorageError{Op: "query programs", Err: err}
	}
	defer rows.Close()

	var programs []loyalty.Program
	for rows.Next() {
		var p loyalty.Program
		var validFrom, validTo, createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &validFrom, &validTo,
			&p.AccessesToTrigger, &p.AccessesReward, &createdAt); err != nil {
			return nil, &loyalty.StorageError{Op: "scan program", Err: err}
		}
		p.ValidFrom, _ = loyalty.ParseDate(validFrom)
		p.ValidTo, _ = loyalty.ParseDate(validTo)
		p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// =============================================================================
// MEMBERSHIP STORE
// =============================================================================

func (s *Store) AddMembership(ctx context.Context, customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addMembership(ctx, s.db, customerID, programID)
}

func addMembership(ctx context.Context, q querier, customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	// Duplicate enrollment is a no-op.
	_, err := q.ExecContext(ctx,
		`INSERT INTO memberships (customer_id, program_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(customer_id, program_id) DO NOTHING`,
		customerID, programID, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return &loyalty.StorageError{Op: "add membership", Err: err}
	}
	return nil
}

func (s *Store) ClearMemberships(ctx context.Context, customerID loyalty.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clearMemberships(ctx, s.db, customerID)
}

func clearMemberships(ctx context.Context, q querier, customerID loyalty.CustomerID) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM memberships WHERE customer_id = ?", customerID)
	if err != nil {
		return &loyalty.StorageError{Op: "clear memberships", Err: err}
	}
	return nil
}

func (s *Store) MembershipPrograms(ctx context.Context, customerID loyalty.CustomerID) ([]loyalty.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return membershipPrograms(ctx, s.db, customerID)
}

func membershipPrograms(ctx context.Context, q querier, customerID loyalty.CustomerID) ([]loyalty.Program, error) {
	return queryPrograms(ctx, q,
		`SELECT p.id, p.name, p.valid_from, p.valid_to, p.accesses_to_trigger, p.accesses_reward, p.created_at
		 FROM programs p
		 JOIN memberships m ON m.program_id = p.id
		 WHERE m.customer_id = ?
		 ORDER BY p.id ASC`,
		customerID)
}

func (s *Store) ProgramsForYear(ctx context.Context, customerID loyalty.CustomerID, year int) ([]loyalty.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return programsForYear(ctx, s.db, customerID, year)
}

func programsForYear(ctx context.Context, q querier, customerID loyalty.CustomerID, year int) ([]loyalty.Program, error) {
	// Coarse year-of-endpoint overlap, ordered by id: the first row is
	// the program the eligibility engine uses.
	return queryPrograms(ctx, q,
		`SELECT p.id, p.name, p.valid_from, p.valid_to, p.accesses_to_trigger, p.accesses_reward, p.created_at
		 FROM programs p
		 JOIN memberships m ON m.program_id = p.id
		 WHERE m.customer_id = ?
		   AND CAST(strftime('%Y', p.valid_from) AS INTEGER) <= ?
		   AND CAST(strftime('%Y', p.valid_to) AS INTEGER) >= ?
		 ORDER BY p.id ASC`,
		customerID, year, year)
}

// =============================================================================
// ACCESS STORE - Append-only. No UPDATE, no standalone DELETE.
// =============================================================================

const accessColumns = "id, customer_id, access_time, is_imported, is_reward"

func (s *Store) AppendAccess(ctx context.Context, ev *loyalty.AccessEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAccess(ctx, s.db, ev)
}

func appendAccess(ctx context.Context, q querier, ev *loyalty.AccessEvent) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO accesses (customer_id, access_time, is_imported, is_reward, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.CustomerID,
		ev.At.UTC().Format(timeFormat),
		ev.Imported,
		ev.Reward,
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return &loyalty.StorageError{Op: "append access", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return &loyalty.StorageError{Op: "append access", Err: err}
	}
	ev.ID = loyalty.AccessID(id)
	return nil
}

func (s *Store) AccessesFor(ctx context.Context, customerID loyalty.CustomerID) ([]loyalty.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return accessesFor(ctx, s.db, customerID)
}

func accessesFor(ctx context.Context, q querier, customerID loyalty.CustomerID) ([]loyalty.AccessEvent, error) {
	return queryAccesses(ctx, q,
		"SELECT "+accessColumns+` FROM accesses
		 WHERE customer_id = ?
		 ORDER BY access_time ASC, id ASC`,
		customerID)
}

func (s *Store) AccessHistory(ctx context.Context, customerID loyalty.CustomerID, includeImported bool) ([]loyalty.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return accessHistory(ctx, s.db, customerID, includeImported)
}

func accessHistory(ctx context.Context, q querier, customerID loyalty.CustomerID, includeImported bool) ([]loyalty.AccessEvent, error) {
	query := "SELECT " + accessColumns + " FROM accesses WHERE customer_id = ?"
	if !includeImported {
		query += " AND is_imported = 0"
	}
	query += " ORDER BY access_time DESC, id DESC"

	return queryAccesses(ctx, q, query, customerID)
}

func (s *Store) AccessesBetween(ctx context.Context, customerID loyalty.CustomerID, from, to time.Time) ([]loyalty.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return accessesBetween(ctx, s.db, customerID, from, to)
}

func accessesBetween(ctx context.Context, q querier, customerID loyalty.CustomerID, from, to time.Time) ([]loyalty.AccessEvent, error) {
	return queryAccesses(ctx, q,
		"SELECT "+accessColumns+` FROM accesses
		 WHERE customer_id = ? AND access_time >= ? AND access_time < ?
		 ORDER BY access_time ASC, id ASC`,
		customerID,
		from.UTC().Format(timeFormat),
		to.UTC().Format(timeFormat))
}

func (s *Store) CountAccessesInYear(ctx context.Context, customerID loyalty.CustomerID, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countAccessesInYear(ctx, s.db, customerID, year)
}

func countAccessesInYear(ctx context.Context, q querier, customerID loyalty.CustomerID, year int) (int, error) {
	from, to := loyalty.YearWindow(year)

	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accesses
		 WHERE customer_id = ? AND access_time >= ? AND access_time < ?`,
		customerID,
		from.Format(timeFormat),
		to.Format(timeFormat),
	).Scan(&count)
	if err != nil {
		return 0, &loyalty.StorageError{Op: "count accesses", Err: err}
	}
	return count, nil
}

func queryAccesses(ctx context.Context, q querier, query string, args ...any) ([]loyalty.AccessEvent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &loyalty.StorageError{Op: "query accesses", Err: err}
	}
	defer rows.Close()

	var events []loyalty.AccessEvent
	for rows.Next() {
		var ev loyalty.AccessEvent
		var at string
		if err := rows.Scan(&ev.ID, &ev.CustomerID, &at, &ev.Imported, &ev.Reward); err != nil {
			return nil, &loyalty.StorageError{Op: "scan access", Err: err}
		}
		ev.At, _ = time.Parse(timeFormat, at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (loyalty.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. If fn returns an
// error the transaction is rolled back, otherwise committed.
func (s *Store) WithTx(ctx context.Context, fn func(loyalty.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &loyalty.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &loyalty.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// txStore routes every operation through the open *sql.Tx. The parent
// mutex is held for the duration of WithTx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateCustomer(ctx context.Context, c *loyalty.Customer) error {
	return createCustomer(ctx, ts.tx, c)
}

func (ts *txStore) CustomerByID(ctx context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	return customerByID(ctx, ts.tx, id)
}

func (ts *txStore) CustomerByCode(ctx context.Context, code string) (loyalty.Customer, error) {
	return customerByCode(ctx, ts.tx, code)
}

func (ts *txStore) SearchCustomers(ctx context.Context, name, lastName string) ([]loyalty.Customer, error) {
	return searchCustomers(ctx, ts.tx, name, lastName)
}

func (ts *txStore) ListCustomers(ctx context.Context, offset, limit int) ([]loyalty.Customer, error) {
	return listCustomers(ctx, ts.tx, offset, limit)
}

func (ts *txStore) DeleteCustomer(ctx context.Context, id loyalty.CustomerID) error {
	return deleteCustomer(ctx, ts.tx, id)
}

func (ts *txStore) CreateProgram(ctx context.Context, p *loyalty.Program) error {
	return createProgram(ctx, ts.tx, p)
}

func (ts *txStore) ProgramByID(ctx context.Context, id loyalty.ProgramID) (loyalty.Program, error) {
	return programByID(ctx, ts.tx, id)
}

func (ts *txStore) ListPrograms(ctx context.Context, offset, limit int) ([]loyalty.Program, error) {
	return listPrograms(ctx, ts.tx, offset, limit)
}

func (ts *txStore) ListCurrentPrograms(ctx context.Context, asOf loyalty.Date) ([]loyalty.Program, error) {
	return listCurrentPrograms(ctx, ts.tx, asOf)
}

func (ts *txStore) AddMembership(ctx context.Context, customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	return addMembership(ctx, ts.tx, customerID, programID)
}

func (ts *txStore) ClearMemberships(ctx context.Context, customerID loyalty.CustomerID) error {
	return clearMemberships(ctx, ts.tx, customerID)
}

func (ts *txStore) MembershipPrograms(ctx context.Context, customerID loyalty.CustomerID) ([]loyalty.Program, error) {
	return membershipPrograms(ctx, ts.tx, customerID)
}

func (ts *txStore) ProgramsForYear(ctx context.Context, customerID loyalty.CustomerID, year int) ([]loyalty.Program, error) {
	return programsForYear(ctx, ts.tx, customerID, year)
}

func (ts *txStore) AppendAccess(ctx context.Context, ev *loyalty.AccessEvent) error {
	return appendAccess(ctx, ts.tx, ev)
}

func (ts *txStore) AccessesFor(ctx context.Context, customerID loyalty.CustomerID) ([]loyalty.AccessEvent, error) {
	return accessesFor(ctx, ts.tx, customerID)
}

func (ts *txStore) AccessHistory(ctx context.Context, customerID loyalty.CustomerID, includeImported bool) ([]loyalty.AccessEvent, error) {
	return accessHistory(ctx, ts.tx, customerID, includeImported)
}

func (ts *txStore) AccessesBetween(ctx context.Context, customerID loyalty.CustomerID, from, to time.Time) ([]loyalty.AccessEvent, error) {
	return accessesBetween(ctx, ts.tx, customerID, from, to)
}

func (ts *txStore) CountAccessesInYear(ctx context.Context, customerID loyalty.CustomerID, year int) (int, error) {
	return countAccessesInYear(ctx, ts.tx, customerID, year)
}
