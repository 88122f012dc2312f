/*
store.go - Persistence interfaces for the loyalty core

PURPOSE:
  Defines the boundary between domain logic and the database. The
  store is an explicit handle injected into every operation; there is
  no process-wide session. Different implementations back the same
  interfaces (SQLite for production, in-memory for tests).

APPEND-ONLY CONTRACT:
  The access ledger is append-only: AppendAccess is the only write,
  there is no update or delete for access rows. Customers and programs
  have ordinary lifecycles.

ATOMICITY:
  TxStore.WithTx runs a function against a transactional view of the
  store. If the function returns an error every write inside it is
  discarded; otherwise all are committed on the one exit path. Used by
  customer-creation-with-memberships and membership replacement so
  partial writes are never observable.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - loyalty/store: in-memory store for tests and dev
*/
package loyalty

import (
	"context"
	"time"
)

// =============================================================================
// CUSTOMER STORE
// =============================================================================

// CustomerStore persists customers. Lookups that miss return a
// NotFoundError, never a zero value with a nil error.
type CustomerStore interface {
	// CreateCustomer inserts the customer and assigns its ID.
	// The external Code must already be set and unique.
	CreateCustomer(ctx context.Context, c *Customer) error

	// CustomerByID returns the customer with the given id.
	CustomerByID(ctx context.Context, id CustomerID) (Customer, error)

	// CustomerByCode returns the customer with the given external code.
	CustomerByCode(ctx context.Context, code string) (Customer, error)

	// SearchCustomers filters by exact name and/or last name.
	// Empty arguments are not filtered on.
	SearchCustomers(ctx context.Context, name, lastName string) ([]Customer, error)

	// ListCustomers returns customers ordered by creation (id asc).
	ListCustomers(ctx context.Context, offset, limit int) ([]Customer, error)

	// DeleteCustomer removes the customer and, by cascade, its
	// memberships and access rows.
	DeleteCustomer(ctx context.Context, id CustomerID) error
}

// =============================================================================
// PROGRAM STORE
// =============================================================================

// ProgramStore persists reward program definitions.
type ProgramStore interface {
	// CreateProgram inserts the program and assigns its ID.
	CreateProgram(ctx context.Context, p *Program) error

	// ProgramByID returns the program with the given id.
	ProgramByID(ctx context.Context, id ProgramID) (Program, error)

	// ListPrograms returns programs ordered by creation (id asc).
	ListPrograms(ctx context.Context, offset, limit int) ([]Program, error)

	// ListCurrentPrograms returns programs valid on asOf,
	// half-open: valid_from <= asOf < valid_to.
	ListCurrentPrograms(ctx context.Context, asOf Date) ([]Program, error)
}

// =============================================================================
// MEMBERSHIP STORE
// =============================================================================

// MembershipStore persists the customer<->program association.
// Referential integrity (both sides must exist) is checked by the
// service layer before linking; the store only manages the links.
type MembershipStore interface {
	// AddMembership ensures the link exists. Duplicate add is a no-op.
	AddMembership(ctx context.Context, customerID CustomerID, programID ProgramID) error

	// ClearMemberships removes all links for the customer.
	ClearMemberships(ctx context.Context, customerID CustomerID) error

	// MembershipPrograms returns the customer's programs, id asc.
	MembershipPrograms(ctx context.Context, customerID CustomerID) ([]Program, error)

	// ProgramsForYear returns the customer's programs whose validity
	// window covers calendar year y (coarse year-of-endpoint overlap),
	// ordered by program id asc. The ordering is load-bearing: the
	// eligibility engine uses the first program returned.
	ProgramsForYear(ctx context.Context, customerID CustomerID, year int) ([]Program, error)
}

// =============================================================================
// ACCESS STORE - Append-only visit ledger
// =============================================================================

// AccessStore persists access events. Append-only.
type AccessStore interface {
	// AppendAccess inserts the event and assigns its ID.
	// This is the ONLY write operation on the ledger.
	AppendAccess(ctx context.Context, ev *AccessEvent) error

	// AccessesFor returns all events for the customer, time asc.
	AccessesFor(ctx context.Context, customerID CustomerID) ([]AccessEvent, error)

	// AccessHistory returns events time desc for external listing.
	// When includeImported is false, back-filled events are omitted.
	AccessHistory(ctx context.Context, customerID CustomerID, includeImported bool) ([]AccessEvent, error)

	// AccessesBetween returns events with At in [from, to), time asc.
	AccessesBetween(ctx context.Context, customerID CustomerID, from, to time.Time) ([]AccessEvent, error)

	// CountAccessesInYear counts events in the calendar-year window.
	// Imported and reward events both count.
	CountAccessesInYear(ctx context.Context, customerID CustomerID, year int) (int, error)
}

// =============================================================================
// COMPOSITE AND TRANSACTIONAL STORES
// =============================================================================

// Store is the full persistence surface the service operates on.
type Store interface {
	CustomerStore
	ProgramStore
	MembershipStore
	AccessStore
}

// TxStore wraps Store with an explicit unit of work.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional store view.
	// If fn returns an error the transaction is rolled back,
	// otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
