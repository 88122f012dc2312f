/*
Package loyalty contains the core domain model and rules for the
loyalty-program backend.

PURPOSE:
  This package owns the entities (Customer, Program, Membership,
  AccessEvent) and the one piece of real business logic in the system:
  deciding whether a customer's next visit earns a reward. Everything
  around it (HTTP, persistence, metrics) is replaceable glue.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: a registered member with a stable external code
  - Program: a time-bounded reward program with cadence parameters
  - AccessEvent: one immutable entry in the append-only visit ledger
  - CustomerRef: a tagged reference, by numeric id OR by external code

DESIGN PRINCIPLES:
  1. Immutability: access events are never updated or deleted
  2. Explicit identity: CustomerRef is resolved once at the boundary,
     core logic only ever sees a CustomerID
  3. Type safety: CustomerID and ProgramID are distinct types

SEE ALSO:
  - eligibility.go: The reward-cadence decision
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package loyalty

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID int64
type ProgramID int64
type AccessID int64

// CustomerRef identifies a customer either by numeric id or by the
// opaque external code printed on their pass. Exactly one side is set.
// Boundaries resolve a ref to a Customer once; core operations then
// work with the internal CustomerID only.
type CustomerRef struct {
	id   CustomerID
	code string
}

// ByID builds a reference from the internal numeric id.
func ByID(id CustomerID) CustomerRef { return CustomerRef{id: id} }

// ByCode builds a reference from the external code.
func ByCode(code string) CustomerRef { return CustomerRef{code: code} }

// IsByCode reports whether the reference carries an external code.
func (r CustomerRef) IsByCode() bool { return r.code != "" }

// ID returns the numeric id side of the reference (zero if by code).
func (r CustomerRef) ID() CustomerID { return r.id }

// Code returns the external code side of the reference (empty if by id).
func (r CustomerRef) Code() string { return r.code }

func (r CustomerRef) String() string {
	if r.IsByCode() {
		return "code:" + r.code
	}
	return fmt.Sprintf("id:%d", r.id)
}

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is a registered member of the club.
// Code is the unique external identifier (distributed as a QR code);
// it is generated once at creation and never changes.
type Customer struct {
	ID        CustomerID
	Name      string
	LastName  string
	Email     string
	Address   string
	Code      string
	CreatedAt time.Time
}

// NewCustomer carries the input for customer creation.
// ProgramIDs, when non-empty, are installed as the initial membership
// set in the same unit of work as the customer row.
type NewCustomer struct {
	Name       string
	LastName   string
	Email      string
	Address    string
	ProgramIDs []ProgramID
}

// =============================================================================
// PROGRAM
// =============================================================================

// Program is a reward program with a validity window [ValidFrom, ValidTo)
// at date granularity and two cadence parameters:
//
//   AccessesToTrigger  visits required before a reward
//   AccessesReward     reward-eligible visits granted per cycle
//
// Together they define a repeating cycle of length
// AccessesToTrigger+AccessesReward in which the trailing AccessesReward
// positions are reward-eligible. See eligibility.go.
type Program struct {
	ID                ProgramID
	Name              string
	ValidFrom         Date
	ValidTo           Date
	AccessesToTrigger int
	AccessesReward    int
	CreatedAt         time.Time
}

// RewardCycle returns the length of one reward cycle.
func (p Program) RewardCycle() int { return p.AccessesToTrigger + p.AccessesReward }

// CurrentAt reports whether the program is valid on the given date,
// half-open: ValidFrom <= d < ValidTo.
func (p Program) CurrentAt(d Date) bool {
	return p.ValidFrom.BeforeOrEqual(d) && d.Before(p.ValidTo)
}

// CoversYear reports whether the program counts for calendar year y.
// The overlap test is deliberately coarse, by calendar year of the
// window endpoints rather than exact dates: a program counts for Y if
// year(ValidFrom) <= Y <= year(ValidTo).
func (p Program) CoversYear(y int) bool {
	return p.ValidFrom.Year() <= y && y <= p.ValidTo.Year()
}

// =============================================================================
// ACCESS EVENT
// =============================================================================

// AccessEvent is one entry in the append-only visit ledger.
//
//   Imported  the event was back-filled from historical data, not a
//             live visit; hidden from public history but still counted
//             toward eligibility
//   Reward    this visit WAS the redemption of a reward rather than a
//             step toward the next one
//
// Events are immutable once recorded. No update, no delete.
type AccessEvent struct {
	ID         AccessID
	CustomerID CustomerID
	At         time.Time
	Imported   bool
	Reward     bool
}
