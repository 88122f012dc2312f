/*
service.go - Domain operations over the store

PURPOSE:
  The Service is the single entry point for all domain operations:
  program catalog, customer registry, membership management and the
  access ledger. It validates input, resolves customer references, and
  scopes multi-step writes inside WithTx units of work.

TRANSACTION BOUNDARIES:
  CreateCustomer (with initial programs) and ReplaceMemberships are
  all-or-nothing: on any failure mid-operation every write is
  discarded. RecordAccess is a single-row append, atomic by itself.

SEE ALSO:
  - eligibility.go: RewardDue lives there
  - store.go: The interfaces Service depends on
*/
package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service implements the loyalty operations over an injected store.
type Service struct {
	store TxStore
	log   zerolog.Logger
}

// NewService creates a Service bound to the given store.
func NewService(store TxStore, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// resolve turns a CustomerRef into the customer it names, against the
// given store view (so it also works inside transactions).
func (s *Service) resolve(ctx context.Context, store Store, ref CustomerRef) (Customer, error) {
	if ref.IsByCode() {
		return store.CustomerByCode(ctx, ref.Code())
	}
	return store.CustomerByID(ctx, ref.ID())
}

// =============================================================================
// PROGRAM CATALOG
// =============================================================================

// CreateProgram validates and stores a program definition.
func (s *Service) CreateProgram(ctx context.Context, name string, validFrom, validTo Date, accessesToTrigger, accessesReward int) (Program, error) {
	if name == "" {
		return Program{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !validFrom.Before(validTo) {
		return Program{}, &ValidationError{Field: "valid_from", Reason: "must be before valid_to"}
	}
	if accessesToTrigger <= 0 {
		return Program{}, &ValidationError{Field: "num_access_to_trigger", Reason: "must be positive"}
	}
	if accessesReward <= 0 {
		return Program{}, &ValidationError{Field: "num_accesses_reward", Reason: "must be positive"}
	}

	p := Program{
		Name:              name,
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		AccessesToTrigger: accessesToTrigger,
		AccessesReward:    accessesReward,
	}
	if err := s.store.CreateProgram(ctx, &p); err != nil {
		return Program{}, err
	}

	s.log.Info().
		Int64("program_id", int64(p.ID)).
		Str("name", p.Name).
		Str("valid_from", p.ValidFrom.String()).
		Str("valid_to", p.ValidTo.String()).
		Msg("program created")
	return p, nil
}

// ListPrograms returns programs in creation order.
func (s *Service) ListPrograms(ctx context.Context, offset, limit int) ([]Program, error) {
	return s.store.ListPrograms(ctx, offset, limit)
}

// ListCurrentPrograms returns programs valid on asOf.
func (s *Service) ListCurrentPrograms(ctx context.Context, asOf Date) ([]Program, error) {
	return s.store.ListCurrentPrograms(ctx, asOf)
}

// =============================================================================
// CUSTOMER REGISTRY
// =============================================================================

// CreateCustomer registers a customer and assigns a fresh external
// code. If initial program ids are given, the memberships are installed
// in the same transaction: either the customer exists with its full
// membership set, or nothing was written.
func (s *Service) CreateCustomer(ctx context.Context, in NewCustomer) (Customer, error) {
	if in.Name == "" {
		return Customer{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.LastName == "" {
		return Customer{}, &ValidationError{Field: "last_name", Reason: "must not be empty"}
	}
	if in.Email == "" {
		return Customer{}, &ValidationError{Field: "email", Reason: "must not be empty"}
	}

	c := Customer{
		Name:     in.Name,
		LastName: in.LastName,
		Email:    in.Email,
		Address:  in.Address,
		Code:     uuid.NewString(),
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateCustomer(ctx, &c); err != nil {
			return err
		}
		return replaceMemberships(ctx, tx, c.ID, in.ProgramIDs)
	})
	if err != nil {
		return Customer{}, err
	}

	s.log.Info().
		Int64("customer_id", int64(c.ID)).
		Str("name", c.Name).
		Str("last_name", c.LastName).
		Msg("customer created")
	return c, nil
}

// CustomerByRef resolves a customer by id or external code.
func (s *Service) CustomerByRef(ctx context.Context, ref CustomerRef) (Customer, error) {
	return s.resolve(ctx, s.store, ref)
}

// SearchCustomers filters by exact name and/or last name. At least one
// filter must be given.
func (s *Service) SearchCustomers(ctx context.Context, name, lastName string) ([]Customer, error) {
	if name == "" && lastName == "" {
		return nil, &ValidationError{Field: "name", Reason: "at least one of name or last_name must be provided"}
	}
	return s.store.SearchCustomers(ctx, name, lastName)
}

// ListCustomers returns customers in creation order.
func (s *Service) ListCustomers(ctx context.Context, offset, limit int) ([]Customer, error) {
	return s.store.ListCustomers(ctx, offset, limit)
}

// DeleteCustomer removes a customer and cascades its memberships.
func (s *Service) DeleteCustomer(ctx context.Context, id CustomerID) (Customer, error) {
	c, err := s.store.CustomerByID(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return Customer{}, err
	}

	s.log.Info().Int64("customer_id", int64(id)).Msg("customer deleted")
	return c, nil
}

// =============================================================================
// MEMBERSHIP REGISTRY
// =============================================================================

// AddMembership enrolls the customer in one more program. Fails with a
// NotFoundError if either side is absent; enrolling twice is a no-op.
func (s *Service) AddMembership(ctx context.Context, customerID CustomerID, programID ProgramID) error {
	if _, err := s.store.CustomerByID(ctx, customerID); err != nil {
		return err
	}
	if _, err := s.store.ProgramByID(ctx, programID); err != nil {
		return err
	}
	return s.store.AddMembership(ctx, customerID, programID)
}

// ReplaceMemberships atomically replaces the customer's membership set
// with exactly programIDs. If the customer or ANY program id is absent
// the prior set is left untouched. Duplicate ids collapse to one
// membership; an empty list clears all memberships.
func (s *Service) ReplaceMemberships(ctx context.Context, customerID CustomerID, programIDs []ProgramID) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.CustomerByID(ctx, customerID); err != nil {
			return err
		}
		return replaceMemberships(ctx, tx, customerID, programIDs)
	})
}

// replaceMemberships is the transactional body shared by
// ReplaceMemberships and CreateCustomer. All program ids are resolved
// before any link is written, so a missing program aborts the
// transaction with the prior set intact.
func replaceMemberships(ctx context.Context, tx Store, customerID CustomerID, programIDs []ProgramID) error {
	if len(programIDs) == 0 {
		return tx.ClearMemberships(ctx, customerID)
	}

	for _, id := range programIDs {
		if _, err := tx.ProgramByID(ctx, id); err != nil {
			return err
		}
	}

	if err := tx.ClearMemberships(ctx, customerID); err != nil {
		return err
	}
	for _, id := range programIDs {
		if err := tx.AddMembership(ctx, customerID, id); err != nil {
			return err
		}
	}
	return nil
}

// MembershipPrograms returns all programs the customer is enrolled in.
func (s *Service) MembershipPrograms(ctx context.Context, customerID CustomerID) ([]Program, error) {
	if _, err := s.store.CustomerByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.MembershipPrograms(ctx, customerID)
}

// =============================================================================
// ACCESS LEDGER
// =============================================================================

// RecordAccess appends one immutable event to the customer's ledger and
// returns both the event and the customer it resolved to. Note the
// ordering contract with RewardDue: query eligibility BEFORE recording
// the access it decides about.
func (s *Service) RecordAccess(ctx context.Context, ref CustomerRef, at time.Time, imported, reward bool) (AccessEvent, Customer, error) {
	customer, err := s.resolve(ctx, s.store, ref)
	if err != nil {
		return AccessEvent{}, Customer{}, err
	}

	ev := AccessEvent{
		CustomerID: customer.ID,
		At:         at.UTC(),
		Imported:   imported,
		Reward:     reward,
	}
	if err := s.store.AppendAccess(ctx, &ev); err != nil {
		return AccessEvent{}, Customer{}, err
	}

	s.log.Info().
		Int64("customer_id", int64(customer.ID)).
		Time("at", ev.At).
		Bool("imported", imported).
		Bool("reward", reward).
		Msg("access recorded")
	return ev, customer, nil
}

// AccessHistory returns the customer's events, newest first.
// includeImported=false omits back-filled events; the public listing
// endpoint passes false, eligibility never uses this method.
func (s *Service) AccessHistory(ctx context.Context, ref CustomerRef, includeImported bool) ([]AccessEvent, error) {
	customer, err := s.resolve(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	return s.store.AccessHistory(ctx, customer.ID, includeImported)
}

// AccessesFor returns all events for the customer, oldest first.
func (s *Service) AccessesFor(ctx context.Context, ref CustomerRef) ([]AccessEvent, error) {
	customer, err := s.resolve(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	return s.store.AccessesFor(ctx, customer.ID)
}
