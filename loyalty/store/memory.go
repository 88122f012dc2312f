// Package store provides an in-memory loyalty.TxStore for tests and dev.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mttf/loyalty-engine/loyalty"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	customers map[loyalty.CustomerID]loyalty.Customer
	programs  map[loyalty.ProgramID]loyalty.Program
	// memberships[customerID] is the set of enrolled program ids.
	memberships map[loyalty.CustomerID]map[loyalty.ProgramID]bool
	accesses    []loyalty.AccessEvent

	nextCustomerID loyalty.CustomerID
	nextProgramID  loyalty.ProgramID
	nextAccessID   loyalty.AccessID
}

func NewMemory() *Memory {
	return &Memory{
		customers:      make(map[loyalty.CustomerID]loyalty.Customer),
		programs:       make(map[loyalty.ProgramID]loyalty.Program),
		memberships:    make(map[loyalty.CustomerID]map[loyalty.ProgramID]bool),
		nextCustomerID: 1,
		nextProgramID:  1,
		nextAccessID:   1,
	}
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (m *Memory) CreateCustomer(_ context.Context, c *loyalty.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCustomerLocked(c)
}

func (m *Memory) createCustomerLocked(c *loyalty.Customer) error {
	for _, existing := range m.customers {
		if existing.Code == c.Code {
			return &loyalty.StorageError{Op: "create customer", Err: loyalty.ErrConflict}
		}
	}
	c.ID = m.nextCustomerID
	m.nextCustomerID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *Memory) CustomerByID(_ context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.customerByIDLocked(id)
}

func (m *Memory) customerByIDLocked(id loyalty.CustomerID) (loyalty.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return loyalty.Customer{}, loyalty.CustomerNotFound(loyalty.ByID(id))
	}
	return c, nil
}

func (m *Memory) CustomerByCode(_ context.Context, code string) (loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.customerByCodeLocked(code)
}

func (m *Memory) customerByCodeLocked(code string) (loyalty.Customer, error) {
	for _, c := range m.customers {
		if c.Code == code {
			return c, nil
		}
	}
	return loyalty.Customer{}, loyalty.CustomerNotFound(loyalty.ByCode(code))
}

func (m *Memory) SearchCustomers(_ context.Context, name, lastName string) ([]loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []loyalty.Customer
	for _, c := range m.customers {
		if name != "" && c.Name != name {
			continue
		}
		if lastName != "" && c.LastName != lastName {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListCustomers(_ context.Context, offset, limit int) ([]loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]loyalty.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id loyalty.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCustomerLocked(id)
}

func (m *Memory) deleteCustomerLocked(id loyalty.CustomerID) error {
	if _, ok := m.customers[id]; !ok {
		return loyalty.CustomerNotFound(loyalty.ByID(id))
	}
	delete(m.customers, id)
	delete(m.memberships, id)
	kept := m.accesses[:0]
	for _, ev := range m.accesses {
		if ev.CustomerID != id {
			kept = append(kept, ev)
		}
	}
	m.accesses = kept
	return nil
}

// =============================================================================
// PROGRAMS
// =============================================================================

func (m *Memory) CreateProgram(_ context.Context, p *loyalty.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createProgramLocked(p)
}

func (m *Memory) createProgramLocked(p *loyalty.Program) error {
	p.ID = m.nextProgramID
	m.nextProgramID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.programs[p.ID] = *p
	return nil
}

func (m *Memory) ProgramByID(_ context.Context, id loyalty.ProgramID) (loyalty.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.programByIDLocked(id)
}

func (m *Memory) programByIDLocked(id loyalty.ProgramID) (loyalty.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return loyalty.Program{}, loyalty.ProgramNotFound(id)
	}
	return p, nil
}

func (m *Memory) ListPrograms(_ context.Context, offset, limit int) ([]loyalty.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedProgramsLocked(func(loyalty.Program) bool { return true })
	return page(all, offset, limit), nil
}

func (m *Memory) ListCurrentPrograms(_ context.Context, asOf loyalty.Date) ([]loyalty.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedProgramsLocked(func(p loyalty.Program) bool { return p.CurrentAt(asOf) }), nil
}

func (m *Memory) sortedProgramsLocked(keep func(loyalty.Program) bool) []loyalty.Program {
	var result []loyalty.Program
	for _, p := range m.programs {
		if keep(p) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

func (m *Memory) AddMembership(_ context.Context, customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addMembershipLocked(customerID, programID)
}

func (m *Memory) addMembershipLocked(customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	set, ok := m.memberships[customerID]
	if !ok {
		set = make(map[loyalty.ProgramID]bool)
		m.memberships[customerID] = set
	}
	set[programID] = true
	return nil
}

func (m *Memory) ClearMemberships(_ context.Context, customerID loyalty.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.memberships, customerID)
	return nil
}

func (m *Memory) MembershipPrograms(_ context.Context, customerID loyalty.CustomerID) ([]loyalty.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedProgramsLocked(func(p loyalty.Program) bool {
		return m.memberships[customerID][p.ID]
	}), nil
}

func (m *Memory) ProgramsForYear(_ context.Context, customerID loyalty.CustomerID, year int) ([]loyalty.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedProgramsLocked(func(p loyalty.Program) bool {
		return m.memberships[customerID][p.ID] && p.CoversYear(year)
	}), nil
}

// =============================================================================
// ACCESS LEDGER
// =============================================================================

func (m *Memory) AppendAccess(_ context.Context, ev *loyalty.AccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAccessLocked(ev)
}

func (m *Memory) appendAccessLocked(ev *loyalty.AccessEvent) error {
	if _, ok := m.customers[ev.CustomerID]; !ok {
		return &loyalty.StorageError{Op: "append access", Err: fmt.Errorf("unknown customer %d", ev.CustomerID)}
	}
	ev.ID = m.nextAccessID
	m.nextAccessID++
	m.accesses = append(m.accesses, *ev)
	return nil
}

func (m *Memory) AccessesFor(_ context.Context, customerID loyalty.CustomerID) ([]loyalty.AccessEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.filterAccessesLocked(customerID, func(loyalty.AccessEvent) bool { return true })
	sort.Slice(result, func(i, j int) bool { return result[i].At.Before(result[j].At) })
	return result, nil
}

func (m *Memory) AccessHistory(_ context.Context, customerID loyalty.CustomerID, includeImported bool) ([]loyalty.AccessEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.filterAccessesLocked(customerID, func(ev loyalty.AccessEvent) bool {
		return includeImported || !ev.Imported
	})
	sort.Slice(result, func(i, j int) bool { return result[i].At.After(result[j].At) })
	return result, nil
}

func (m *Memory) AccessesBetween(_ context.Context, customerID loyalty.CustomerID, from, to time.Time) ([]loyalty.AccessEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.filterAccessesLocked(customerID, func(ev loyalty.AccessEvent) bool {
		return !ev.At.Before(from) && ev.At.Before(to)
	})
	sort.Slice(result, func(i, j int) bool { return result[i].At.Before(result[j].At) })
	return result, nil
}

func (m *Memory) CountAccessesInYear(_ context.Context, customerID loyalty.CustomerID, year int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to := loyalty.YearWindow(year)
	count := 0
	for _, ev := range m.accesses {
		if ev.CustomerID == customerID && !ev.At.Before(from) && ev.At.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) filterAccessesLocked(customerID loyalty.CustomerID, keep func(loyalty.AccessEvent) bool) []loyalty.AccessEvent {
	var result []loyalty.AccessEvent
	for _, ev := range m.accesses {
		if ev.CustomerID == customerID && keep(ev) {
			result = append(result, ev)
		}
	}
	return result
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with unit-of-work support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against the store, simulated with a full snapshot
// that is restored when fn fails.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(loyalty.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	customers   map[loyalty.CustomerID]loyalty.Customer
	programs    map[loyalty.ProgramID]loyalty.Program
	memberships map[loyalty.CustomerID]map[loyalty.ProgramID]bool
	accesses    []loyalty.AccessEvent

	nextCustomerID loyalty.CustomerID
	nextProgramID  loyalty.ProgramID
	nextAccessID   loyalty.AccessID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		customers:      make(map[loyalty.CustomerID]loyalty.Customer, len(tm.customers)),
		programs:       make(map[loyalty.ProgramID]loyalty.Program, len(tm.programs)),
		memberships:    make(map[loyalty.CustomerID]map[loyalty.ProgramID]bool, len(tm.memberships)),
		accesses:       append([]loyalty.AccessEvent{}, tm.accesses...),
		nextCustomerID: tm.nextCustomerID,
		nextProgramID:  tm.nextProgramID,
		nextAccessID:   tm.nextAccessID,
	}
	for k, v := range tm.customers {
		s.customers[k] = v
	}
	for k, v := range tm.programs {
		s.programs[k] = v
	}
	for k, set := range tm.memberships {
		setCopy := make(map[loyalty.ProgramID]bool, len(set))
		for id := range set {
			setCopy[id] = true
		}
		s.memberships[k] = setCopy
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.customers = s.customers
	tm.programs = s.programs
	tm.memberships = s.memberships
	tm.accesses = s.accesses
	tm.nextCustomerID = s.nextCustomerID
	tm.nextProgramID = s.nextProgramID
	tm.nextAccessID = s.nextAccessID
}

// txMemoryView reuses the locked helpers: the parent mutex is held for
// the whole WithTx call.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) CreateCustomer(_ context.Context, c *loyalty.Customer) error {
	return tv.parent.createCustomerLocked(c)
}

func (tv *txMemoryView) CustomerByID(_ context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	return tv.parent.customerByIDLocked(id)
}

func (tv *txMemoryView) CustomerByCode(_ context.Context, code string) (loyalty.Customer, error) {
	return tv.parent.customerByCodeLocked(code)
}

func (tv *txMemoryView) SearchCustomers(ctx context.Context, name, lastName string) ([]loyalty.Customer, error) {
	var result []loyalty.Customer
	for _, c := range tv.parent.customers {
		if (name == "" || c.Name == name) && (lastName == "" || c.LastName == lastName) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) ListCustomers(_ context.Context, offset, limit int) ([]loyalty.Customer, error) {
	all := make([]loyalty.Customer, 0, len(tv.parent.customers))
	for _, c := range tv.parent.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), nil
}

func (tv *txMemoryView) DeleteCustomer(_ context.Context, id loyalty.CustomerID) error {
	return tv.parent.deleteCustomerLocked(id)
}

func (tv *txMemoryView) CreateProgram(_ context.Context, p *loyalty.Program) error {
	return tv.parent.createProgramLocked(p)
}

func (tv *txMemoryView) ProgramByID(_ context.Context, id loyalty.ProgramID) (loyalty.Program, error) {
	return tv.parent.programByIDLocked(id)
}

func (tv *txMemoryView) ListPrograms(_ context.Context, offset, limit int) ([]loyalty.Program, error) {
	return page(tv.parent.sortedProgramsLocked(func(loyalty.Program) bool { return true }), offset, limit), nil
}

func (tv *txMemoryView) ListCurrentPrograms(_ context.Context, asOf loyalty.Date) ([]loyalty.Program, error) {
	return tv.parent.sortedProgramsLocked(func(p loyalty.Program) bool { return p.CurrentAt(asOf) }), nil
}

func (tv *txMemoryView) AddMembership(_ context.Context, customerID loyalty.CustomerID, programID loyalty.ProgramID) error {
	return tv.parent.addMembershipLocked(customerID, programID)
}

func (tv *txMemoryView) ClearMemberships(_ context.Context, customerID loyalty.CustomerID) error {
	delete(tv.parent.memberships, customerID)
	return nil
}

func (tv *txMemoryView) MembershipPrograms(_ context.Context, customerID loyalty.CustomerID) ([]loyalty.Program, error) {
	return tv.parent.sortedProgramsLocked(func(p loyalty.Program) bool {
		return tv.parent.memberships[customerID][p.ID]
	}), nil
}

func (tv *txMemoryView) ProgramsForYear(_ context.Context, customerID loyalty.CustomerID, year int) ([]loyalty.Program, error) {
	return tv.parent.sortedProgramsLocked(func(p loyalty.Program) bool {
		return tv.parent.memberships[customerID][p.ID] && p.CoversYear(year)
	}), nil
}

func (tv *txMemoryView) AppendAccess(_ context.Context, ev *loyalty.AccessEvent) error {
	return tv.parent.appendAccessLocked(ev)
}

func (tv *txMemoryView) AccessesFor(ctx context.Context, customerID loyalty.CustomerID) ([]loyalty.AccessEvent, error) {
	result := tv.parent.filterAccessesLocked(customerID, func(loyalty.AccessEvent) bool { return true })
	sort.Slice(result, func(i, j int) bool { return result[i].At.Before(result[j].At) })
	return result, nil
}

func (tv *txMemoryView) AccessHistory(_ context.Context, customerID loyalty.CustomerID, includeImported bool) ([]loyalty.AccessEvent, error) {
	result := tv.parent.filterAccessesLocked(customerID, func(ev loyalty.AccessEvent) bool {
		return includeImported || !ev.Imported
	})
	sort.Slice(result, func(i, j int) bool { return result[i].At.After(result[j].At) })
	return result, nil
}

func (tv *txMemoryView) AccessesBetween(_ context.Context, customerID loyalty.CustomerID, from, to time.Time) ([]loyalty.AccessEvent, error) {
	result := tv.parent.filterAccessesLocked(customerID, func(ev loyalty.AccessEvent) bool {
		return !ev.At.Before(from) && ev.At.Before(to)
	})
	sort.Slice(result, func(i, j int) bool { return result[i].At.Before(result[j].At) })
	return result, nil
}

func (tv *txMemoryView) CountAccessesInYear(_ context.Context, customerID loyalty.CustomerID, year int) (int, error) {
	from, to := loyalty.YearWindow(year)
	count := 0
	for _, ev := range tv.parent.accesses {
		if ev.CustomerID == customerID && !ev.At.Before(from) && ev.At.Before(to) {
			count++
		}
	}
	return count, nil
}
