package loyalty_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mttf/loyalty-engine/loyalty"
	memstore "github.com/mttf/loyalty-engine/loyalty/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *loyalty.Service {
	t.Helper()
	return loyalty.NewService(memstore.NewTxMemory(), zerolog.Nop())
}

func date(year int, month time.Month, day int) loyalty.Date {
	return loyalty.NewDate(year, month, day)
}

func createYearProgram(t *testing.T, s *loyalty.Service, name string, year, trigger, reward int) loyalty.Program {
	t.Helper()
	p, err := s.CreateProgram(context.Background(), name,
		date(year, time.January, 1), date(year+1, time.January, 1), trigger, reward)
	require.NoError(t, err)
	return p
}

func createCustomer(t *testing.T, s *loyalty.Service, name string, programs ...loyalty.ProgramID) loyalty.Customer {
	t.Helper()
	c, err := s.CreateCustomer(context.Background(), loyalty.NewCustomer{
		Name:       name,
		LastName:   "Rossi",
		Email:      name + "@example.com",
		ProgramIDs: programs,
	})
	require.NoError(t, err)
	return c
}

func recordAccesses(t *testing.T, s *loyalty.Service, id loyalty.CustomerID, times ...time.Time) {
	t.Helper()
	for _, at := range times {
		_, _, err := s.RecordAccess(context.Background(), loyalty.ByID(id), at, false, false)
		require.NoError(t, err)
	}
}

func visits(year, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(year, time.February, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

// =============================================================================
// PROGRAM CATALOG
// =============================================================================

func TestCreateProgram_Validation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Inverted window
	_, err := s.CreateProgram(ctx, "Inverted",
		date(2025, time.December, 1), date(2025, time.January, 1), 4, 1)
	assert.True(t, loyalty.IsValidation(err), "inverted window must fail validation, got %v", err)

	// Degenerate window (from == to)
	_, err = s.CreateProgram(ctx, "Empty",
		date(2025, time.June, 1), date(2025, time.June, 1), 4, 1)
	assert.True(t, loyalty.IsValidation(err))

	// Non-positive cadence
	_, err = s.CreateProgram(ctx, "NoTrigger",
		date(2025, time.January, 1), date(2026, time.January, 1), 0, 1)
	assert.True(t, loyalty.IsValidation(err))

	_, err = s.CreateProgram(ctx, "NoReward",
		date(2025, time.January, 1), date(2026, time.January, 1), 4, -1)
	assert.True(t, loyalty.IsValidation(err))
}

func TestListCurrentPrograms_HalfOpenWindow(t *testing.T) {
	// GIVEN: A program valid [Mar 1, Jun 1)
	// THEN: Current on Mar 1 and May 31, not on Feb 28 or Jun 1

	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateProgram(ctx, "Spring",
		date(2025, time.March, 1), date(2025, time.June, 1), 4, 1)
	require.NoError(t, err)

	for _, tc := range []struct {
		asOf    loyalty.Date
		current bool
	}{
		{date(2025, time.February, 28), false},
		{date(2025, time.March, 1), true},
		{date(2025, time.May, 31), true},
		{date(2025, time.June, 1), false},
	} {
		programs, err := s.ListCurrentPrograms(ctx, tc.asOf)
		require.NoError(t, err)
		if tc.current {
			assert.Len(t, programs, 1, "asOf %s", tc.asOf)
		} else {
			assert.Empty(t, programs, "asOf %s", tc.asOf)
		}
	}
}

// =============================================================================
// CUSTOMER REGISTRY
// =============================================================================

func TestCreateCustomer_AssignsUniqueCode(t *testing.T) {
	s := newTestService(t)

	a := createCustomer(t, s, "Anna")
	b := createCustomer(t, s, "Bruno")

	assert.NotEmpty(t, a.Code)
	assert.NotEmpty(t, b.Code)
	assert.NotEqual(t, a.Code, b.Code)
}

func TestCreateCustomer_WithUnknownProgram_NothingWritten(t *testing.T) {
	// GIVEN: A creation request referencing a program that does not exist
	// WHEN: CreateCustomer runs
	// THEN: The whole operation fails and the customer was not created

	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateCustomer(ctx, loyalty.NewCustomer{
		Name:       "Anna",
		LastName:   "Rossi",
		Email:      "anna@example.com",
		ProgramIDs: []loyalty.ProgramID{999},
	})
	require.Error(t, err)
	assert.True(t, loyalty.IsNotFound(err))

	customers, err := s.ListCustomers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, customers, "failed creation must not leave a customer behind")
}

func TestCustomerLookup_ByIDAndCode_SameEntity(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	created := createCustomer(t, s, "Anna")

	byID, err := s.CustomerByRef(ctx, loyalty.ByID(created.ID))
	require.NoError(t, err)
	byCode, err := s.CustomerByRef(ctx, loyalty.ByCode(created.Code))
	require.NoError(t, err)

	assert.Equal(t, byID.ID, byCode.ID)
	assert.Equal(t, byID.Code, byCode.Code)
}

func TestCustomerLookup_Missing_ReturnsNotFound(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CustomerByRef(ctx, loyalty.ByID(42))
	assert.True(t, loyalty.IsNotFound(err))

	_, err = s.CustomerByRef(ctx, loyalty.ByCode("no-such-code"))
	assert.True(t, loyalty.IsNotFound(err))
}

func TestSearchCustomers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	createCustomer(t, s, "Anna")
	createCustomer(t, s, "Bruno")

	found, err := s.SearchCustomers(ctx, "Anna", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Anna", found[0].Name)

	// Both share the last name
	found, err = s.SearchCustomers(ctx, "", "Rossi")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// No filter at all is a validation error
	_, err = s.SearchCustomers(ctx, "", "")
	assert.True(t, loyalty.IsValidation(err))
}

func TestDeleteCustomer_CascadesMemberships(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	p := createYearProgram(t, s, "Base", 2025, 4, 1)
	c := createCustomer(t, s, "Anna", p.ID)

	_, err := s.DeleteCustomer(ctx, c.ID)
	require.NoError(t, err)

	_, err = s.CustomerByRef(ctx, loyalty.ByID(c.ID))
	assert.True(t, loyalty.IsNotFound(err))

	// Deleting again reports the missing customer
	_, err = s.DeleteCustomer(ctx, c.ID)
	assert.True(t, loyalty.IsNotFound(err))
}

// =============================================================================
// MEMBERSHIP REGISTRY
// =============================================================================

func TestAddMembership_DuplicateIsNoOp(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	p := createYearProgram(t, s, "Base", 2025, 4, 1)
	c := createCustomer(t, s, "Anna")

	require.NoError(t, s.AddMembership(ctx, c.ID, p.ID))
	require.NoError(t, s.AddMembership(ctx, c.ID, p.ID))

	programs, err := s.MembershipPrograms(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, programs, 1)
}

func TestAddMembership_MissingSideFails(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	p := createYearProgram(t, s, "Base", 2025, 4, 1)
	c := createCustomer(t, s, "Anna")

	assert.True(t, loyalty.IsNotFound(s.AddMembership(ctx, 999, p.ID)))
	assert.True(t, loyalty.IsNotFound(s.AddMembership(ctx, c.ID, 999)))
}

func TestReplaceMemberships_AllOrNothing(t *testing.T) {
	// GIVEN: A customer enrolled in program A
	// WHEN: Replacing with [B, nonexistent]
	// THEN: NotFoundError and the set is still exactly [A]

	s := newTestService(t)
	ctx := context.Background()

	a := createYearProgram(t, s, "A", 2025, 4, 1)
	b := createYearProgram(t, s, "B", 2025, 2, 2)
	c := createCustomer(t, s, "Anna", a.ID)

	err := s.ReplaceMemberships(ctx, c.ID, []loyalty.ProgramID{b.ID, 999})
	require.Error(t, err)
	assert.True(t, loyalty.IsNotFound(err))

	programs, err := s.MembershipPrograms(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, a.ID, programs[0].ID)
}

func TestReplaceMemberships_Success(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	a := createYearProgram(t, s, "A", 2025, 4, 1)
	b := createYearProgram(t, s, "B", 2025, 2, 2)
	c := createCustomer(t, s, "Anna", a.ID)

	// Duplicates in input collapse to one membership
	require.NoError(t, s.ReplaceMemberships(ctx, c.ID, []loyalty.ProgramID{b.ID, b.ID}))

	programs, err := s.MembershipPrograms(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, b.ID, programs[0].ID)

	// Empty list clears everything
	require.NoError(t, s.ReplaceMemberships(ctx, c.ID, nil))
	programs, err = s.MembershipPrograms(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

// =============================================================================
// ACCESS LEDGER
// =============================================================================

func TestRecordAccess_AppearsExactlyOnce(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	c := createCustomer(t, s, "Anna")
	before, err := s.AccessesFor(ctx, loyalty.ByID(c.ID))
	require.NoError(t, err)

	at := time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)
	ev, _, err := s.RecordAccess(ctx, loyalty.ByID(c.ID), at, false, false)
	require.NoError(t, err)

	after, err := s.AccessesFor(ctx, loyalty.ByID(c.ID))
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)

	seen := 0
	for _, e := range after {
		if e.ID == ev.ID {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "new event present exactly once")
}

func TestRecordAccess_ByCode(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	c := createCustomer(t, s, "Anna")
	_, resolved, err := s.RecordAccess(ctx, loyalty.ByCode(c.Code), time.Now(), false, false)
	require.NoError(t, err)
	assert.Equal(t, c.ID, resolved.ID)

	events, err := s.AccessesFor(ctx, loyalty.ByID(c.ID))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecordAccess_UnknownRef(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, _, err := s.RecordAccess(ctx, loyalty.ByCode("bogus"), time.Now(), false, false)
	assert.True(t, loyalty.IsNotFound(err))
}

func TestAccessHistory_HidesImported_NewestFirst(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	c := createCustomer(t, s, "Anna")
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := s.RecordAccess(ctx, loyalty.ByID(c.ID), base, true, false) // imported back-fill
	require.NoError(t, err)
	_, _, err = s.RecordAccess(ctx, loyalty.ByID(c.ID), base.AddDate(0, 0, 1), false, false)
	require.NoError(t, err)
	_, _, err = s.RecordAccess(ctx, loyalty.ByID(c.ID), base.AddDate(0, 0, 2), false, true)
	require.NoError(t, err)

	history, err := s.AccessHistory(ctx, loyalty.ByID(c.ID), false)
	require.NoError(t, err)
	require.Len(t, history, 2, "imported events are hidden from the listing")
	assert.True(t, history[0].At.After(history[1].At), "newest first")

	// But all three are in the raw ledger
	all, err := s.AccessesFor(ctx, loyalty.ByID(c.ID))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// ELIGIBILITY ENGINE
// =============================================================================

func TestRewardDue_NoEnrollment(t *testing.T) {
	s := newTestService(t)

	c := createCustomer(t, s, "Anna")
	due, err := s.RewardDue(context.Background(), loyalty.ByID(c.ID),
		time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestRewardDue_FreshCustomerNeverDue(t *testing.T) {
	// Zero prior accesses this year: the visit about to happen is the
	// first one, never a reward.

	s := newTestService(t)

	p := createYearProgram(t, s, "Base", 2025, 1, 1)
	c := createCustomer(t, s, "Anna", p.ID)

	due, err := s.RewardDue(context.Background(), loyalty.ByID(c.ID),
		time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestRewardDue_Trigger4Reward1_Progression(t *testing.T) {
	// GIVEN: trigger=4, reward=1 and accesses recorded one at a time
	// THEN: Due exactly before the 5th and 10th access of the year

	s := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	p := createYearProgram(t, s, "Base", 2025, 4, 1)
	c := createCustomer(t, s, "Anna", p.ID)

	for visit := 1; visit <= 10; visit++ {
		due, err := s.RewardDue(ctx, loyalty.ByID(c.ID), now)
		require.NoError(t, err)

		want := visit == 5 || visit == 10
		assert.Equal(t, want, due, "visit %d", visit)

		// Record the visit the query was about (reward visits flagged)
		_, _, err = s.RecordAccess(ctx, loyalty.ByID(c.ID),
			now.AddDate(0, 0, visit), false, due)
		require.NoError(t, err)
	}
}

func TestRewardDue_LookAheadContract(t *testing.T) {
	// Query-before-record and query-after-record answer about different
	// visits. With trigger=1, reward=1 (cycle 2): after one recorded
	// access the NEXT visit (the 2nd) is due.

	s := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	p := createYearProgram(t, s, "Base", 2025, 1, 1)
	c := createCustomer(t, s, "Anna", p.ID)

	due, err := s.RewardDue(ctx, loyalty.ByID(c.ID), now)
	require.NoError(t, err)
	assert.False(t, due, "before any access")

	recordAccesses(t, s, c.ID, now)

	due, err = s.RewardDue(ctx, loyalty.ByID(c.ID), now)
	require.NoError(t, err)
	assert.True(t, due, "second visit closes the 2-cycle")
}

func TestRewardDue_ImportedAccessesCount(t *testing.T) {
	// Imported back-fill is hidden from listings but still counts
	// toward eligibility.

	s := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

	p := createYearProgram(t, s, "Base", 2025, 4, 1)
	c := createCustomer(t, s, "Anna", p.ID)

	for i, at := range visits(2025, 4) {
		_, _, err := s.RecordAccess(ctx, loyalty.ByID(c.ID), at, i%2 == 0, false)
		require.NoError(t, err)
	}

	due, err := s.RewardDue(ctx, loyalty.ByID(c.ID), now)
	require.NoError(t, err)
	assert.True(t, due, "4 accesses recorded (2 imported), the 5th closes the cycle")
}

func TestRewardDue_OnlyCurrentYearCounts(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	p, err := s.CreateProgram(ctx, "TwoYears",
		date(2024, time.January, 1), date(2026, time.January, 1), 4, 1)
	require.NoError(t, err)
	c := createCustomer(t, s, "Anna", p.ID)

	// 4 accesses in 2024; none in 2025
	recordAccesses(t, s, c.ID, visits(2024, 4)...)

	due, err := s.RewardDue(ctx, loyalty.ByID(c.ID),
		time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, due, "last year's accesses do not carry over")

	// But in 2024 the same ledger makes the 5th visit due
	due, err = s.RewardDue(ctx, loyalty.ByID(c.ID),
		time.Date(2024, time.December, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRewardDue_MultiProgram_UsesLowestID(t *testing.T) {
	// GIVEN: Overlapping enrollment in two programs covering 2025
	// THEN: The engine computes against the lowest program id

	s := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	first := createYearProgram(t, s, "First", 2025, 2, 1)   // cycle 3
	second := createYearProgram(t, s, "Second", 2025, 9, 1) // cycle 10
	c := createCustomer(t, s, "Anna", second.ID, first.ID)

	// 2 accesses: next visit is #3, due under "First" only
	recordAccesses(t, s, c.ID, visits(2025, 2)...)

	due, err := s.RewardDue(ctx, loyalty.ByID(c.ID), now)
	require.NoError(t, err)
	assert.True(t, due, "program %d (lowest id) decides", first.ID)
}

func TestRewardDue_ByCode_SameAnswer(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	p := createYearProgram(t, s, "Base", 2025, 1, 1)
	c := createCustomer(t, s, "Anna", p.ID)
	recordAccesses(t, s, c.ID, visits(2025, 1)...)

	byID, err := s.RewardDue(ctx, loyalty.ByID(c.ID), now)
	require.NoError(t, err)
	byCode, err := s.RewardDue(ctx, loyalty.ByCode(c.Code), now)
	require.NoError(t, err)
	assert.Equal(t, byID, byCode)
}
