/*
eligibility.go - The reward-cadence decision

PURPOSE:
  Answers the one question the whole system exists for: "if this
  customer walks in right now, is that visit a reward?"

THE CADENCE RULE:
  A program defines a repeating cycle of

      rewardCycle = AccessesToTrigger + AccessesReward

  visits. Within each cycle the LAST AccessesReward positions are
  reward-eligible: the customer can cash in on any of those visits,
  not only the exact trigger point. The due-test slides a window of
  AccessesReward candidate offsets over the cycle boundary:

      due(n) = exists threshold in [0, AccessesReward)
               with (n + threshold) mod rewardCycle == 0

  Example, trigger=4 reward=1 (cycle 5): visits 5, 10, 15, ... are due.
  Example, trigger=2 reward=2 (cycle 4): visits 3,4, 7,8, 11,12 are due.

LOOK-AHEAD CONTRACT (load-bearing):
  RewardDue counts the accesses already recorded this calendar year and
  adds ONE for the visit about to happen. It must therefore be called
  BEFORE recording the triggering access, or the count is off by one.

SINGLE-PROGRAM LIMITATION (documented, not fixed):
  When a customer is enrolled in several programs covering the current
  year, eligibility is computed against the first one only, ordered by
  program id asc. The business logic assumes one active program at a
  time; overlapping enrollment is tolerated but not resolved.
*/
package loyalty

import (
	"context"
	"time"
)

// RewardDueAt applies the cadence rule to a visit number.
// numAccesses is the 1-based ordinal of the visit under consideration,
// i.e. prior accesses this year plus one. The first visit of the year
// is never due, regardless of parameters.
func RewardDueAt(accessesToTrigger, accessesReward, numAccesses int) bool {
	if numAccesses == 1 {
		return false
	}
	rewardCycle := accessesToTrigger + accessesReward
	for threshold := 0; threshold < accessesReward; threshold++ {
		if (numAccesses+threshold)%rewardCycle == 0 {
			return true
		}
	}
	return false
}

// RewardDue decides whether the customer's NEXT access earns a reward.
//
// The decision, in order:
//  1. Resolve the programs the customer is enrolled in that cover
//     year(now). None -> false.
//  2. Take the first program (id asc). See the single-program note above.
//  3. Count accesses recorded in [Jan 1, Jan 1 next year) and add one
//     for the visit about to happen.
//  4. A first-ever access this year is never a reward.
//  5. Otherwise apply the cadence rule.
//
// Call this BEFORE recording the access it is deciding about.
func (s *Service) RewardDue(ctx context.Context, ref CustomerRef, now time.Time) (bool, error) {
	customer, err := s.resolve(ctx, s.store, ref)
	if err != nil {
		return false, err
	}

	year := now.UTC().Year()

	programs, err := s.store.ProgramsForYear(ctx, customer.ID, year)
	if err != nil {
		return false, err
	}
	if len(programs) == 0 {
		s.log.Debug().
			Int64("customer_id", int64(customer.ID)).
			Int("year", year).
			Msg("no program enrollment for year")
		return false, nil
	}

	program := programs[0]
	s.log.Debug().
		Int64("customer_id", int64(customer.ID)).
		Int64("program_id", int64(program.ID)).
		Str("program", program.Name).
		Msg("program found")

	count, err := s.store.CountAccessesInYear(ctx, customer.ID, year)
	if err != nil {
		return false, err
	}

	// The visit about to happen.
	numAccesses := count + 1

	if numAccesses == 1 {
		return false, nil
	}

	s.log.Debug().
		Int64("customer_id", int64(customer.ID)).
		Int("year", year).
		Int("num_accesses", numAccesses).
		Msg("accesses counted for year")

	return RewardDueAt(program.AccessesToTrigger, program.AccessesReward, numAccesses), nil
}
