/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (required fields, date formats) is done in
  handlers; semantic validation (window ordering, cadence positivity)
  lives in the loyalty service. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/mttf/loyalty-engine/loyalty"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	Code      string `json:"qr_code"`
	CreatedAt string `json:"created_at"`
}

func toCustomerDTO(c loyalty.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        int64(c.ID),
		Name:      c.Name,
		LastName:  c.LastName,
		Email:     c.Email,
		Address:   c.Address,
		Code:      c.Code,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// CreateCustomerRequest is the request to register a customer.
// Programs, when present, become the initial membership set.
type CreateCustomerRequest struct {
	Name     string  `json:"name"`
	LastName string  `json:"last_name"`
	Email    string  `json:"email"`
	Address  string  `json:"address,omitempty"`
	Programs []int64 `json:"programs,omitempty"`
}

// =============================================================================
// PROGRAMS
// =============================================================================

// ProgramDTO represents a reward program in API responses.
type ProgramDTO struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ValidFrom          string `json:"valid_from"`
	ValidTo            string `json:"valid_to"`
	NumAccessToTrigger int    `json:"num_access_to_trigger"`
	NumAccessesReward  int    `json:"num_accesses_reward"`
	CreatedAt          string `json:"created_at"`
}

func toProgramDTO(p loyalty.Program) ProgramDTO {
	return ProgramDTO{
		ID:                 int64(p.ID),
		Name:               p.Name,
		ValidFrom:          p.ValidFrom.String(),
		ValidTo:            p.ValidTo.String(),
		NumAccessToTrigger: p.AccessesToTrigger,
		NumAccessesReward:  p.AccessesReward,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
	}
}

func toProgramDTOs(programs []loyalty.Program) []ProgramDTO {
	dtos := make([]ProgramDTO, len(programs))
	for i, p := range programs {
		dtos[i] = toProgramDTO(p)
	}
	return dtos
}

// CreateProgramRequest is the request to define a program.
// Dates use YYYY-MM-DD; the window is half-open [valid_from, valid_to).
type CreateProgramRequest struct {
	Name               string `json:"name"`
	ValidFrom          string `json:"valid_from"`
	ValidTo            string `json:"valid_to"`
	NumAccessToTrigger int    `json:"num_access_to_trigger"`
	NumAccessesReward  int    `json:"num_accesses_reward"`
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

// AddMembershipRequest enrolls a customer in one program.
type AddMembershipRequest struct {
	ProgramID int64 `json:"program_id"`
}

// ReplaceMembershipsRequest replaces the full membership set.
// An empty list clears all memberships.
type ReplaceMembershipsRequest struct {
	ProgramIDs []int64 `json:"program_ids"`
}

// =============================================================================
// ACCESSES
// =============================================================================

// AccessDTO represents one access event in API responses.
type AccessDTO struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	AccessTime string `json:"access_time"`
	Imported   bool   `json:"imported"`
	Reward     bool   `json:"reward"`
}

func toAccessDTO(ev loyalty.AccessEvent) AccessDTO {
	return AccessDTO{
		ID:         int64(ev.ID),
		CustomerID: int64(ev.CustomerID),
		AccessTime: ev.At.Format(time.RFC3339),
		Imported:   ev.Imported,
		Reward:     ev.Reward,
	}
}

// RecordAccessRequest logs one access. Exactly one of ID or Code must
// identify the customer. AccessTime defaults to the current time.
type RecordAccessRequest struct {
	ID         int64  `json:"id,omitempty"`
	Code       string `json:"qr_code,omitempty"`
	AccessTime string `json:"access_time,omitempty"`
	Imported   bool   `json:"imported"`
	Reward     bool   `json:"reward"`
}

// RecordAccessResponse confirms the access with the resolved customer.
type RecordAccessResponse struct {
	Message  string    `json:"message"`
	Access   AccessDTO `json:"access"`
	Customer struct {
		Name     string `json:"name"`
		LastName string `json:"last_name"`
		Email    string `json:"email"`
	} `json:"customer"`
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// RewardDueDTO is the eligibility answer for one customer.
type RewardDueDTO struct {
	CustomerID int64 `json:"customer_id"`
	RewardDue  bool  `json:"reward_due"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
