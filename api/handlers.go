/*
handlers.go - HTTP API handlers for the loyalty backend

PURPOSE:
  Exposes the loyalty service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Customers:
    GET    /api/customers                    List (offset/limit)
    POST   /api/customers                    Create (optional programs)
    GET    /api/customers/{id}               Get by id
    GET    /api/customers/qr/{code}          Get by external code
    GET    /api/customers/search             Search by name/last_name
    DELETE /api/customers/{id}               Delete (cascades memberships)
    GET    /api/customers/{id}/programs      Membership set
    POST   /api/customers/{id}/programs      Add one membership
    PUT    /api/customers/{id}/programs      Replace membership set

  Programs:
    GET    /api/programs                     List (offset/limit)
    POST   /api/programs                     Create
    GET    /api/programs/current             Valid today

  Accesses:
    POST   /api/accesses                     Record (by id or qr_code)
    GET    /api/accesses/customer/{id}       History (imported hidden)
    GET    /api/accesses/customer/qr/{code}  History by code

  Eligibility:
    GET    /api/rewards/due/{id}             Reward due by id
    GET    /api/rewards/due/qr/{code}        Reward due by code

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation errors, malformed input
  - 404: customer/program not found
  - 409: conflicts
  - 500: storage and unexpected errors

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve customer refs (id vs external code) at this boundary
  3. Call the loyalty service
  4. Serialize response

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mttf/loyalty-engine/loyalty"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *loyalty.Service

	log zerolog.Logger
}

// NewHandler creates a new handler around the loyalty service.
func NewHandler(service *loyalty.Service, log zerolog.Logger) *Handler {
	return &Handler{Service: service, log: log}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns customers in creation order.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)

	customers, err := h.Service.ListCustomers(r.Context(), offset, limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCustomer returns a single customer by numeric id.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	c, err := h.Service.CustomerByRef(r.Context(), loyalty.ByID(loyalty.CustomerID(id)))
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// GetCustomerByCode returns a single customer by external code.
func (h *Handler) GetCustomerByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	c, err := h.Service.CustomerByRef(r.Context(), loyalty.ByCode(code))
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// SearchCustomers filters customers by exact name and/or last name.
func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	lastName := r.URL.Query().Get("last_name")

	customers, err := h.Service.SearchCustomers(r.Context(), name, lastName)
	if err != nil {
		h.writeDomainError(w, "Failed to search customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer registers a customer, optionally with initial programs.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := loyalty.NewCustomer{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Address:  req.Address,
	}
	for _, id := range req.Programs {
		in.ProgramIDs = append(in.ProgramIDs, loyalty.ProgramID(id))
	}

	c, err := h.Service.CreateCustomer(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// DeleteCustomer removes a customer and its memberships.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	c, err := h.Service.DeleteCustomer(r.Context(), loyalty.CustomerID(id))
	if err != nil {
		h.writeDomainError(w, "Failed to delete customer", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Customer deleted",
		"customer": map[string]string{
			"name":      c.Name,
			"last_name": c.LastName,
		},
	})
}

// =============================================================================
// MEMBERSHIP HANDLERS
// =============================================================================

// GetMemberships returns the customer's current program set.
func (h *Handler) GetMemberships(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	programs, err := h.Service.MembershipPrograms(r.Context(), loyalty.CustomerID(id))
	if err != nil {
		h.writeDomainError(w, "Failed to get memberships", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramDTOs(programs))
}

// AddMembership enrolls the customer in one program.
func (h *Handler) AddMembership(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	var req AddMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.AddMembership(r.Context(), loyalty.CustomerID(id), loyalty.ProgramID(req.ProgramID)); err != nil {
		h.writeDomainError(w, "Failed to add membership", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Membership added"})
}

// ReplaceMemberships installs an exact new membership set, atomically.
func (h *Handler) ReplaceMemberships(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	var req ReplaceMembershipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	programIDs := make([]loyalty.ProgramID, len(req.ProgramIDs))
	for i, pid := range req.ProgramIDs {
		programIDs[i] = loyalty.ProgramID(pid)
	}

	if err := h.Service.ReplaceMemberships(r.Context(), loyalty.CustomerID(id), programIDs); err != nil {
		h.writeDomainError(w, "Failed to replace memberships", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Memberships replaced"})
}

// =============================================================================
// PROGRAM HANDLERS
// =============================================================================

// ListPrograms returns program definitions in creation order.
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)

	programs, err := h.Service.ListPrograms(r.Context(), offset, limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list programs", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramDTOs(programs))
}

// ListCurrentPrograms returns programs valid today.
func (h *Handler) ListCurrentPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Service.ListCurrentPrograms(r.Context(), loyalty.Today())
	if err != nil {
		h.writeDomainError(w, "Failed to list current programs", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgramDTOs(programs))
}

// CreateProgram defines a new reward program.
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	validFrom, err := loyalty.ParseDate(req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid valid_from (use YYYY-MM-DD)", err)
		return
	}
	validTo, err := loyalty.ParseDate(req.ValidTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid valid_to (use YYYY-MM-DD)", err)
		return
	}

	p, err := h.Service.CreateProgram(r.Context(), req.Name, validFrom, validTo,
		req.NumAccessToTrigger, req.NumAccessesReward)
	if err != nil {
		h.writeDomainError(w, "Failed to create program", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProgramDTO(p))
}

// =============================================================================
// ACCESS HANDLERS
// =============================================================================

// RecordAccess logs one visit, identified by id or external code.
func (h *Handler) RecordAccess(w http.ResponseWriter, r *http.Request) {
	var req RecordAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.ID == 0 && req.Code == "" {
		writeError(w, http.StatusBadRequest, "At least one of 'id' or 'qr_code' must be provided", nil)
		return
	}

	ref := loyalty.ByID(loyalty.CustomerID(req.ID))
	if req.Code != "" {
		ref = loyalty.ByCode(req.Code)
	}

	at := time.Now().UTC()
	if req.AccessTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.AccessTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid access_time (use RFC3339)", err)
			return
		}
		at = parsed
	}

	ev, customer, err := h.Service.RecordAccess(r.Context(), ref, at, req.Imported, req.Reward)
	if err != nil {
		h.writeDomainError(w, "Failed to record access", err)
		return
	}
	accessesRecorded.Inc()

	resp := RecordAccessResponse{Message: "Access granted", Access: toAccessDTO(ev)}
	resp.Customer.Name = customer.Name
	resp.Customer.LastName = customer.LastName
	resp.Customer.Email = customer.Email
	writeJSON(w, http.StatusOK, resp)
}

// GetAccessHistory lists a customer's accesses, newest first.
// Imported (back-filled) events are hidden from this listing, though
// they still count toward eligibility.
func (h *Handler) GetAccessHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}
	h.accessHistory(w, r, loyalty.ByID(loyalty.CustomerID(id)))
}

// GetAccessHistoryByCode lists accesses for the customer with the code.
func (h *Handler) GetAccessHistoryByCode(w http.ResponseWriter, r *http.Request) {
	h.accessHistory(w, r, loyalty.ByCode(chi.URLParam(r, "code")))
}

func (h *Handler) accessHistory(w http.ResponseWriter, r *http.Request, ref loyalty.CustomerRef) {
	events, err := h.Service.AccessHistory(r.Context(), ref, false)
	if err != nil {
		h.writeDomainError(w, "Failed to list accesses", err)
		return
	}

	dtos := make([]AccessDTO, len(events))
	for i, ev := range events {
		dtos[i] = toAccessDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ELIGIBILITY HANDLERS
// =============================================================================

// GetRewardDue answers the eligibility query by customer id.
func (h *Handler) GetRewardDue(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}
	h.rewardDue(w, r, loyalty.ByID(loyalty.CustomerID(id)))
}

// GetRewardDueByCode answers the eligibility query by external code.
func (h *Handler) GetRewardDueByCode(w http.ResponseWriter, r *http.Request) {
	h.rewardDue(w, r, loyalty.ByCode(chi.URLParam(r, "code")))
}

func (h *Handler) rewardDue(w http.ResponseWriter, r *http.Request, ref loyalty.CustomerRef) {
	customer, err := h.Service.CustomerByRef(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve customer", err)
		return
	}

	due, err := h.Service.RewardDue(r.Context(), loyalty.ByID(customer.ID), time.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to compute eligibility", err)
		return
	}
	if due {
		rewardsDue.Inc()
	}

	writeJSON(w, http.StatusOK, RewardDueDTO{
		CustomerID: int64(customer.ID),
		RewardDue:  due,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return offset, limit
}

// writeDomainError maps domain error kinds to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case loyalty.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case loyalty.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case loyalty.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
