/**
 * @description
 * This file contains the HTTP handler functions for the renewal service.
 * Handlers are responsible for parsing incoming requests, validating payloads,
 * calling the appropriate business logic in the service layer, and writing the
 * HTTP response.
 *
 * Status conventions: 201 on create, 204 on delete and on marking a
 * notification sent, 400 on malformed or invalid payloads, 404 for unknown ids
 * and for deletes blocked by referencing renewals, 500 otherwise.
 */
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shreyask21-dev/recurr/internal/app"
	"github.com/Shreyask21-dev/recurr/internal/domain"
	"github.com/Shreyask21-dev/recurr/internal/store"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Client handlers

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clients, err := h.service.ListClients(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, clients)
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	client, err := h.service.GetClient(r.Context(), userID, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, client)
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input domain.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Name == "" || input.Email == "" {
		http.Error(w, "name and email are required", http.StatusBadRequest)
		return
	}

	client, err := h.service.CreateClient(r.Context(), userID, input)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, client)
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	var patch domain.ClientPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Name != nil && *patch.Name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if patch.Email != nil && *patch.Email == "" {
		http.Error(w, "email cannot be empty", http.StatusBadRequest)
		return
	}

	client, err := h.service.UpdateClient(r.Context(), userID, id, patch)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, client)
}

func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteClient(r.Context(), userID, id); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListClientRenewals(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	clientID, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	renewals, err := h.service.ListRenewalsByClient(r.Context(), userID, clientID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewals)
}

// Service catalog handlers

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	services, err := h.service.ListServices(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, services)
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	service, err := h.service.GetService(r.Context(), userID, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, service)
}

func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input domain.ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if input.DefaultDuration < 1 {
		http.Error(w, "defaultDuration must be at least 1 month", http.StatusBadRequest)
		return
	}
	if input.DefaultPrice < 0 {
		http.Error(w, "defaultPrice cannot be negative", http.StatusBadRequest)
		return
	}

	service, err := h.service.CreateService(r.Context(), userID, input)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, service)
}

func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	var patch domain.ServicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Name != nil && *patch.Name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if patch.DefaultDuration != nil && *patch.DefaultDuration < 1 {
		http.Error(w, "defaultDuration must be at least 1 month", http.StatusBadRequest)
		return
	}
	if patch.DefaultPrice != nil && *patch.DefaultPrice < 0 {
		http.Error(w, "defaultPrice cannot be negative", http.StatusBadRequest)
		return
	}

	service, err := h.service.UpdateService(r.Context(), userID, id, patch)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, service)
}

func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteService(r.Context(), userID, id); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListServiceRenewals(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	serviceID, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	renewals, err := h.service.ListRenewalsByService(r.Context(), userID, serviceID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewals)
}

// Renewal handlers

func (h *Handler) handleListRenewals(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("withRelations") == "true" {
		renewals, err := h.service.ListRenewalsEnriched(r.Context(), userID)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, renewals)
		return
	}

	renewals, err := h.service.ListRenewals(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewals)
}

func (h *Handler) handleUpcomingRenewals(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	renewals, err := h.service.ListUpcomingEnriched(r.Context(), userID, days)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewals)
}

func (h *Handler) handleGetRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid renewal id", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("withRelations") == "true" {
		renewal, err := h.service.GetRenewalEnriched(r.Context(), userID, id)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, renewal)
		return
	}

	renewal, err := h.service.GetRenewal(r.Context(), userID, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewal)
}

func (h *Handler) handleCreateRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input domain.RenewalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.ClientID <= 0 || input.ServiceID <= 0 {
		http.Error(w, "clientId and serviceId are required", http.StatusBadRequest)
		return
	}
	if input.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		http.Error(w, "startDate and endDate are required", http.StatusBadRequest)
		return
	}
	if input.EndDate.Before(input.StartDate) {
		http.Error(w, "endDate cannot be before startDate", http.StatusBadRequest)
		return
	}

	renewal, err := h.service.CreateRenewal(r.Context(), userID, input)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, renewal)
}

func (h *Handler) handleUpdateRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid renewal id", http.StatusBadRequest)
		return
	}

	var patch domain.RenewalPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if patch.ClientID != nil && *patch.ClientID <= 0 {
		http.Error(w, "clientId must be positive", http.StatusBadRequest)
		return
	}
	if patch.ServiceID != nil && *patch.ServiceID <= 0 {
		http.Error(w, "serviceId must be positive", http.StatusBadRequest)
		return
	}
	if patch.Amount != nil && *patch.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if patch.StartDate != nil || patch.EndDate != nil {
		if err := h.validateRenewalDates(r, userID, id, patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	renewal, err := h.service.UpdateRenewal(r.Context(), userID, id, patch)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, renewal)
}

// validateRenewalDates checks that the patched date range stays valid,
// combining patch values with the stored renewal when only one bound changes.
func (h *Handler) validateRenewalDates(r *http.Request, userID, id int64, patch domain.RenewalPatch) error {
	start := patch.StartDate
	end := patch.EndDate
	if start == nil || end == nil {
		existing, err := h.service.GetRenewal(r.Context(), userID, id)
		if err != nil {
			// Existence errors are reported by the update itself.
			return nil
		}
		if start == nil {
			start = &existing.StartDate
		}
		if end == nil {
			end = &existing.EndDate
		}
	}
	if end.Before(*start) {
		return errors.New("endDate cannot be before startDate")
	}
	return nil
}

func (h *Handler) handleRenewalNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid renewal id", http.StatusBadRequest)
		return
	}

	var req struct {
		NotificationSent bool `json:"notificationSent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetRenewalNotification(r.Context(), userID, id, req.NotificationSent); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid renewal id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteRenewal(r.Context(), userID, id); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activity and dashboard handlers

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	activities, err := h.service.ListActivities(r.Context(), userID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, activities)
}

func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "Invalid activity id", http.StatusBadRequest)
		return
	}

	activity, err := h.service.GetActivity(r.Context(), userID, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input domain.ActivityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Type == "" || input.Description == "" {
		http.Error(w, "type and description are required", http.StatusBadRequest)
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), userID, input)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, activity)
}

func (h *Handler) handleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid months", http.StatusBadRequest)
			return
		}
		months = parsed
	}

	series, err := h.service.MonthlyRevenueSeries(r.Context(), userID, months)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, series)
}

func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.service.DashboardStats(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// helpers

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// respondWithError maps service and store errors onto status codes. Blocked
// deletes report 404 with the reason, matching what the frontend expects.
// Everything else becomes an opaque 500; the wrapped detail (which renewal
// referenced which missing relation, the failed statement, ...) goes to the
// log, not the wire.
func respondWithError(w http.ResponseWriter, err error) {
	switch {
	case app.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrClientHasRenewals),
		errors.Is(err, store.ErrServiceHasRenewals):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
