/**
 * @description
 * In-memory implementation of the Store interface, used as the deterministic
 * fallback when the database is unreachable at startup. State lives in maps
 * guarded by one mutex, with per-entity id counters owned by the store value
 * itself; nothing is global and nothing survives a restart.
 *
 * The implementation mirrors the PostgreSQL store observable behavior exactly:
 * ordering, sentinel errors, delete guards and activity side effects. The
 * mutex makes each logical operation (mutation + derived activity entry)
 * atomic, the same guarantee the durable store gets from a transaction.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shreyask21-dev/recurr/internal/domain"
)

// MemoryStore keeps all records in process memory, scoped per user id.
type MemoryStore struct {
	mu sync.Mutex

	clients    map[int64]memRecord[domain.Client]
	services   map[int64]memRecord[domain.Service]
	renewals   map[int64]memRecord[domain.Renewal]
	activities map[int64]memRecord[domain.Activity]

	nextClientID   int64
	nextServiceID  int64
	nextRenewalID  int64
	nextActivityID int64
}

// memRecord pairs a row with its owning user.
type memRecord[T any] struct {
	userID int64
	row    T
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:        make(map[int64]memRecord[domain.Client]),
		services:       make(map[int64]memRecord[domain.Service]),
		renewals:       make(map[int64]memRecord[domain.Renewal]),
		activities:     make(map[int64]memRecord[domain.Activity]),
		nextClientID:   1,
		nextServiceID:  1,
		nextRenewalID:  1,
		nextActivityID: 1,
	}
}

// Client operations

func (s *MemoryStore) ListClients(ctx context.Context, userID int64) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Client, 0)
	for _, rec := range s.clients {
		if rec.userID == userID {
			out = append(out, rec.row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetClient(ctx context.Context, userID, id int64) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getClientLocked(userID, id)
}

func (s *MemoryStore) getClientLocked(userID, id int64) (*domain.Client, error) {
	rec, ok := s.clients[id]
	if !ok || rec.userID != userID {
		return nil, ErrClientNotFound
	}
	row := rec.row
	return &row, nil
}

func (s *MemoryStore) CreateClient(ctx context.Context, userID int64, input domain.ClientInput) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := domain.Client{
		ID:        s.nextClientID,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Company:   input.Company,
		Address:   input.Address,
		GST:       input.GST,
		Notes:     input.Notes,
		CreatedAt: time.Now(),
	}
	s.nextClientID++
	s.clients[client.ID] = memRecord[domain.Client]{userID: userID, row: client}

	s.appendActivityLocked(userID, domain.ActivityClientAdded,
		fmt.Sprintf("Added %s to the client list", client.Name),
		map[string]any{"clientId": client.ID})

	return &client, nil
}

func (s *MemoryStore) UpdateClient(ctx context.Context, userID, id int64, patch domain.ClientPatch) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.clients[id]
	if !ok || rec.userID != userID {
		return nil, ErrClientNotFound
	}

	client := rec.row
	if patch.Name != nil {
		client.Name = *patch.Name
	}
	if patch.Email != nil {
		client.Email = *patch.Email
	}
	if patch.Phone != nil {
		client.Phone = nullable(patch.Phone)
	}
	if patch.Company != nil {
		client.Company = nullable(patch.Company)
	}
	if patch.Address != nil {
		client.Address = nullable(patch.Address)
	}
	if patch.GST != nil {
		client.GST = nullable(patch.GST)
	}
	if patch.Notes != nil {
		client.Notes = nullable(patch.Notes)
	}
	s.clients[id] = memRecord[domain.Client]{userID: userID, row: client}

	s.appendActivityLocked(userID, domain.ActivityClientUpdated,
		fmt.Sprintf("Updated client information for %s", client.Name),
		map[string]any{"clientId": id})

	return &client, nil
}

func (s *MemoryStore) DeleteClient(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.clients[id]
	if !ok || rec.userID != userID {
		return ErrClientNotFound
	}
	for _, r := range s.renewals {
		if r.userID == userID && r.row.ClientID == id {
			return ErrClientHasRenewals
		}
	}

	delete(s.clients, id)
	s.appendActivityLocked(userID, domain.ActivityClientDeleted,
		fmt.Sprintf("Deleted client %s", rec.row.Name),
		map[string]any{"clientId": id})
	return nil
}

// Service operations

func (s *MemoryStore) ListServices(ctx context.Context, userID int64) ([]domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Service, 0)
	for _, rec := range s.services {
		if rec.userID == userID {
			out = append(out, rec.row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetService(ctx context.Context, userID, id int64) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getServiceLocked(userID, id)
}

func (s *MemoryStore) getServiceLocked(userID, id int64) (*domain.Service, error) {
	rec, ok := s.services[id]
	if !ok || rec.userID != userID {
		return nil, ErrServiceNotFound
	}
	row := rec.row
	return &row, nil
}

func (s *MemoryStore) CreateService(ctx context.Context, userID int64, input domain.ServiceInput) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	service := domain.Service{
		ID:              s.nextServiceID,
		Name:            input.Name,
		Description:     input.Description,
		DefaultDuration: input.DefaultDuration,
		DefaultPrice:    input.DefaultPrice,
		CreatedAt:       time.Now(),
	}
	s.nextServiceID++
	s.services[service.ID] = memRecord[domain.Service]{userID: userID, row: service}

	s.appendActivityLocked(userID, domain.ActivityServiceAdded,
		fmt.Sprintf("Added new service: %s", service.Name),
		map[string]any{"serviceId": service.ID})

	return &service, nil
}

func (s *MemoryStore) UpdateService(ctx context.Context, userID, id int64, patch domain.ServicePatch) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.services[id]
	if !ok || rec.userID != userID {
		return nil, ErrServiceNotFound
	}

	service := rec.row
	if patch.Name != nil {
		service.Name = *patch.Name
	}
	if patch.Description != nil {
		service.Description = nullable(patch.Description)
	}
	if patch.DefaultDuration != nil {
		service.DefaultDuration = *patch.DefaultDuration
	}
	if patch.DefaultPrice != nil {
		service.DefaultPrice = *patch.DefaultPrice
	}
	s.services[id] = memRecord[domain.Service]{userID: userID, row: service}

	s.appendActivityLocked(userID, domain.ActivityServiceUpdated,
		fmt.Sprintf("Updated service: %s", service.Name),
		map[string]any{"serviceId": id})

	return &service, nil
}

func (s *MemoryStore) DeleteService(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.services[id]
	if !ok || rec.userID != userID {
		return ErrServiceNotFound
	}
	for _, r := range s.renewals {
		if r.userID == userID && r.row.ServiceID == id {
			return ErrServiceHasRenewals
		}
	}

	delete(s.services, id)
	s.appendActivityLocked(userID, domain.ActivityServiceDeleted,
		fmt.Sprintf("Deleted service: %s", rec.row.Name),
		map[string]any{"serviceId": id})
	return nil
}

// Renewal operations

func (s *MemoryStore) ListRenewals(ctx context.Context, userID int64) ([]domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRenewalsLocked(userID, func(domain.Renewal) bool { return true }), nil
}

func (s *MemoryStore) ListRenewalsByClient(ctx context.Context, userID, clientID int64) ([]domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRenewalsLocked(userID, func(r domain.Renewal) bool { return r.ClientID == clientID }), nil
}

func (s *MemoryStore) ListRenewalsByService(ctx context.Context, userID, serviceID int64) ([]domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRenewalsLocked(userID, func(r domain.Renewal) bool { return r.ServiceID == serviceID }), nil
}

func (s *MemoryStore) listRenewalsLocked(userID int64, keep func(domain.Renewal) bool) []domain.Renewal {
	out := make([]domain.Renewal, 0)
	for _, rec := range s.renewals {
		if rec.userID == userID && keep(rec.row) {
			out = append(out, rec.row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out
}

func (s *MemoryStore) GetRenewal(ctx context.Context, userID, id int64) (*domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.renewals[id]
	if !ok || rec.userID != userID {
		return nil, ErrRenewalNotFound
	}
	row := rec.row
	return &row, nil
}

func (s *MemoryStore) CreateRenewal(ctx context.Context, userID int64, input domain.RenewalInput) (*domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	renewal := domain.Renewal{
		ID:               s.nextRenewalID,
		ClientID:         input.ClientID,
		ServiceID:        input.ServiceID,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		Amount:           input.Amount,
		IsPaid:           input.IsPaid,
		NotificationSent: false,
		Notes:            input.Notes,
		CreatedAt:        time.Now(),
	}
	s.nextRenewalID++
	s.renewals[renewal.ID] = memRecord[domain.Renewal]{userID: userID, row: renewal}

	s.appendActivityLocked(userID, domain.ActivityRenewalCreated,
		fmt.Sprintf("Created renewal for %s - %s",
			s.clientNameLocked(userID, renewal.ClientID), s.serviceNameLocked(userID, renewal.ServiceID)),
		map[string]any{"renewalId": renewal.ID, "clientId": renewal.ClientID, "serviceId": renewal.ServiceID, "amount": renewal.Amount})

	return &renewal, nil
}

func (s *MemoryStore) UpdateRenewal(ctx context.Context, userID, id int64, patch domain.RenewalPatch) (*domain.Renewal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.renewals[id]
	if !ok || rec.userID != userID {
		return nil, ErrRenewalNotFound
	}

	renewal := rec.row
	wasPaid := renewal.IsPaid
	if patch.ClientID != nil {
		renewal.ClientID = *patch.ClientID
	}
	if patch.ServiceID != nil {
		renewal.ServiceID = *patch.ServiceID
	}
	if patch.StartDate != nil {
		renewal.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		renewal.EndDate = *patch.EndDate
	}
	if patch.Amount != nil {
		renewal.Amount = *patch.Amount
	}
	if patch.IsPaid != nil {
		renewal.IsPaid = *patch.IsPaid
	}
	if patch.Notes != nil {
		renewal.Notes = nullable(patch.Notes)
	}
	s.renewals[id] = memRecord[domain.Renewal]{userID: userID, row: renewal}

	// Only the false->true payment transition is event-worthy. Reverting a
	// payment appends nothing.
	if !wasPaid && renewal.IsPaid {
		s.appendActivityLocked(userID, domain.ActivityPaymentReceived,
			fmt.Sprintf("Payment of %.2f received from %s for %s", renewal.Amount,
				s.clientNameLocked(userID, renewal.ClientID), s.serviceNameLocked(userID, renewal.ServiceID)),
			map[string]any{"renewalId": id, "clientId": renewal.ClientID, "serviceId": renewal.ServiceID, "amount": renewal.Amount})
	}

	return &renewal, nil
}

func (s *MemoryStore) SetRenewalNotificationStatus(ctx context.Context, userID, id int64, sent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.renewals[id]
	if !ok || rec.userID != userID {
		return ErrRenewalNotFound
	}

	renewal := rec.row
	renewal.NotificationSent = sent
	s.renewals[id] = memRecord[domain.Renewal]{userID: userID, row: renewal}

	if sent {
		s.appendActivityLocked(userID, domain.ActivityRenewalReminder,
			fmt.Sprintf("Sent reminder to %s about %s due on %s",
				s.clientNameLocked(userID, renewal.ClientID), s.serviceNameLocked(userID, renewal.ServiceID),
				renewal.EndDate.Format("Jan 2, 2006")),
			map[string]any{"renewalId": id, "clientId": renewal.ClientID, "serviceId": renewal.ServiceID})
	}
	return nil
}

func (s *MemoryStore) DeleteRenewal(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.renewals[id]
	if !ok || rec.userID != userID {
		return ErrRenewalNotFound
	}

	delete(s.renewals, id)
	s.appendActivityLocked(userID, domain.ActivityRenewalDeleted,
		fmt.Sprintf("Deleted renewal for %s - %s",
			s.clientNameLocked(userID, rec.row.ClientID), s.serviceNameLocked(userID, rec.row.ServiceID)),
		map[string]any{"renewalId": id, "clientId": rec.row.ClientID, "serviceId": rec.row.ServiceID, "amount": rec.row.Amount})
	return nil
}

// Activity operations

func (s *MemoryStore) ListActivities(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Activity, 0)
	for _, rec := range s.activities {
		if rec.userID == userID {
			out = append(out, rec.row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetActivity(ctx context.Context, userID, id int64) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.activities[id]
	if !ok || rec.userID != userID {
		return nil, ErrActivityNotFound
	}
	row := rec.row
	return &row, nil
}

func (s *MemoryStore) CreateActivity(ctx context.Context, userID int64, input domain.ActivityInput) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity := s.createActivityLocked(userID, input)
	return &activity, nil
}

// helpers

func (s *MemoryStore) createActivityLocked(userID int64, input domain.ActivityInput) domain.Activity {
	activity := domain.Activity{
		ID:          s.nextActivityID,
		Type:        input.Type,
		Description: input.Description,
		Metadata:    input.Metadata,
		CreatedAt:   time.Now(),
	}
	s.nextActivityID++
	s.activities[activity.ID] = memRecord[domain.Activity]{userID: userID, row: activity}
	return activity
}

func (s *MemoryStore) appendActivityLocked(userID int64, activityType, description string, metadata map[string]any) {
	s.createActivityLocked(userID, domain.ActivityInput{
		Type:        activityType,
		Description: description,
		Metadata:    marshalMetadata(metadata),
	})
}

func (s *MemoryStore) clientNameLocked(userID, id int64) string {
	if c, err := s.getClientLocked(userID, id); err == nil {
		return c.Name
	}
	return fmt.Sprintf("client #%d", id)
}

func (s *MemoryStore) serviceNameLocked(userID, id int64) string {
	if sv, err := s.getServiceLocked(userID, id); err == nil {
		return sv.Name
	}
	return fmt.Sprintf("service #%d", id)
}

// marshalMetadata serializes the metadata map to a JSON string pointer.
func marshalMetadata(metadata map[string]any) *string {
	if len(metadata) == 0 {
		return nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// nullable collapses an explicit empty string to NULL for nullable columns.
func nullable(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	val := *v
	return &val
}
