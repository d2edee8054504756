/**
 * @description
 * This file contains the core business logic for the renewal service. The
 * `Service` struct orchestrates operations across the persistence store and the
 * activity event producer, and owns the behavior both storage backends must
 * share: relation validation before renewal writes, enrichment of renewals with
 * their client/service and urgency status, and the read-degradation policy.
 *
 * Read-degradation policy: list reads that fail return empty collections with a
 * logged warning so the dashboard keeps rendering through a storage outage.
 * Writes never degrade; their errors propagate to the caller.
 *
 * @dependencies
 * - context, errors, fmt, log/slog, time: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Activity event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shreyask21-dev/recurr/internal/domain"
	"github.com/Shreyask21-dev/recurr/internal/store"
	"github.com/Shreyask21-dev/recurr/pkg/rabbitmq"
)

// Defaults for the dashboard snapshot.
const (
	UpcomingWindowDays   = 30
	RecentActivityLimit  = 10
	MonthlyRevenueMonths = 6
)

// Service provides the business logic over a Store implementation.
type Service struct {
	store         store.Store
	eventProducer rabbitmq.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a service instance. The producer may be a no-op publisher
// when no broker is configured.
func NewService(st store.Store, producer rabbitmq.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:         st,
		eventProducer: producer,
		logger:        logger,
		now:           time.Now,
	}
}

// Client operations

func (s *Service) ListClients(ctx context.Context, userID int64) ([]domain.Client, error) {
	clients, err := s.store.ListClients(ctx, userID)
	if err != nil {
		s.logger.Warn("client list read failed, returning empty", "error", err)
		return []domain.Client{}, nil
	}
	return clients, nil
}

func (s *Service) GetClient(ctx context.Context, userID, id int64) (*domain.Client, error) {
	return s.store.GetClient(ctx, userID, id)
}

func (s *Service) CreateClient(ctx context.Context, userID int64, input domain.ClientInput) (*domain.Client, error) {
	client, err := s.store.CreateClient(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityClientAdded, map[string]any{"clientId": client.ID})
	return client, nil
}

func (s *Service) UpdateClient(ctx context.Context, userID, id int64, patch domain.ClientPatch) (*domain.Client, error) {
	client, err := s.store.UpdateClient(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityClientUpdated, map[string]any{"clientId": id})
	return client, nil
}

func (s *Service) DeleteClient(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteClient(ctx, userID, id); err != nil {
		return err
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityClientDeleted, map[string]any{"clientId": id})
	return nil
}

// Service catalog operations

func (s *Service) ListServices(ctx context.Context, userID int64) ([]domain.Service, error) {
	services, err := s.store.ListServices(ctx, userID)
	if err != nil {
		s.logger.Warn("service list read failed, returning empty", "error", err)
		return []domain.Service{}, nil
	}
	return services, nil
}

func (s *Service) GetService(ctx context.Context, userID, id int64) (*domain.Service, error) {
	return s.store.GetService(ctx, userID, id)
}

func (s *Service) CreateService(ctx context.Context, userID int64, input domain.ServiceInput) (*domain.Service, error) {
	service, err := s.store.CreateService(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityServiceAdded, map[string]any{"serviceId": service.ID})
	return service, nil
}

func (s *Service) UpdateService(ctx context.Context, userID, id int64, patch domain.ServicePatch) (*domain.Service, error) {
	service, err := s.store.UpdateService(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityServiceUpdated, map[string]any{"serviceId": id})
	return service, nil
}

func (s *Service) DeleteService(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteService(ctx, userID, id); err != nil {
		return err
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityServiceDeleted, map[string]any{"serviceId": id})
	return nil
}

// Renewal operations

// ListRenewals returns every renewal ordered by due date ascending, without
// relation data.
func (s *Service) ListRenewals(ctx context.Context, userID int64) ([]domain.Renewal, error) {
	renewals, err := s.store.ListRenewals(ctx, userID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning empty", "error", err)
		return []domain.Renewal{}, nil
	}
	return renewals, nil
}

// ListRenewalsEnriched returns every renewal joined to its client, service and
// urgency status, ordered by due date ascending.
func (s *Service) ListRenewalsEnriched(ctx context.Context, userID int64) ([]domain.RenewalWithRelations, error) {
	renewals, err := s.store.ListRenewals(ctx, userID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning empty", "error", err)
		return []domain.RenewalWithRelations{}, nil
	}
	return s.enrichRenewals(ctx, userID, renewals)
}

// ListUpcomingEnriched returns the unpaid renewals due within the next `days`
// days, enriched, due date ascending.
func (s *Service) ListUpcomingEnriched(ctx context.Context, userID int64, days int) ([]domain.RenewalWithRelations, error) {
	if days <= 0 {
		days = UpcomingWindowDays
	}
	renewals, err := s.store.ListRenewals(ctx, userID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning empty", "error", err)
		return []domain.RenewalWithRelations{}, nil
	}
	return s.enrichRenewals(ctx, userID, filterUpcoming(renewals, s.now(), days))
}

// ListRenewalsByClient returns the client's renewals, enriched. The client must
// exist.
func (s *Service) ListRenewalsByClient(ctx context.Context, userID, clientID int64) ([]domain.RenewalWithRelations, error) {
	if _, err := s.store.GetClient(ctx, userID, clientID); err != nil {
		return nil, err
	}
	renewals, err := s.store.ListRenewalsByClient(ctx, userID, clientID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning empty", "clientId", clientID, "error", err)
		return []domain.RenewalWithRelations{}, nil
	}
	return s.enrichRenewals(ctx, userID, renewals)
}

// ListRenewalsByService returns the renewals billed against one service,
// enriched. The service must exist.
func (s *Service) ListRenewalsByService(ctx context.Context, userID, serviceID int64) ([]domain.RenewalWithRelations, error) {
	if _, err := s.store.GetService(ctx, userID, serviceID); err != nil {
		return nil, err
	}
	renewals, err := s.store.ListRenewalsByService(ctx, userID, serviceID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning empty", "serviceId", serviceID, "error", err)
		return []domain.RenewalWithRelations{}, nil
	}
	return s.enrichRenewals(ctx, userID, renewals)
}

func (s *Service) GetRenewal(ctx context.Context, userID, id int64) (*domain.Renewal, error) {
	return s.store.GetRenewal(ctx, userID, id)
}

// GetRenewalEnriched returns one renewal joined to its relations and status.
func (s *Service) GetRenewalEnriched(ctx context.Context, userID, id int64) (*domain.RenewalWithRelations, error) {
	renewal, err := s.store.GetRenewal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrichRenewals(ctx, userID, []domain.Renewal{*renewal})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// CreateRenewal validates that the referenced client and service exist before
// writing, so a renewal can never be created against a missing relation.
func (s *Service) CreateRenewal(ctx context.Context, userID int64, input domain.RenewalInput) (*domain.Renewal, error) {
	if err := s.validateRelations(ctx, userID, input.ClientID, input.ServiceID); err != nil {
		return nil, err
	}
	renewal, err := s.store.CreateRenewal(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create renewal: %w", err)
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityRenewalCreated, map[string]any{"renewalId": renewal.ID})
	return renewal, nil
}

// UpdateRenewal validates any re-pointed relation before applying the patch.
// The payment broker event mirrors the store's audit rule: it is published only
// when the stored isPaid flag actually flips to true, not on every paid patch.
func (s *Service) UpdateRenewal(ctx context.Context, userID, id int64, patch domain.RenewalPatch) (*domain.Renewal, error) {
	if patch.ClientID != nil {
		if _, err := s.store.GetClient(ctx, userID, *patch.ClientID); err != nil {
			return nil, err
		}
	}
	if patch.ServiceID != nil {
		if _, err := s.store.GetService(ctx, userID, *patch.ServiceID); err != nil {
			return nil, err
		}
	}
	paymentTransition := false
	if patch.IsPaid != nil && *patch.IsPaid {
		current, err := s.store.GetRenewal(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		paymentTransition = !current.IsPaid
	}
	renewal, err := s.store.UpdateRenewal(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	if paymentTransition {
		s.publishActivityEvent(ctx, userID, domain.ActivityPaymentReceived, map[string]any{"renewalId": id, "amount": renewal.Amount})
	}
	return renewal, nil
}

// SetRenewalNotification flags whether a reminder was sent for the renewal.
// Only setting the flag is reminder-worthy; clearing it is bookkeeping.
func (s *Service) SetRenewalNotification(ctx context.Context, userID, id int64, sent bool) error {
	if err := s.store.SetRenewalNotificationStatus(ctx, userID, id, sent); err != nil {
		return err
	}
	if sent {
		s.publishActivityEvent(ctx, userID, domain.ActivityRenewalReminder, map[string]any{"renewalId": id})
	}
	return nil
}

func (s *Service) DeleteRenewal(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteRenewal(ctx, userID, id); err != nil {
		return err
	}
	s.publishActivityEvent(ctx, userID, domain.ActivityRenewalDeleted, map[string]any{"renewalId": id})
	return nil
}

// Activity operations

func (s *Service) ListActivities(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	activities, err := s.store.ListActivities(ctx, userID, limit)
	if err != nil {
		s.logger.Warn("activity list read failed, returning empty", "error", err)
		return []domain.Activity{}, nil
	}
	return activities, nil
}

func (s *Service) GetActivity(ctx context.Context, userID, id int64) (*domain.Activity, error) {
	return s.store.GetActivity(ctx, userID, id)
}

// CreateActivity appends a caller-supplied audit entry.
func (s *Service) CreateActivity(ctx context.Context, userID int64, input domain.ActivityInput) (*domain.Activity, error) {
	activity, err := s.store.CreateActivity(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return activity, nil
}

// MonthlyRevenueSeries returns the trailing `months` paid-revenue buckets,
// oldest first.
func (s *Service) MonthlyRevenueSeries(ctx context.Context, userID int64, months int) ([]domain.MonthlyRevenue, error) {
	if months <= 0 {
		months = MonthlyRevenueMonths
	}
	renewals, err := s.store.ListRenewals(ctx, userID)
	if err != nil {
		s.logger.Warn("renewal list read failed, returning zero-filled series", "error", err)
		renewals = nil
	}
	return monthlyRevenue(renewals, s.now(), months), nil
}

// Dashboard

// DashboardStats assembles the aggregate snapshot from fresh reads. Individual
// read failures degrade to empty sections rather than failing the whole
// snapshot.
func (s *Service) DashboardStats(ctx context.Context, userID int64) (*domain.DashboardStats, error) {
	now := s.now()

	clients, err := s.store.ListClients(ctx, userID)
	if err != nil {
		s.logger.Warn("dashboard client read failed", "error", err)
		clients = nil
	}
	services, err := s.store.ListServices(ctx, userID)
	if err != nil {
		s.logger.Warn("dashboard service read failed", "error", err)
		services = nil
	}
	renewals, err := s.store.ListRenewals(ctx, userID)
	if err != nil {
		s.logger.Warn("dashboard renewal read failed", "error", err)
		renewals = nil
	}
	activities, err := s.store.ListActivities(ctx, userID, RecentActivityLimit)
	if err != nil {
		s.logger.Warn("dashboard activity read failed", "error", err)
		activities = []domain.Activity{}
	}

	upcoming, err := s.enrichRenewals(ctx, userID, filterUpcoming(renewals, now, UpcomingWindowDays))
	if err != nil {
		return nil, err
	}

	return &domain.DashboardStats{
		TotalClients:     len(clients),
		ActiveServices:   len(services),
		PendingRenewals:  countPending(renewals, now, UpcomingWindowDays),
		Revenue:          summarizeRevenue(renewals, now),
		UpcomingRenewals: upcoming,
		RecentActivities: activities,
		MonthlyRevenue:   monthlyRevenue(renewals, now, MonthlyRevenueMonths),
	}, nil
}

// helpers

func (s *Service) validateRelations(ctx context.Context, userID, clientID, serviceID int64) error {
	if _, err := s.store.GetClient(ctx, userID, clientID); err != nil {
		return err
	}
	if _, err := s.store.GetService(ctx, userID, serviceID); err != nil {
		return err
	}
	return nil
}

// enrichRenewals joins renewals to their client and service via two prefetched
// lookup maps and applies the urgency classifier. An orphaned reference is an
// integrity failure and surfaces as ErrRelationMissing.
func (s *Service) enrichRenewals(ctx context.Context, userID int64, renewals []domain.Renewal) ([]domain.RenewalWithRelations, error) {
	out := make([]domain.RenewalWithRelations, 0, len(renewals))
	if len(renewals) == 0 {
		return out, nil
	}

	clients, err := s.store.ListClients(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients for enrichment: %w", err)
	}
	services, err := s.store.ListServices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load services for enrichment: %w", err)
	}

	clientsByID := make(map[int64]domain.Client, len(clients))
	for _, c := range clients {
		clientsByID[c.ID] = c
	}
	servicesByID := make(map[int64]domain.Service, len(services))
	for _, sv := range services {
		servicesByID[sv.ID] = sv
	}

	now := s.now()
	for _, r := range renewals {
		client, ok := clientsByID[r.ClientID]
		if !ok {
			return nil, fmt.Errorf("renewal %d references client %d: %w", r.ID, r.ClientID, store.ErrRelationMissing)
		}
		service, ok := servicesByID[r.ServiceID]
		if !ok {
			return nil, fmt.Errorf("renewal %d references service %d: %w", r.ID, r.ServiceID, store.ErrRelationMissing)
		}

		status := domain.Classify(r.EndDate, r.IsPaid, now)
		out = append(out, domain.RenewalWithRelations{
			Renewal: r,
			Client: domain.ClientRef{
				ID:      client.ID,
				Name:    client.Name,
				Email:   client.Email,
				Company: client.Company,
			},
			Service: domain.ServiceRef{
				ID:   service.ID,
				Name: service.Name,
			},
			Status:        status.Label,
			DaysRemaining: status.DaysRemaining,
		})
	}
	return out, nil
}

// publishActivityEvent emits a broker event after a successful mutation. The
// event stream is advisory; publish failures are logged and never fail the
// request.
func (s *Service) publishActivityEvent(ctx context.Context, userID int64, activityType string, payload map[string]any) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.PublishActivityEvent(ctx, userID, activityType, payload); err != nil {
		s.logger.Warn("failed to publish activity event", "type", activityType, "error", err)
	}
}

// IsNotFound reports whether err is any of the store's not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrClientNotFound) ||
		errors.Is(err, store.ErrServiceNotFound) ||
		errors.Is(err, store.ErrRenewalNotFound) ||
		errors.Is(err, store.ErrActivityNotFound)
}
