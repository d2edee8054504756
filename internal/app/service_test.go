package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shreyask21-dev/recurr/internal/domain"
	"github.com/Shreyask21-dev/recurr/internal/store"
)

// serviceStoreStub embeds the Store interface so each test overrides only the
// methods it exercises.
type serviceStoreStub struct {
	store.Store

	clients  []domain.Client
	services []domain.Service
	renewals []domain.Renewal

	clientsErr  error
	createdWith *domain.RenewalInput
}

func (s *serviceStoreStub) ListClients(ctx context.Context, userID int64) ([]domain.Client, error) {
	if s.clientsErr != nil {
		return nil, s.clientsErr
	}
	return s.clients, nil
}

func (s *serviceStoreStub) ListServices(ctx context.Context, userID int64) ([]domain.Service, error) {
	return s.services, nil
}

func (s *serviceStoreStub) ListRenewals(ctx context.Context, userID int64) ([]domain.Renewal, error) {
	return s.renewals, nil
}

func (s *serviceStoreStub) GetClient(ctx context.Context, userID, id int64) (*domain.Client, error) {
	for _, c := range s.clients {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrClientNotFound
}

func (s *serviceStoreStub) GetService(ctx context.Context, userID, id int64) (*domain.Service, error) {
	for _, sv := range s.services {
		if sv.ID == id {
			return &sv, nil
		}
	}
	return nil, store.ErrServiceNotFound
}

func (s *serviceStoreStub) GetRenewal(ctx context.Context, userID, id int64) (*domain.Renewal, error) {
	for _, r := range s.renewals {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, store.ErrRenewalNotFound
}

func (s *serviceStoreStub) ListActivities(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	return []domain.Activity{}, nil
}

func (s *serviceStoreStub) CreateRenewal(ctx context.Context, userID int64, input domain.RenewalInput) (*domain.Renewal, error) {
	s.createdWith = &input
	return &domain.Renewal{ID: 1, ClientID: input.ClientID, ServiceID: input.ServiceID, Amount: input.Amount}, nil
}

func (s *serviceStoreStub) UpdateRenewal(ctx context.Context, userID, id int64, patch domain.RenewalPatch) (*domain.Renewal, error) {
	for i := range s.renewals {
		if s.renewals[i].ID == id {
			if patch.IsPaid != nil {
				s.renewals[i].IsPaid = *patch.IsPaid
			}
			updated := s.renewals[i]
			return &updated, nil
		}
	}
	return nil, store.ErrRenewalNotFound
}

// publisherStub records published activity events.
type publisherStub struct {
	types []string
}

func (p *publisherStub) PublishActivityEvent(ctx context.Context, userID int64, activityType string, payload map[string]any) error {
	p.types = append(p.types, activityType)
	return nil
}

func (p *publisherStub) Close() {}

func newTestService(st store.Store, pub *publisherStub) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, pub, logger)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateRenewal_RejectsMissingClient(t *testing.T) {
	stub := &serviceStoreStub{
		services: []domain.Service{{ID: 1, Name: "Hosting"}},
	}
	svc := newTestService(stub, &publisherStub{})

	_, err := svc.CreateRenewal(context.Background(), 1, domain.RenewalInput{ClientID: 99, ServiceID: 1, Amount: 100})
	if !errors.Is(err, store.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if stub.createdWith != nil {
		t.Fatal("renewal should not be written when the client is missing")
	}
}

func TestCreateRenewal_RejectsMissingService(t *testing.T) {
	stub := &serviceStoreStub{
		clients: []domain.Client{{ID: 1, Name: "Acme"}},
	}
	svc := newTestService(stub, &publisherStub{})

	_, err := svc.CreateRenewal(context.Background(), 1, domain.RenewalInput{ClientID: 1, ServiceID: 99, Amount: 100})
	if !errors.Is(err, store.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	if stub.createdWith != nil {
		t.Fatal("renewal should not be written when the service is missing")
	}
}

func TestCreateRenewal_PublishesEvent(t *testing.T) {
	stub := &serviceStoreStub{
		clients:  []domain.Client{{ID: 1, Name: "Acme"}},
		services: []domain.Service{{ID: 1, Name: "Hosting"}},
	}
	pub := &publisherStub{}
	svc := newTestService(stub, pub)

	if _, err := svc.CreateRenewal(context.Background(), 1, domain.RenewalInput{ClientID: 1, ServiceID: 1, Amount: 100}); err != nil {
		t.Fatalf("CreateRenewal failed: %v", err)
	}
	if len(pub.types) != 1 || pub.types[0] != domain.ActivityRenewalCreated {
		t.Fatalf("expected one renewal_created event, got %v", pub.types)
	}
}

func TestListClients_DegradesToEmptyOnReadError(t *testing.T) {
	stub := &serviceStoreStub{clientsErr: errors.New("connection refused")}
	svc := newTestService(stub, &publisherStub{})

	clients, err := svc.ListClients(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected degraded read to succeed, got %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected empty result, got %d clients", len(clients))
	}
}

func TestListRenewals_EnrichesWithRelationsAndStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	stub := &serviceStoreStub{
		clients:  []domain.Client{{ID: 1, Name: "Acme", Email: "acme@example.com"}},
		services: []domain.Service{{ID: 2, Name: "Hosting"}},
		renewals: []domain.Renewal{{
			ID: 5, ClientID: 1, ServiceID: 2,
			EndDate: now.AddDate(0, 0, 5), Amount: 100,
		}},
	}
	svc := newTestService(stub, &publisherStub{})

	enriched, err := svc.ListRenewalsEnriched(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRenewalsEnriched failed: %v", err)
	}
	if len(enriched) != 1 {
		t.Fatalf("expected 1 renewal, got %d", len(enriched))
	}
	got := enriched[0]
	if got.Client.Name != "Acme" || got.Service.Name != "Hosting" {
		t.Fatalf("unexpected relations: %+v", got)
	}
	if got.Status != "Due Soon" || got.DaysRemaining != 5 {
		t.Fatalf("unexpected status: %q / %d days", got.Status, got.DaysRemaining)
	}
}

func TestEnrichment_SurfacesOrphanedRelation(t *testing.T) {
	stub := &serviceStoreStub{
		clients:  []domain.Client{{ID: 1, Name: "Acme"}},
		services: []domain.Service{},
		renewals: []domain.Renewal{{ID: 5, ClientID: 1, ServiceID: 42}},
	}
	svc := newTestService(stub, &publisherStub{})

	_, err := svc.GetRenewalEnriched(context.Background(), 1, 5)
	if !errors.Is(err, store.ErrRelationMissing) {
		t.Fatalf("expected ErrRelationMissing, got %v", err)
	}
}

func TestDashboardStats_Composition(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	stub := &serviceStoreStub{
		clients:  []domain.Client{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Beta"}},
		services: []domain.Service{{ID: 1, Name: "Hosting"}},
		renewals: []domain.Renewal{
			{ID: 1, ClientID: 1, ServiceID: 1, EndDate: now.AddDate(0, 0, 10), Amount: 100, CreatedAt: now},
			{ID: 2, ClientID: 2, ServiceID: 1, EndDate: now.AddDate(0, 2, 0), Amount: 200, IsPaid: true, CreatedAt: now.AddDate(0, 0, -2)},
		},
	}
	svc := newTestService(stub, &publisherStub{})

	stats, err := svc.DashboardStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}
	if stats.TotalClients != 2 || stats.ActiveServices != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.PendingRenewals != 1 {
		t.Fatalf("expected 1 pending renewal, got %d", stats.PendingRenewals)
	}
	if len(stats.UpcomingRenewals) != 1 || stats.UpcomingRenewals[0].ID != 1 {
		t.Fatalf("unexpected upcoming renewals: %+v", stats.UpcomingRenewals)
	}
	if stats.Revenue.MTD != 200 {
		t.Fatalf("expected MTD 200, got %.2f", stats.Revenue.MTD)
	}
	if len(stats.MonthlyRevenue) != MonthlyRevenueMonths {
		t.Fatalf("expected %d monthly buckets, got %d", MonthlyRevenueMonths, len(stats.MonthlyRevenue))
	}
}

func TestUpdateRenewal_PaymentEventPublishedOncePerTransition(t *testing.T) {
	stub := &serviceStoreStub{
		renewals: []domain.Renewal{{ID: 1, ClientID: 1, ServiceID: 1, Amount: 500}},
	}
	pub := &publisherStub{}
	svc := newTestService(stub, pub)

	paid := true
	for i := 0; i < 2; i++ {
		if _, err := svc.UpdateRenewal(context.Background(), 1, 1, domain.RenewalPatch{IsPaid: &paid}); err != nil {
			t.Fatalf("UpdateRenewal failed: %v", err)
		}
	}

	payments := 0
	for _, typ := range pub.types {
		if typ == domain.ActivityPaymentReceived {
			payments++
		}
	}
	if payments != 1 {
		t.Fatalf("expected exactly 1 payment event across repeated paid patches, got %d", payments)
	}
}

func TestGetRenewal_NotFoundPassesThrough(t *testing.T) {
	stub := &serviceStoreStub{}
	svc := newTestService(stub, &publisherStub{})

	_, err := svc.GetRenewal(context.Background(), 1, 99)
	if !errors.Is(err, store.ErrRenewalNotFound) {
		t.Fatalf("expected ErrRenewalNotFound, got %v", err)
	}
}

func TestListUpcomingEnriched_FiltersWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	stub := &serviceStoreStub{
		clients:  []domain.Client{{ID: 1, Name: "Acme"}},
		services: []domain.Service{{ID: 1, Name: "Hosting"}},
		renewals: []domain.Renewal{
			{ID: 1, ClientID: 1, ServiceID: 1, EndDate: now.AddDate(0, 0, 3)},
			{ID: 2, ClientID: 1, ServiceID: 1, EndDate: now.AddDate(0, 0, 10)},
			{ID: 3, ClientID: 1, ServiceID: 1, EndDate: now.AddDate(0, 0, 3), IsPaid: true},
		},
	}
	svc := newTestService(stub, &publisherStub{})

	upcoming, err := svc.ListUpcomingEnriched(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("ListUpcomingEnriched failed: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != 1 {
		t.Fatalf("expected only renewal 1 within 7 days, got %+v", upcoming)
	}
}

func TestMonthlyRevenueSeries_DefaultsAndDegrades(t *testing.T) {
	stub := &serviceStoreStub{}
	svc := newTestService(stub, &publisherStub{})

	series, err := svc.MonthlyRevenueSeries(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("MonthlyRevenueSeries failed: %v", err)
	}
	if len(series) != MonthlyRevenueMonths {
		t.Fatalf("expected default %d buckets, got %d", MonthlyRevenueMonths, len(series))
	}
}
