/**
 * @description
 * This file defines the `Store` interface, the persistence contract shared by
 * the durable PostgreSQL implementation and the in-memory fallback. Both
 * implementations must behave identically from the caller's point of view:
 * same ordering guarantees, same activity side effects, same sentinel errors.
 *
 * Every method takes the owning user's id so row scoping is enforced in one
 * place rather than bolted on per backend.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - internal/domain: For the entity models.
 */

package store

import (
	"context"
	"errors"

	"github.com/Shreyask21-dev/recurr/internal/domain"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrRenewalNotFound  = errors.New("renewal not found")
	ErrActivityNotFound = errors.New("activity not found")

	// Delete guards: a client or service cannot be removed while renewals
	// still reference it.
	ErrClientHasRenewals  = errors.New("client has associated renewals")
	ErrServiceHasRenewals = errors.New("service has associated renewals")

	// ErrRelationMissing reports an orphaned clientId/serviceId discovered
	// while joining a renewal to its relations. This is an integrity failure,
	// never silently dropped.
	ErrRelationMissing = errors.New("related client or service missing")
)

// Store is the persistence contract for clients, services, renewals and the
// activity trail.
//
// Ordering guarantees: clients and services list by name ascending, renewals
// by end date ascending, activities by creation time descending.
//
// Activity side effects, atomic with their mutation: creates, deletes and
// client/service updates each append exactly one activity entry describing the
// action. UpdateRenewal appends a payment_received entry only when isPaid
// transitions false to true; any other renewal update, including reverting a
// payment, appends nothing. SetRenewalNotificationStatus(true) appends a
// renewal_reminder entry.
type Store interface {
	// Client operations
	ListClients(ctx context.Context, userID int64) ([]domain.Client, error)
	GetClient(ctx context.Context, userID, id int64) (*domain.Client, error)
	CreateClient(ctx context.Context, userID int64, input domain.ClientInput) (*domain.Client, error)
	UpdateClient(ctx context.Context, userID, id int64, patch domain.ClientPatch) (*domain.Client, error)
	DeleteClient(ctx context.Context, userID, id int64) error

	// Service operations
	ListServices(ctx context.Context, userID int64) ([]domain.Service, error)
	GetService(ctx context.Context, userID, id int64) (*domain.Service, error)
	CreateService(ctx context.Context, userID int64, input domain.ServiceInput) (*domain.Service, error)
	UpdateService(ctx context.Context, userID, id int64, patch domain.ServicePatch) (*domain.Service, error)
	DeleteService(ctx context.Context, userID, id int64) error

	// Renewal operations
	ListRenewals(ctx context.Context, userID int64) ([]domain.Renewal, error)
	GetRenewal(ctx context.Context, userID, id int64) (*domain.Renewal, error)
	ListRenewalsByClient(ctx context.Context, userID, clientID int64) ([]domain.Renewal, error)
	ListRenewalsByService(ctx context.Context, userID, serviceID int64) ([]domain.Renewal, error)
	CreateRenewal(ctx context.Context, userID int64, input domain.RenewalInput) (*domain.Renewal, error)
	UpdateRenewal(ctx context.Context, userID, id int64, patch domain.RenewalPatch) (*domain.Renewal, error)
	SetRenewalNotificationStatus(ctx context.Context, userID, id int64, sent bool) error
	DeleteRenewal(ctx context.Context, userID, id int64) error

	// Activity operations. limit <= 0 returns all entries.
	ListActivities(ctx context.Context, userID int64, limit int) ([]domain.Activity, error)
	GetActivity(ctx context.Context, userID, id int64) (*domain.Activity, error)
	CreateActivity(ctx context.Context, userID int64, input domain.ActivityInput) (*domain.Activity, error)
}
