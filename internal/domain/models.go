/**
 * @description
 * This file defines the core domain models for the renewal service: the persisted
 * entities (Client, Service, Renewal, Activity), their insert inputs, the
 * pointer-field patch types used for partial updates, and the derived read models
 * (RenewalWithRelations, DashboardStats) assembled on top of them.
 *
 * @notes
 * - JSON tags are camelCase to stay wire-compatible with the existing frontend
 *   (`clientId`, `isPaid`, `defaultPrice`, ...).
 * - Patch structs use pointer fields: nil means "leave untouched", a non-nil
 *   pointer applies the value, including clearing a nullable column with a
 *   pointer to the empty string.
 */

package domain

import "time"

// Client is a customer that renewal contracts are billed against.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Company   *string   `json:"company"`
	Address   *string   `json:"address"`
	GST       *string   `json:"gst"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientInput carries the caller-supplied fields for creating a client.
type ClientInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Address *string `json:"address"`
	GST     *string `json:"gst"`
	Notes   *string `json:"notes"`
}

// ClientPatch holds the fields of a partial client update.
type ClientPatch struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Address *string `json:"address"`
	GST     *string `json:"gst"`
	Notes   *string `json:"notes"`
}

// Service is a billable offering with a default contract duration and price.
type Service struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	DefaultDuration int       `json:"defaultDuration"` // months
	DefaultPrice    float64   `json:"defaultPrice"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ServiceInput carries the caller-supplied fields for creating a service.
type ServiceInput struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	DefaultDuration int     `json:"defaultDuration"`
	DefaultPrice    float64 `json:"defaultPrice"`
}

// ServicePatch holds the fields of a partial service update.
type ServicePatch struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	DefaultDuration *int     `json:"defaultDuration"`
	DefaultPrice    *float64 `json:"defaultPrice"`
}

// Renewal is a time-bounded service contract instance for a client, with a due
// date (EndDate) and a payment state.
type Renewal struct {
	ID               int64     `json:"id"`
	ClientID         int64     `json:"clientId"`
	ServiceID        int64     `json:"serviceId"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	Amount           float64   `json:"amount"`
	IsPaid           bool      `json:"isPaid"`
	NotificationSent bool      `json:"notificationSent"`
	Notes            *string   `json:"notes"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RenewalInput carries the caller-supplied fields for creating a renewal.
// NotificationSent is never caller-supplied; it always starts false.
type RenewalInput struct {
	ClientID  int64     `json:"clientId"`
	ServiceID int64     `json:"serviceId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Amount    float64   `json:"amount"`
	IsPaid    bool      `json:"isPaid"`
	Notes     *string   `json:"notes"`
}

// RenewalPatch holds the fields of a partial renewal update.
type RenewalPatch struct {
	ClientID  *int64     `json:"clientId"`
	ServiceID *int64     `json:"serviceId"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Amount    *float64   `json:"amount"`
	IsPaid    *bool      `json:"isPaid"`
	Notes     *string    `json:"notes"`
}

// Activity is one immutable entry of the audit trail. Entries are appended by
// the store as a side effect of mutating operations and are never updated or
// deleted afterwards.
type Activity struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    *string   `json:"metadata"` // opaque serialized JSON
	CreatedAt   time.Time `json:"createdAt"`
}

// ActivityInput carries the fields for appending an activity entry.
type ActivityInput struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Metadata    *string `json:"metadata"`
}

// Activity type tags emitted by the store.
const (
	ActivityClientAdded     = "client_added"
	ActivityClientUpdated   = "client_updated"
	ActivityClientDeleted   = "client_deleted"
	ActivityServiceAdded    = "service_added"
	ActivityServiceUpdated  = "service_updated"
	ActivityServiceDeleted  = "service_deleted"
	ActivityRenewalCreated  = "renewal_created"
	ActivityRenewalUpdated  = "renewal_updated"
	ActivityRenewalDeleted  = "renewal_deleted"
	ActivityPaymentReceived = "payment_received"
	ActivityRenewalReminder = "renewal_reminder"
)

// ClientRef is the subset of client fields embedded in enriched renewal views.
type ClientRef struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company *string `json:"company"`
}

// ServiceRef is the subset of service fields embedded in enriched renewal views.
type ServiceRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RenewalWithRelations is the read model joining a renewal to its client and
// service plus the classifier output. It is constructed on read, never stored.
type RenewalWithRelations struct {
	Renewal
	Client        ClientRef  `json:"client"`
	Service       ServiceRef `json:"service"`
	Status        string     `json:"status"`
	DaysRemaining int        `json:"daysRemaining"`
}

// RevenueSummary groups the revenue rollups shown on the dashboard.
type RevenueSummary struct {
	MTD       float64 `json:"mtd"`
	YTD       float64 `json:"ytd"`
	Projected float64 `json:"projected"`
}

// MonthlyRevenue is one bucket of the trailing-months revenue series.
type MonthlyRevenue struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// DashboardStats is the aggregate snapshot computed fresh per request.
type DashboardStats struct {
	TotalClients     int                    `json:"totalClients"`
	ActiveServices   int                    `json:"activeServices"`
	PendingRenewals  int                    `json:"pendingRenewals"`
	Revenue          RevenueSummary         `json:"revenue"`
	UpcomingRenewals []RenewalWithRelations `json:"upcomingRenewals"`
	RecentActivities []Activity             `json:"recentActivities"`
	MonthlyRevenue   []MonthlyRevenue       `json:"monthlyRevenue"`
}
