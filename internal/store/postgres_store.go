/**
 * @description
 * PostgreSQL implementation of the Store interface over a pgxpool connection
 * pool. All rows are scoped by user_id. Each logical mutation and the activity
 * entry it derives are committed in one transaction, so a crash can never
 * leave an activity-less mutation behind.
 *
 * Partial updates build their SET clause dynamically from the non-nil patch
 * fields, leaving unmentioned columns untouched.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver, transactions, pgx.ErrNoRows.
 * - internal/domain: Entity models.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shreyask21-dev/recurr/internal/domain"
)

// PostgresStore is the durable Store backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store over an established connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const clientColumns = "id, name, email, phone, company, address, gst, notes, created_at"

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Address, &c.GST, &c.Notes, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Client operations

func (s *PostgresStore) ListClients(ctx context.Context, userID int64) ([]domain.Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE user_id = $1 ORDER BY name ASC", clientColumns)
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetClient(ctx context.Context, userID, id int64) (*domain.Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE id = $1 AND user_id = $2", clientColumns)
	c, err := scanClient(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CreateClient(ctx context.Context, userID int64, input domain.ClientInput) (*domain.Client, error) {
	var client *domain.Client
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO clients (user_id, name, email, phone, company, address, gst, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING %s`, clientColumns)
		c, err := scanClient(tx.QueryRow(ctx, query,
			userID, input.Name, input.Email, input.Phone, input.Company, input.Address, input.GST, input.Notes))
		if err != nil {
			return err
		}
		client = c
		return s.insertActivity(ctx, tx, userID, domain.ActivityClientAdded,
			fmt.Sprintf("Added %s to the client list", c.Name),
			map[string]any{"clientId": c.ID})
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, userID, id int64, patch domain.ClientPatch) (*domain.Client, error) {
	set := newSetClause()
	set.add("name", patch.Name)
	set.add("email", patch.Email)
	set.addNullable("phone", patch.Phone)
	set.addNullable("company", patch.Company)
	set.addNullable("address", patch.Address)
	set.addNullable("gst", patch.GST)
	set.addNullable("notes", patch.Notes)
	if set.empty() {
		return s.GetClient(ctx, userID, id)
	}

	var client *domain.Client
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf("UPDATE clients SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
			set.clause(), set.next(), set.next()+1, clientColumns)
		c, err := scanClient(tx.QueryRow(ctx, query, append(set.args, id, userID)...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrClientNotFound
			}
			return err
		}
		client = c
		return s.insertActivity(ctx, tx, userID, domain.ActivityClientUpdated,
			fmt.Sprintf("Updated client information for %s", c.Name),
			map[string]any{"clientId": id})
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *PostgresStore) DeleteClient(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, "SELECT name FROM clients WHERE id = $1 AND user_id = $2 FOR UPDATE", id, userID).Scan(&name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrClientNotFound
			}
			return err
		}

		var referenced bool
		err = tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM renewals WHERE client_id = $1 AND user_id = $2)", id, userID).Scan(&referenced)
		if err != nil {
			return err
		}
		if referenced {
			return ErrClientHasRenewals
		}

		if _, err := tx.Exec(ctx, "DELETE FROM clients WHERE id = $1 AND user_id = $2", id, userID); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, userID, domain.ActivityClientDeleted,
			fmt.Sprintf("Deleted client %s", name),
			map[string]any{"clientId": id})
	})
}

// Service operations

const serviceColumns = "id, name, description, default_duration, default_price, created_at"

func scanService(row pgx.Row) (*domain.Service, error) {
	var sv domain.Service
	err := row.Scan(&sv.ID, &sv.Name, &sv.Description, &sv.DefaultDuration, &sv.DefaultPrice, &sv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sv, nil
}

func (s *PostgresStore) ListServices(ctx context.Context, userID int64) ([]domain.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE user_id = $1 ORDER BY name ASC", serviceColumns)
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Service, 0)
	for rows.Next() {
		sv, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetService(ctx context.Context, userID, id int64) (*domain.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE id = $1 AND user_id = $2", serviceColumns)
	sv, err := scanService(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return sv, nil
}

func (s *PostgresStore) CreateService(ctx context.Context, userID int64, input domain.ServiceInput) (*domain.Service, error) {
	var service *domain.Service
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO services (user_id, name, description, default_duration, default_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING %s`, serviceColumns)
		sv, err := scanService(tx.QueryRow(ctx, query,
			userID, input.Name, input.Description, input.DefaultDuration, input.DefaultPrice))
		if err != nil {
			return err
		}
		service = sv
		return s.insertActivity(ctx, tx, userID, domain.ActivityServiceAdded,
			fmt.Sprintf("Added new service: %s", sv.Name),
			map[string]any{"serviceId": sv.ID})
	})
	if err != nil {
		return nil, err
	}
	return service, nil
}

func (s *PostgresStore) UpdateService(ctx context.Context, userID, id int64, patch domain.ServicePatch) (*domain.Service, error) {
	set := newSetClause()
	set.add("name", patch.Name)
	set.addNullable("description", patch.Description)
	set.add("default_duration", patch.DefaultDuration)
	set.add("default_price", patch.DefaultPrice)
	if set.empty() {
		return s.GetService(ctx, userID, id)
	}

	var service *domain.Service
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf("UPDATE services SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
			set.clause(), set.next(), set.next()+1, serviceColumns)
		sv, err := scanService(tx.QueryRow(ctx, query, append(set.args, id, userID)...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrServiceNotFound
			}
			return err
		}
		service = sv
		return s.insertActivity(ctx, tx, userID, domain.ActivityServiceUpdated,
			fmt.Sprintf("Updated service: %s", sv.Name),
			map[string]any{"serviceId": id})
	})
	if err != nil {
		return nil, err
	}
	return service, nil
}

func (s *PostgresStore) DeleteService(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, "SELECT name FROM services WHERE id = $1 AND user_id = $2 FOR UPDATE", id, userID).Scan(&name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrServiceNotFound
			}
			return err
		}

		var referenced bool
		err = tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM renewals WHERE service_id = $1 AND user_id = $2)", id, userID).Scan(&referenced)
		if err != nil {
			return err
		}
		if referenced {
			return ErrServiceHasRenewals
		}

		if _, err := tx.Exec(ctx, "DELETE FROM services WHERE id = $1 AND user_id = $2", id, userID); err != nil {
			return err
		}
		return s.insertActivity(ctx, tx, userID, domain.ActivityServiceDeleted,
			fmt.Sprintf("Deleted service: %s", name),
			map[string]any{"serviceId": id})
	})
}

// Renewal operations

const renewalColumns = "id, client_id, service_id, start_date, end_date, amount, is_paid, notification_sent, notes, created_at"

func scanRenewal(row pgx.Row) (*domain.Renewal, error) {
	var r domain.Renewal
	err := row.Scan(&r.ID, &r.ClientID, &r.ServiceID, &r.StartDate, &r.EndDate,
		&r.Amount, &r.IsPaid, &r.NotificationSent, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRenewals(ctx context.Context, userID int64) ([]domain.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM renewals WHERE user_id = $1 ORDER BY end_date ASC", renewalColumns)
	return s.queryRenewals(ctx, query, userID)
}

func (s *PostgresStore) ListRenewalsByClient(ctx context.Context, userID, clientID int64) ([]domain.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM renewals WHERE user_id = $1 AND client_id = $2 ORDER BY end_date ASC", renewalColumns)
	return s.queryRenewals(ctx, query, userID, clientID)
}

func (s *PostgresStore) ListRenewalsByService(ctx context.Context, userID, serviceID int64) ([]domain.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM renewals WHERE user_id = $1 AND service_id = $2 ORDER BY end_date ASC", renewalColumns)
	return s.queryRenewals(ctx, query, userID, serviceID)
}

func (s *PostgresStore) queryRenewals(ctx context.Context, query string, args ...any) ([]domain.Renewal, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Renewal, 0)
	for rows.Next() {
		r, err := scanRenewal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetRenewal(ctx context.Context, userID, id int64) (*domain.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM renewals WHERE id = $1 AND user_id = $2", renewalColumns)
	r, err := scanRenewal(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRenewalNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) CreateRenewal(ctx context.Context, userID int64, input domain.RenewalInput) (*domain.Renewal, error) {
	var renewal *domain.Renewal
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO renewals (user_id, client_id, service_id, start_date, end_date, amount, is_paid, notification_sent, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
			RETURNING %s`, renewalColumns)
		r, err := scanRenewal(tx.QueryRow(ctx, query,
			userID, input.ClientID, input.ServiceID, input.StartDate, input.EndDate, input.Amount, input.IsPaid, input.Notes))
		if err != nil {
			return err
		}
		renewal = r
		return s.insertActivity(ctx, tx, userID, domain.ActivityRenewalCreated,
			fmt.Sprintf("Created renewal for %s - %s",
				s.clientNameTx(ctx, tx, userID, r.ClientID), s.serviceNameTx(ctx, tx, userID, r.ServiceID)),
			map[string]any{"renewalId": r.ID, "clientId": r.ClientID, "serviceId": r.ServiceID, "amount": r.Amount})
	})
	if err != nil {
		return nil, err
	}
	return renewal, nil
}

func (s *PostgresStore) UpdateRenewal(ctx context.Context, userID, id int64, patch domain.RenewalPatch) (*domain.Renewal, error) {
	set := newSetClause()
	set.add("client_id", patch.ClientID)
	set.add("service_id", patch.ServiceID)
	set.add("start_date", patch.StartDate)
	set.add("end_date", patch.EndDate)
	set.add("amount", patch.Amount)
	set.add("is_paid", patch.IsPaid)
	set.addNullable("notes", patch.Notes)
	if set.empty() {
		return s.GetRenewal(ctx, userID, id)
	}

	var renewal *domain.Renewal
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the row so the paid-transition check and the update are one
		// atomic step.
		query := fmt.Sprintf("SELECT %s FROM renewals WHERE id = $1 AND user_id = $2 FOR UPDATE", renewalColumns)
		original, err := scanRenewal(tx.QueryRow(ctx, query, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRenewalNotFound
			}
			return err
		}

		query = fmt.Sprintf("UPDATE renewals SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
			set.clause(), set.next(), set.next()+1, renewalColumns)
		updated, err := scanRenewal(tx.QueryRow(ctx, query, append(set.args, id, userID)...))
		if err != nil {
			return err
		}
		renewal = updated

		if !original.IsPaid && updated.IsPaid {
			return s.insertActivity(ctx, tx, userID, domain.ActivityPaymentReceived,
				fmt.Sprintf("Payment of %.2f received from %s for %s", updated.Amount,
					s.clientNameTx(ctx, tx, userID, updated.ClientID), s.serviceNameTx(ctx, tx, userID, updated.ServiceID)),
				map[string]any{"renewalId": id, "clientId": updated.ClientID, "serviceId": updated.ServiceID, "amount": updated.Amount})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renewal, nil
}

func (s *PostgresStore) SetRenewalNotificationStatus(ctx context.Context, userID, id int64, sent bool) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf("UPDATE renewals SET notification_sent = $1 WHERE id = $2 AND user_id = $3 RETURNING %s", renewalColumns)
		r, err := scanRenewal(tx.QueryRow(ctx, query, sent, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRenewalNotFound
			}
			return err
		}
		if !sent {
			return nil
		}
		return s.insertActivity(ctx, tx, userID, domain.ActivityRenewalReminder,
			fmt.Sprintf("Sent reminder to %s about %s due on %s",
				s.clientNameTx(ctx, tx, userID, r.ClientID), s.serviceNameTx(ctx, tx, userID, r.ServiceID),
				r.EndDate.Format("Jan 2, 2006")),
			map[string]any{"renewalId": id, "clientId": r.ClientID, "serviceId": r.ServiceID})
	})
}

func (s *PostgresStore) DeleteRenewal(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		query := fmt.Sprintf("DELETE FROM renewals WHERE id = $1 AND user_id = $2 RETURNING %s", renewalColumns)
		r, err := scanRenewal(tx.QueryRow(ctx, query, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRenewalNotFound
			}
			return err
		}
		return s.insertActivity(ctx, tx, userID, domain.ActivityRenewalDeleted,
			fmt.Sprintf("Deleted renewal for %s - %s",
				s.clientNameTx(ctx, tx, userID, r.ClientID), s.serviceNameTx(ctx, tx, userID, r.ServiceID)),
			map[string]any{"renewalId": id, "clientId": r.ClientID, "serviceId": r.ServiceID, "amount": r.Amount})
	})
}

// Activity operations

const activityColumns = "id, type, description, metadata, created_at"

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.Type, &a.Description, &a.Metadata, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE user_id = $1 ORDER BY created_at DESC, id DESC", activityColumns)
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetActivity(ctx context.Context, userID, id int64) (*domain.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1 AND user_id = $2", activityColumns)
	a, err := scanActivity(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) CreateActivity(ctx context.Context, userID int64, input domain.ActivityInput) (*domain.Activity, error) {
	query := fmt.Sprintf(`
		INSERT INTO activities (user_id, type, description, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, activityColumns)
	a, err := scanActivity(s.db.QueryRow(ctx, query, userID, input.Type, input.Description, input.Metadata))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// helpers

// withTx runs fn inside a transaction, rolling back on error.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) insertActivity(ctx context.Context, tx pgx.Tx, userID int64, activityType, description string, metadata map[string]any) error {
	var meta *string
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			m := string(b)
			meta = &m
		}
	}
	_, err := tx.Exec(ctx,
		"INSERT INTO activities (user_id, type, description, metadata) VALUES ($1, $2, $3, $4)",
		userID, activityType, description, meta)
	return err
}

func (s *PostgresStore) clientNameTx(ctx context.Context, tx pgx.Tx, userID, id int64) string {
	var name string
	err := tx.QueryRow(ctx, "SELECT name FROM clients WHERE id = $1 AND user_id = $2", id, userID).Scan(&name)
	if err != nil {
		return fmt.Sprintf("client #%d", id)
	}
	return name
}

func (s *PostgresStore) serviceNameTx(ctx context.Context, tx pgx.Tx, userID, id int64) string {
	var name string
	err := tx.QueryRow(ctx, "SELECT name FROM services WHERE id = $1 AND user_id = $2", id, userID).Scan(&name)
	if err != nil {
		return fmt.Sprintf("service #%d", id)
	}
	return name
}

// setClause accumulates "col = $n" fragments and their arguments for dynamic
// partial UPDATE statements.
type setClause struct {
	fragments []string
	args      []any
}

func newSetClause() *setClause {
	return &setClause{}
}

// add appends the column when the patch pointer is non-nil.
func (c *setClause) add(column string, value any) {
	switch v := value.(type) {
	case *string:
		if v != nil {
			c.append(column, *v)
		}
	case *int:
		if v != nil {
			c.append(column, *v)
		}
	case *int64:
		if v != nil {
			c.append(column, *v)
		}
	case *float64:
		if v != nil {
			c.append(column, *v)
		}
	case *bool:
		if v != nil {
			c.append(column, *v)
		}
	case *time.Time:
		if v != nil {
			c.append(column, *v)
		}
	}
}

// addNullable is add for nullable text columns: a supplied empty string clears
// the column to NULL.
func (c *setClause) addNullable(column string, value *string) {
	if value == nil {
		return
	}
	if *value == "" {
		c.append(column, nil)
		return
	}
	c.append(column, *value)
}

func (c *setClause) append(column string, arg any) {
	c.args = append(c.args, arg)
	c.fragments = append(c.fragments, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

func (c *setClause) empty() bool {
	return len(c.fragments) == 0
}

func (c *setClause) clause() string {
	return strings.Join(c.fragments, ", ")
}

// next returns the positional index for the argument after the SET values.
func (c *setClause) next() int {
	return len(c.args) + 1
}
