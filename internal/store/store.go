// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repometer/internal/errs"
	"repometer/internal/model"
)

// Store is the persistence layer over the four legacy tables. All integrity
// rules (credential selection, observation uniqueness) live here and in the
// syncer; the schema itself declares no keys.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on top of an established connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// --- Customers ---

func (s *Store) AddCustomer(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO "Customer_Data" (customer) VALUES ($1)`, name)
	if err != nil {
		return fmt.Errorf("adding customer %q: %w", name, err)
	}
	return nil
}

// RemoveCustomer deletes the customer row only. Accounts, repositories and
// observations registered under the customer are left in place; removal does
// not cascade.
func (s *Store) RemoveCustomer(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM "Customer_Data" WHERE customer = $1`, name)
	if err != nil {
		return fmt.Errorf("removing customer %q: %w", name, err)
	}
	return nil
}

func (s *Store) CustomerExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM "Customer_Data" WHERE customer = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking customer %q: %w", name, err)
	}
	return exists, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT customer FROM "Customer_Data" ORDER BY customer`)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.Name); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// --- Accounts / credentials ---

func (s *Store) AddAccount(ctx context.Context, a model.Account, token string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO "Account_Data" (customer, url, username, token) VALUES ($1, $2, $3, $4)`,
		a.Customer, a.URL, a.Username, token)
	if err != nil {
		return fmt.Errorf("adding account %s@%s: %w", a.Username, a.URL, err)
	}
	return nil
}

func (s *Store) RemoveAccount(ctx context.Context, a model.Account) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM "Account_Data" WHERE customer = $1 AND url = $2 AND username = $3`,
		a.Customer, a.URL, a.Username)
	if err != nil {
		return fmt.Errorf("removing account %s@%s: %w", a.Username, a.URL, err)
	}
	return nil
}

// ListAccounts returns every credential scope known to the registry, without
// the tokens themselves.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT customer, url, username FROM "Account_Data" ORDER BY customer, url, username`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.Customer, &a.URL, &a.Username); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ResolveToken maps an exact (customer, url, username) triple to an access
// token. The schema allows duplicate credential rows; when they exist the
// most recently inserted one wins. Token rows are append-only, so physical
// row order tracks insertion order.
func (s *Store) ResolveToken(ctx context.Context, customer, url, username string) (string, error) {
	if customer == "" || url == "" || username == "" {
		return "", errs.Errorf(errs.KindCredentialNotFound,
			"credential lookup requires customer, url and username")
	}

	var token string
	err := s.pool.QueryRow(ctx,
		`SELECT token FROM "Account_Data"
		 WHERE customer = $1 AND url = $2 AND username = $3
		 ORDER BY ctid DESC LIMIT 1`,
		customer, url, username).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.Errorf(errs.KindCredentialNotFound,
			"no credential for %s@%s owned by %s", username, url, customer)
	}
	if err != nil {
		return "", fmt.Errorf("resolving token for %s@%s: %w", username, url, err)
	}
	return token, nil
}

// --- Repository registry ---

func (s *Store) AddRegistration(ctx context.Context, r model.Registration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO "Repository_Data" (url, username, owner, repository) VALUES ($1, $2, $3, $4)`,
		r.URL, r.Username, r.Owner, r.Repository)
	if err != nil {
		return fmt.Errorf("adding repository %s: %w", r.Key(), err)
	}
	return nil
}

func (s *Store) RemoveRegistration(ctx context.Context, r model.Registration) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM "Repository_Data"
		 WHERE url = $1 AND username = $2 AND owner = $3 AND repository = $4`,
		r.URL, r.Username, r.Owner, r.Repository)
	if err != nil {
		return fmt.Errorf("removing repository %s: %w", r.Key(), err)
	}
	return nil
}

// ListRegistrations returns the full repository registry, one row per
// (url, username, owner, repository) tuple.
func (s *Store) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, username, owner, repository FROM "Repository_Data"
		 ORDER BY url, owner, repository, username`)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var r model.Registration
		if err := rows.Scan(&r.URL, &r.Username, &r.Owner, &r.Repository); err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// --- Traffic observations ---

// ExistingObservationKeys returns the (date, tag) identity keys already
// persisted for the repository within [from, to]. The caller bounds the range
// to the incoming batch, so the lookback stays small regardless of how much
// history the table holds. Username is deliberately not part of the key: an
// observation belongs to the physical repository, however many registrations
// point at it.
func (s *Store) ExistingObservationKeys(ctx context.Context, key model.RepoKey, from, to time.Time) (map[model.ObservationKey]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT "timestamp", tag FROM "Traffic_Data"
		 WHERE url = $1 AND owner = $2 AND repository = $3
		   AND "timestamp" BETWEEN $4 AND $5`,
		key.URL, key.Owner, key.Repository, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading existing observation keys for %s: %w", key, err)
	}
	defer rows.Close()

	existing := make(map[model.ObservationKey]struct{})
	for rows.Next() {
		var (
			date time.Time
			tag  string
		)
		if err := rows.Scan(&date, &tag); err != nil {
			return nil, err
		}
		existing[model.ObservationKey{Date: date.Format(model.DateLayout), Tag: tag}] = struct{}{}
	}
	return existing, rows.Err()
}

// InsertObservations writes one batch of observations, one row per
// (registration, observation) pair, inside a single transaction. All
// registrations must point at the same physical repository. A failure rolls
// back every tuple's rows together: the dedup gate keys on the physical
// repository, so a commit for one registration without the others would
// permanently starve the rest.
func (s *Store) InsertObservations(ctx context.Context, regs []model.Registration, obs []model.Observation) (int64, error) {
	if len(regs) == 0 || len(obs) == 0 {
		return 0, nil
	}
	key := regs[0].Key()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, errs.Errorf(errs.KindPersistence, "beginning batch for %s: %w", key, err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	batch := &pgx.Batch{}
	for _, reg := range regs {
		for _, o := range obs {
			batch.Queue(
				`INSERT INTO "Traffic_Data" (url, username, owner, repository, "timestamp", tag, value)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				reg.URL, reg.Username, reg.Owner, reg.Repository, o.Date, o.Tag, o.Value)
		}
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, errs.Errorf(errs.KindPersistence, "inserting batch for %s: %w", key, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, errs.Errorf(errs.KindPersistence, "closing batch for %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errs.Errorf(errs.KindPersistence, "committing batch for %s: %w", key, err)
	}
	return int64(len(regs) * len(obs)), nil
}

// ObservationsFor returns every persisted row for the physical repository,
// across all registrations, ordered by date then tag.
func (s *Store) ObservationsFor(ctx context.Context, key model.RepoKey) ([]model.TrafficRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, username, owner, repository, "timestamp", tag, value
		 FROM "Traffic_Data"
		 WHERE url = $1 AND owner = $2 AND repository = $3
		 ORDER BY "timestamp", tag, username`,
		key.URL, key.Owner, key.Repository)
	if err != nil {
		return nil, fmt.Errorf("loading observations for %s: %w", key, err)
	}
	defer rows.Close()
	return scanTrafficRows(rows)
}

// AllObservations returns the whole Traffic_Data table, ordered for stable
// export output.
func (s *Store) AllObservations(ctx context.Context) ([]model.TrafficRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, username, owner, repository, "timestamp", tag, value
		 FROM "Traffic_Data"
		 ORDER BY url, owner, repository, "timestamp", tag, username`)
	if err != nil {
		return nil, fmt.Errorf("loading all observations: %w", err)
	}
	defer rows.Close()
	return scanTrafficRows(rows)
}

func scanTrafficRows(rows pgx.Rows) ([]model.TrafficRow, error) {
	var out []model.TrafficRow
	for rows.Next() {
		var r model.TrafficRow
		if err := rows.Scan(&r.URL, &r.Username, &r.Owner, &r.Repository, &r.Date, &r.Tag, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TableCounts reports per-table row counts for the status command.
func (s *Store) TableCounts(ctx context.Context) (model.Counts, error) {
	var c model.Counts
	for _, q := range []struct {
		sql  string
		dest *int64
	}{
		{`SELECT count(*) FROM "Customer_Data"`, &c.Customers},
		{`SELECT count(*) FROM "Account_Data"`, &c.Accounts},
		{`SELECT count(*) FROM "Repository_Data"`, &c.Repositories},
		{`SELECT count(*) FROM "Traffic_Data"`, &c.Observations},
	} {
		if err := s.pool.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
			return model.Counts{}, fmt.Errorf("counting rows: %w", err)
		}
	}
	return c, nil
}
