package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// PostgresRegistry persists tenants in the platform's own database.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry instantiates the durable registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) Get(ctx context.Context, name string) (*domain.Tenant, error) {
	const query = `
        SELECT name, site_type, theme, status, db_name, db_role,
               admin_email, admin_password_hash, admin_issued_at,
               created_at, last_transition_at
        FROM tenants WHERE name=$1`
	tenant, err := scanTenant(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
		}
		return nil, err
	}
	return tenant, nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]domain.Tenant, error) {
	const query = `
        SELECT name, site_type, theme, status, db_name, db_role,
               admin_email, admin_password_hash, admin_issued_at,
               created_at, last_transition_at
        FROM tenants ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tenant)
	}
	return result, rows.Err()
}

func (r *PostgresRegistry) Put(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name, site_type, theme, status, db_name, db_role, created_at, last_transition_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
        RETURNING created_at, last_transition_at`
	err := r.pool.QueryRow(ctx, query,
		tenant.Name,
		tenant.SiteType,
		tenant.Theme,
		tenant.Status,
		tenant.DBRef.Database,
		tenant.DBRef.Role,
	).Scan(&tenant.CreatedAt, &tenant.LastTransitionAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflict("tenant name already exists", map[string]any{"tenant": tenant.Name})
		}
		return err
	}
	return nil
}

func (r *PostgresRegistry) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	return nil
}

func (r *PostgresRegistry) CompareAndSetStatus(ctx context.Context, name string, expected, next domain.TenantStatus) error {
	const query = `
        UPDATE tenants SET status=$1, last_transition_at=NOW()
        WHERE name=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, next, name, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing record from a status race.
	var current domain.TenantStatus
	err = r.pool.QueryRow(ctx, `SELECT status FROM tenants WHERE name=$1`, name).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	if err != nil {
		return err
	}
	return apperrors.NewConflict("tenant status changed concurrently", map[string]any{
		"tenant":   name,
		"expected": string(expected),
		"current":  string(current),
	})
}

func (r *PostgresRegistry) SetAdminCredential(ctx context.Context, name string, cred domain.AdminCredential) error {
	const query = `
        UPDATE tenants SET admin_email=$1, admin_password_hash=$2, admin_issued_at=$3
        WHERE name=$4`
	cmd, err := r.pool.Exec(ctx, query, cred.Email, cred.PasswordHash, cred.IssuedAt, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var (
		tenant     domain.Tenant
		adminEmail *string
		adminHash  *string
		adminAt    *time.Time
	)
	if err := row.Scan(
		&tenant.Name,
		&tenant.SiteType,
		&tenant.Theme,
		&tenant.Status,
		&tenant.DBRef.Database,
		&tenant.DBRef.Role,
		&adminEmail,
		&adminHash,
		&adminAt,
		&tenant.CreatedAt,
		&tenant.LastTransitionAt,
	); err != nil {
		return nil, err
	}
	if adminEmail != nil && adminHash != nil && adminAt != nil {
		tenant.Admin = &domain.AdminCredential{
			Email:        *adminEmail,
			PasswordHash: *adminHash,
			IssuedAt:     *adminAt,
		}
	}
	return &tenant, nil
}
