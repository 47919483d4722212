// Package dbprovision creates and destroys the isolated database and role each
// tenant gets on the shared database server.
package dbprovision

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// Credentials is everything a tenant container needs to reach its database.
// The password is handed to the caller exactly once per provisioning and is
// never persisted or logged by the engine.
type Credentials struct {
	Host     string
	Port     string
	Database string
	Role     string
	Password string
}

// DSN builds the tenant connection string injected into the descriptor environment.
func (c Credentials) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.Role, c.Password, c.Host, c.Port, c.Database)
}

// Provisioner manages per-tenant database isolation.
type Provisioner interface {
	Provision(ctx context.Context, tenantName string) (Credentials, error)
	Deprovision(ctx context.Context, tenantName string) error
	RotatePassword(ctx context.Context, tenantName string) (string, error)
}

// PostgresProvisioner provisions against the shared Postgres server through an
// administrative pool. It does no locking of its own; the workflow serializes
// calls per tenant.
type PostgresProvisioner struct {
	admin     *pgxpool.Pool
	auditPool *pgxpool.Pool
	host      string
	port      string
	logger    *zap.Logger
}

// NewPostgresProvisioner builds a provisioner over the admin pool. The audit
// pool points at the registry database, where the provision_audit table lives;
// it may be nil when auditing is not wanted.
func NewPostgresProvisioner(admin, auditPool *pgxpool.Pool, host, port string, logger *zap.Logger) *PostgresProvisioner {
	return &PostgresProvisioner{admin: admin, auditPool: auditPool, host: host, port: port, logger: logger}
}

// Provision creates the tenant's database and role. Re-provisioning an
// already-owned database succeeds with a freshly rotated password; a database
// owned by anyone else is a conflict.
func (p *PostgresProvisioner) Provision(ctx context.Context, tenantName string) (Credentials, error) {
	dbName := domain.DatabaseName(tenantName)
	roleName := domain.RoleName(tenantName)

	password, err := generatePassword()
	if err != nil {
		return Credentials{}, apperrors.NewCredentialError("generate password", err)
	}

	owner, err := p.databaseOwner(ctx, dbName)
	if err != nil {
		return Credentials{}, apperrors.NewCredentialError("inspect shared database server", err)
	}

	switch {
	case owner == "":
		if err := p.ensureRole(ctx, roleName, password); err != nil {
			return Credentials{}, err
		}
		createDB := fmt.Sprintf(`CREATE DATABASE %s OWNER %s`,
			pgx.Identifier{dbName}.Sanitize(), pgx.Identifier{roleName}.Sanitize())
		if _, err := p.admin.Exec(ctx, createDB); err != nil {
			return Credentials{}, apperrors.NewCredentialError(fmt.Sprintf("create database for tenant %q", tenantName), err)
		}
		p.audit(ctx, tenantName, "provision", "database and role created")
		p.logger.Info("tenant database provisioned",
			zap.String("tenant", tenantName), zap.String("database", dbName))

	case owner == roleName:
		// Idempotent re-provision. The old password is unknowable, so rotate.
		if err := p.alterPassword(ctx, roleName, password); err != nil {
			return Credentials{}, err
		}
		p.audit(ctx, tenantName, "rotate", "existing database reused, password rotated")
		p.logger.Info("tenant database already provisioned",
			zap.String("tenant", tenantName), zap.String("database", dbName))

	default:
		return Credentials{}, apperrors.NewConflict(
			fmt.Sprintf("database %q exists with conflicting owner", dbName),
			map[string]any{"tenant": tenantName, "owner": owner},
		)
	}

	return Credentials{
		Host:     p.host,
		Port:     p.port,
		Database: dbName,
		Role:     roleName,
		Password: password,
	}, nil
}

// Deprovision drops the tenant's database and role. Absence is success; a drop
// that fails on an existing object is fatal and needs operator attention.
func (p *PostgresProvisioner) Deprovision(ctx context.Context, tenantName string) error {
	dbName := domain.DatabaseName(tenantName)
	roleName := domain.RoleName(tenantName)

	exists, err := p.databaseExists(ctx, dbName)
	if err != nil {
		return apperrors.NewCredentialError("inspect shared database server", err)
	}
	if exists {
		// The database cannot be dropped while sessions hold it open.
		_, _ = p.admin.Exec(ctx,
			`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
			dbName)
		dropDB := fmt.Sprintf(`DROP DATABASE %s`, pgx.Identifier{dbName}.Sanitize())
		if _, err := p.admin.Exec(ctx, dropDB); err != nil {
			return apperrors.NewFatal(fmt.Sprintf("drop database %q", dbName), err)
		}
	}

	dropRole := fmt.Sprintf(`DROP ROLE IF EXISTS %s`, pgx.Identifier{roleName}.Sanitize())
	if _, err := p.admin.Exec(ctx, dropRole); err != nil {
		return apperrors.NewFatal(fmt.Sprintf("drop role %q", roleName), err)
	}

	p.audit(ctx, tenantName, "deprovision", "database and role dropped")
	p.logger.Info("tenant database deprovisioned",
		zap.String("tenant", tenantName), zap.String("database", dbName))
	return nil
}

// RotatePassword issues a new password for the tenant role.
func (p *PostgresProvisioner) RotatePassword(ctx context.Context, tenantName string) (string, error) {
	roleName := domain.RoleName(tenantName)

	var exists bool
	err := p.admin.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, roleName).Scan(&exists)
	if err != nil {
		return "", apperrors.NewCredentialError("inspect shared database server", err)
	}
	if !exists {
		return "", apperrors.NewNotFound("tenant role", map[string]any{"tenant": tenantName})
	}

	password, err := generatePassword()
	if err != nil {
		return "", apperrors.NewCredentialError("generate password", err)
	}
	if err := p.alterPassword(ctx, roleName, password); err != nil {
		return "", err
	}
	p.audit(ctx, tenantName, "rotate", "password rotated on request")
	return password, nil
}

func (p *PostgresProvisioner) databaseOwner(ctx context.Context, dbName string) (string, error) {
	var owner string
	err := p.admin.QueryRow(ctx,
		`SELECT r.rolname FROM pg_database d JOIN pg_roles r ON d.datdba = r.oid WHERE d.datname = $1`,
		dbName).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}

func (p *PostgresProvisioner) databaseExists(ctx context.Context, dbName string) (bool, error) {
	var exists bool
	err := p.admin.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName).Scan(&exists)
	return exists, err
}

func (p *PostgresProvisioner) ensureRole(ctx context.Context, roleName, password string) error {
	var exists bool
	err := p.admin.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, roleName).Scan(&exists)
	if err != nil {
		return apperrors.NewCredentialError("inspect shared database server", err)
	}
	if exists {
		return p.alterPassword(ctx, roleName, password)
	}
	// CREATE ROLE does not accept bind parameters; the identifier derives from
	// a validated tenant name and the password alphabet excludes quotes.
	stmt := fmt.Sprintf(`CREATE ROLE %s WITH LOGIN PASSWORD '%s'`, pgx.Identifier{roleName}.Sanitize(), password)
	if _, err := p.admin.Exec(ctx, stmt); err != nil {
		return apperrors.NewCredentialError(fmt.Sprintf("create role %q", roleName), err)
	}
	return nil
}

func (p *PostgresProvisioner) alterPassword(ctx context.Context, roleName, password string) error {
	stmt := fmt.Sprintf(`ALTER ROLE %s WITH PASSWORD '%s'`, pgx.Identifier{roleName}.Sanitize(), password)
	if _, err := p.admin.Exec(ctx, stmt); err != nil {
		return apperrors.NewCredentialError(fmt.Sprintf("set password for role %q", roleName), err)
	}
	return nil
}

// audit records the action in the provision audit trail. Audit failures are
// logged, not surfaced; the audit table lives in the registry database and its
// unavailability must not block teardown.
func (p *PostgresProvisioner) audit(ctx context.Context, tenantName, action, detail string) {
	if p.auditPool == nil {
		return
	}
	_, err := p.auditPool.Exec(ctx,
		`INSERT INTO provision_audit (id, tenant_name, action, detail) VALUES ($1,$2,$3,$4)`,
		uuid.NewString(), tenantName, action, detail)
	if err != nil {
		p.logger.Warn("audit write failed", zap.String("tenant", tenantName), zap.Error(err))
	}
}
