package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/repository"
)

const accountsTable = "users.accounts"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements port.AccountRepository backed by PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the
// supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var accountColumns = []string{
	"id",
	"email",
	"username",
	"first_name",
	"last_name",
	"password_hash",
	"status",
	"email_verified",
	"verification_token",
	"verification_expires_at",
	"reset_token_hash",
	"reset_expires_at",
	"failed_attempts",
	"locked_until",
	"two_factor_enabled",
	"bio",
	"avatar_url",
	"phone",
	"location",
	"preferences",
	"learning",
	"created_at",
	"updated_at",
	"last_login_at",
	"last_active_at",
	"deleted_at",
}

// Create inserts a new account row. Unique violations on email or username
// surface as the corresponding duplicate sentinel.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var locationJSON any
	if account.Location != nil {
		encoded, err := json.Marshal(account.Location)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		locationJSON = encoded
	}
	preferencesJSON, err := json.Marshal(account.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	learningJSON, err := json.Marshal(account.Learning)
	if err != nil {
		return fmt.Errorf("marshal learning profile: %w", err)
	}

	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.Username,
			account.FirstName,
			account.LastName,
			account.PasswordHash,
			account.Status,
			account.EmailVerified,
			account.VerificationToken,
			account.VerificationExpiresAt,
			account.ResetTokenHash,
			account.ResetExpiresAt,
			account.FailedAttempts,
			account.LockedUntil,
			account.TwoFactorEnabled,
			account.Bio,
			account.AvatarURL,
			account.Phone,
			locationJSON,
			preferencesJSON,
			learningJSON,
			account.CreatedAt,
			account.UpdatedAt,
			account.LastLoginAt,
			account.LastActiveAt,
			account.DeletedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapUniqueViolation(err, "insert account")
	}

	return nil
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return repository.ErrDuplicateEmail
		case strings.Contains(pgErr.ConstraintName, "username"):
			return repository.ErrDuplicateUsername
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetByID retrieves an account by identifier, including soft-deleted rows.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByIdentifier resolves an account by email or username, skipping
// soft-deleted rows. Email comparison is case-insensitive by virtue of
// storing addresses lower-cased.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Or{
			squirrel.Eq{"email": strings.ToLower(identifier)},
			squirrel.Eq{"username": identifier},
		}).
		Where("deleted_at IS NULL").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by identifier sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

// FindDuplicate returns the first account matching either value so callers
// can report which field collides.
func (r *AccountRepository) FindDuplicate(ctx context.Context, email, username string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Or{
			squirrel.Eq{"email": strings.ToLower(email)},
			squirrel.Eq{"username": username},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select duplicate account sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

// FindByVerificationToken locates the account holding the raw verification token.
func (r *AccountRepository) FindByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"verification_token": token}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by verification token sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

// FindByResetTokenHash locates the account holding the hashed reset token.
func (r *AccountRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by reset token sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

// SetVerificationToken stores a fresh verification token, replacing any
// previous value.
func (r *AccountRepository) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("verification_token", token).
		Set("verification_expires_at", expiresAt).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verification token sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "set verification token")
}

// MarkEmailVerified flips the verified flag, clears the token, and promotes
// pending accounts to active.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("email_verified", true).
		Set("verification_token", nil).
		Set("verification_expires_at", nil).
		Set("status", squirrel.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(domain.AccountStatusPending), string(domain.AccountStatusActive))).
		Set("updated_at", verifiedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark email verified sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "mark email verified")
}

// SetResetToken stores a hashed reset token, invalidating any earlier one.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("reset_token_hash", tokenHash).
		Set("reset_expires_at", expiresAt).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "set reset token")
}

// ResetPassword stores the new hash and clears the reset token fields in one
// statement so a consumed token cannot be replayed.
func (r *AccountRepository) ResetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", passwordHash).
		Set("reset_token_hash", nil).
		Set("reset_expires_at", nil).
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset password sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "reset password")
}

// UpdatePassword replaces the stored hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "update password")
}

// IncrementFailedAttempts bumps the counter atomically and returns the new
// value, so concurrent failures each observe a distinct count.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("failed_attempts", squirrel.Expr("failed_attempts + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING failed_attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment failed attempts sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}

	return attempts, nil
}

// RestartFailedAttempts resets the counter to 1 and clears an expired lock,
// used when a failure lands after the lockout window lapsed.
func (r *AccountRepository) RestartFailedAttempts(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("failed_attempts", 1).
		Set("locked_until", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build restart failed attempts sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "restart failed attempts")
}

// ResetLockout clears the failure counter and any lock.
func (r *AccountRepository) ResetLockout(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset lockout sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "reset lockout")
}

// Lock sets the lockout deadline.
func (r *AccountRepository) Lock(ctx context.Context, id string, until time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("locked_until", until).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock account sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "lock account")
}

// RecordLogin stamps the login and activity timestamps.
func (r *AccountRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("last_login_at", at).
		Set("last_active_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "record login")
}

// UpdateProfile applies the allow-listed field updates. Nil pointers leave
// columns untouched.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, update port.ProfileUpdate, at time.Time) error {
	query := r.builder.Update(accountsTable).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id})

	if update.FirstName != nil {
		query = query.Set("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		query = query.Set("last_name", *update.LastName)
	}
	if update.Bio != nil {
		query = query.Set("bio", *update.Bio)
	}
	if update.AvatarURL != nil {
		query = query.Set("avatar_url", *update.AvatarURL)
	}
	if update.Phone != nil {
		query = query.Set("phone", *update.Phone)
	}
	if update.Location != nil {
		locationJSON, err := json.Marshal(update.Location)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		query = query.Set("location", locationJSON)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "update profile")
}

// UpdatePreferences replaces the preferences document.
func (r *AccountRepository) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences, at time.Time) error {
	preferencesJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	stmt, args, err := r.builder.Update(accountsTable).
		Set("preferences", preferencesJSON).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update preferences sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "update preferences")
}

// UpdateLearningProfile replaces the learning profile document.
func (r *AccountRepository) UpdateLearningProfile(ctx context.Context, id string, learning domain.LearningProfile, at time.Time) error {
	learningJSON, err := json.Marshal(learning)
	if err != nil {
		return fmt.Errorf("marshal learning profile: %w", err)
	}

	stmt, args, err := r.builder.Update(accountsTable).
		Set("learning", learningJSON).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update learning profile sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "update learning profile")
}

// TouchLastActive stamps the activity timestamp without touching updated_at.
func (r *AccountRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("last_active_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch last active sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "touch last active")
}

func applyListFilter(query squirrel.SelectBuilder, filter port.ListFilter) squirrel.SelectBuilder {
	query = query.Where("deleted_at IS NULL")

	if filter.Status != nil {
		query = query.Where(squirrel.Eq{"status": *filter.Status})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"username": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
		})
	}

	return query
}

// List returns accounts with optional filtering and pagination.
func (r *AccountRepository) List(ctx context.Context, filter port.ListFilter) ([]domain.Account, error) {
	query := applyListFilter(
		r.builder.Select(accountColumns...).From(accountsTable).OrderBy("created_at DESC"),
		filter,
	)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the total number of accounts matching the filter.
func (r *AccountRepository) Count(ctx context.Context, filter port.ListFilter) (int, error) {
	query := applyListFilter(r.builder.Select("COUNT(*)").From(accountsTable), filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan accounts count: %w", err)
	}

	return int(count), nil
}

// SoftDelete marks an account as inactive and stamps deleted_at. Already
// deleted rows report ErrNotFound.
func (r *AccountRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("status", domain.AccountStatusInactive).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete account sql: %w", err)
	}

	return r.execExpectingRow(ctx, stmt, args, "soft delete account")
}

func (r *AccountRepository) execExpectingRow(ctx context.Context, stmt string, args []any, op string) error {
	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepository) scanRow(row rowScanner) (*domain.Account, error) {
	var (
		account         domain.Account
		bio             sql.NullString
		locationJSON    []byte
		preferencesJSON []byte
		learningJSON    []byte
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&account.Status,
		&account.EmailVerified,
		&account.VerificationToken,
		&account.VerificationExpiresAt,
		&account.ResetTokenHash,
		&account.ResetExpiresAt,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.TwoFactorEnabled,
		&bio,
		&account.AvatarURL,
		&account.Phone,
		&locationJSON,
		&preferencesJSON,
		&learningJSON,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.LastLoginAt,
		&account.LastActiveAt,
		&account.DeletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if bio.Valid {
		account.Bio = bio.String
	}

	if len(locationJSON) > 0 {
		var location domain.Location
		if err := json.Unmarshal(locationJSON, &location); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}
		account.Location = &location
	}

	account.Preferences = domain.DefaultPreferences()
	if len(preferencesJSON) > 0 {
		if err := json.Unmarshal(preferencesJSON, &account.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal preferences: %w", err)
		}
	}

	account.Learning = domain.DefaultLearningProfile()
	if len(learningJSON) > 0 {
		if err := json.Unmarshal(learningJSON, &account.Learning); err != nil {
			return nil, fmt.Errorf("unmarshal learning profile: %w", err)
		}
	}

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
