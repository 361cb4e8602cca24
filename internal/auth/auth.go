package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = apperrors.Unauthorized("Invalid email or password.")

// Auth handles authentication operations
type Auth struct {
	db     database.DBTX
	policy SessionPolicy
	now    func() time.Time
}

// NewAuth creates a new Auth instance
func NewAuth(db database.DBTX, policy SessionPolicy) *Auth {
	return &Auth{db: db, policy: policy, now: time.Now}
}

// RegisterInput is a sign-up form.
type RegisterInput struct {
	Name            string `form:"name" validate:"required,min=2,max=255"`
	Email           string `form:"email" validate:"required,email,max=255"`
	Password        string `form:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" validate:"eqfield=Password"`
}

// ProfileInput edits the current user; the password part is optional.
type ProfileInput struct {
	Name            string `form:"name" validate:"required,min=2,max=255"`
	Email           string `form:"email" validate:"required,email,max=255"`
	CurrentPassword string `form:"current_password"`
	NewPassword     string `form:"new_password" validate:"omitempty,min=8"`
	PasswordConfirm string `form:"password_confirm" validate:"eqfield=NewPassword"`
}

const userColumns = "id, email, password_hash, name, roles, created_at, updated_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the form and creates a ROLE_USER account.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return a.RegisterUser(ctx, in.Email, in.Password, in.Name, models.RoleUser)
}

// RegisterUser creates a new user account with the given roles.
func (a *Auth) RegisterUser(ctx context.Context, email, password, name string, roles ...string) (*models.User, error) {
	email = normalizeEmail(email)
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := scanUser(a.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, name, roles) VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, passwordHash, name, roles,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.FieldErrors{"email": "An account already uses this email."}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (a *Auth) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(a.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (a *Auth) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(a.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", normalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and opens a session. The returned token is
// the cookie value; only its hash is stored.
func (a *Auth) Login(ctx context.Context, email, password string, remember bool) (*models.User, string, error) {
	user, err := a.GetUserByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}
	_, err = a.db.Exec(ctx,
		"INSERT INTO sessions (user_id, token_hash, persistent, expires_at) VALUES ($1, $2, $3, $4)",
		user.ID, HashToken(token), remember, a.policy.Expiry(a.now(), remember),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}
	return user, token, nil
}

// ValidateSession validates a session token and returns the user
func (a *Auth) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("invalid session")
	}
	user, err := scanUser(a.db.QueryRow(ctx,
		`SELECT u.id, u.email, u.password_hash, u.name, u.roles, u.created_at, u.updated_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token_hash = $1 AND s.expires_at > $2`,
		HashToken(token), a.now(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Unauthorized("invalid session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	return user, nil
}

// Logout deletes a session
func (a *Auth) Logout(ctx context.Context, token string) error {
	if _, err := a.db.Exec(ctx, "DELETE FROM sessions WHERE token_hash = $1", HashToken(token)); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions
func (a *Auth) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := a.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= $1", a.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateProfile changes name and email, and the password when a new one is
// given together with the current one.
func (a *Auth) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	fields := apperrors.FieldErrors{}
	if err := validation.Struct(in); err != nil {
		var fe apperrors.FieldErrors
		if !errors.As(err, &fe) {
			return nil, err
		}
		fields = fe
	}
	if in.NewPassword != "" && !CheckPassword(in.CurrentPassword, user.PasswordHash) {
		fields.Add("current_password", "Current password is incorrect.")
	}
	if err := fields.OrNil(); err != nil {
		return nil, err
	}

	passwordHash := user.PasswordHash
	if in.NewPassword != "" {
		h, err := HashPassword(in.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = h
	}

	updated, err := scanUser(a.db.QueryRow(ctx,
		`UPDATE users SET name = $1, email = $2, password_hash = $3, updated_at = NOW()
		 WHERE id = $4 RETURNING `+userColumns,
		in.Name, in.Email, passwordHash, user.ID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.FieldErrors{"email": "An account already uses this email."}
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// SetRoles replaces the roles of a user.
func (a *Auth) SetRoles(ctx context.Context, userID int64, roles []string) error {
	tag, err := a.db.Exec(ctx, "UPDATE users SET roles = $1, updated_at = NOW() WHERE id = $2", roles, userID)
	if err != nil {
		return fmt.Errorf("failed to update roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
