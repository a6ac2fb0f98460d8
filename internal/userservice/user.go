package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminOnly          = errors.New("access denied, admins only")
)

func newUserModel(db *sqlx.DB) *DBModel {
	return &DBModel{db: db}
}

const userColumns = `u.id, u.email, u.password, u.created_at, p.username, p.role, p.avatar_url`

func scanUser(row *sqlx.Row) (*User, error) {
	var u User

	err := row.Scan(&u.ID, &u.Email, &u.Password.hash, &u.CreatedAt, &u.Username, &u.Role, &u.AvatarURL)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

// insertUser creates the identity and its profile row. Run it inside a transaction.
func (m *DBModel) insertUser(ctx context.Context, q sqlx.ExtContext, u *User) error {
	var hash any
	if len(u.Password.hash) > 0 {
		hash = u.Password.hash
	}

	query := `
		INSERT INTO users (email, password)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query, u.Email, hash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		switch {
		case common.IsUniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		default:
			return err
		}
	}

	query = `
		INSERT INTO profiles (id)
		VALUES ($1)
		RETURNING role`

	return q.QueryRowxContext(ctx, query, u.ID).Scan(&u.Role)
}

func (m *DBModel) getUserByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		INNER JOIN profiles p ON p.id = u.id
		WHERE lower(u.email) = lower($1)`

	return scanUser(q.QueryRowxContext(ctx, query, email))
}

func (m *DBModel) getUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		INNER JOIN profiles p ON p.id = u.id
		WHERE u.id = $1`

	return scanUser(m.db.QueryRowxContext(ctx, query, id))
}

func (m *DBModel) getProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT p.id, p.username, p.avatar_url, p.created_at,
			(SELECT COUNT(*) FROM follows WHERE following_id = p.id) AS follower_count,
			(SELECT COUNT(*) FROM follows WHERE follower_id = p.id) AS following_count
		FROM profiles p
		WHERE p.id = $1`

	var p Profile

	err := m.db.GetContext(ctx, &p, query, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &p, nil
}

// updateUsername only ever touches the caller's own profile row.
func (m *DBModel) updateUsername(ctx context.Context, callerID uuid.UUID, username string) error {
	query := `
		UPDATE profiles
		SET username = $1, updated_at = NOW()
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, username, callerID)
	if err != nil {
		switch {
		case common.IsUniqueViolation(err, "profiles_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	return expectOneRow(res)
}

func (m *DBModel) updateAvatarURL(ctx context.Context, callerID uuid.UUID, url string) error {
	query := `
		UPDATE profiles
		SET avatar_url = $1, updated_at = NOW()
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, url, callerID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return errors.New("too many rows affected")
		}
	}

	return nil
}

func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

func (u *User) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// DisplayName is the username, or the email when no username has been chosen yet.
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Email
}
