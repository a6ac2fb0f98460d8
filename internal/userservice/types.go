package userservice

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

const (
	SessionTokenTime time.Duration = 7 * 24 * time.Hour
	OTPCodeTime      time.Duration = 10 * time.Minute
	OTPCodeLength    int           = 6
	OTPMaxAttempts   int           = 5
)

var (
	AnonymousUser = &User{}
)

type UserService struct {
	m     *DBModel
	mb    common.MessageProducer
	oauth *OAuthProvider
}

type DBModel struct {
	db *sqlx.DB
}

// User is an identity joined with its profile row.
type User struct {
	ID        uuid.UUID   `db:"id"`
	Email     string      `db:"email"`
	Username  *string     `db:"username"`
	Role      common.Role `db:"role"`
	AvatarURL *string     `db:"avatar_url"`
	CreatedAt time.Time   `db:"created_at"`
	Password  Password    `db:"-"`
}

// Profile is the public view of a user.
type Profile struct {
	ID             uuid.UUID `db:"id"`
	Username       *string   `db:"username"`
	AvatarURL      *string   `db:"avatar_url"`
	CreatedAt      time.Time `db:"created_at"`
	FollowerCount  int       `db:"follower_count"`
	FollowingCount int       `db:"following_count"`
}

type Password struct {
	Plain string
	hash  []byte
}

type Session struct {
	Plain  string
	Hash   []byte
	UserID uuid.UUID
	Expiry time.Time
}

type otpCode struct {
	Email    string    `db:"email"`
	Hash     []byte    `db:"hash"`
	Expiry   time.Time `db:"expiry"`
	Attempts int       `db:"attempts"`
}
