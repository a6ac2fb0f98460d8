package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
)

func NewUserService(db *sqlx.DB, mb common.MessageProducer, oauth *OAuthProvider) *UserService {
	return &UserService{
		m:     newUserModel(db),
		mb:    mb,
		oauth: oauth,
	}
}

// SignUp creates a password account and signs it in.
func (s *UserService) SignUp(ctx context.Context, email, password string) (*Session, *User, error) {
	// Perform validation
	v := common.NewValidator()
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	u := User{Email: strings.ToLower(email)}

	err := u.Password.set(password)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	err = s.m.insertUser(ctx, tx, &u)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.m.createSession(ctx, tx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return session, &u, nil
}

// Login signs in with email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, *User, error) {
	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, s.m.db, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, nil, ErrInvalidCredentials
		default:
			return nil, nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, nil, err
	}

	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.m.createSession(ctx, s.m.db, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// AdminLogin is Login restricted to admins. A non-admin is signed straight back out.
func (s *UserService) AdminLogin(ctx context.Context, email, password string) (*Session, *User, error) {
	session, user, err := s.Login(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsAdmin() {
		if err := s.m.deleteSession(ctx, session.Hash); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrAdminOnly
	}

	return session, user, nil
}

func (s *UserService) Logout(ctx context.Context, token string) error {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteSession(ctx, hashToken(token))
}

// GetUserBySession resolves a session cookie value to its user.
func (s *UserService) GetUserBySession(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getUserBySession(ctx, hashToken(token))
}

func (s *UserService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.m.deleteExpiredSessions(ctx)
}

// RequestOTP stores a fresh one-time code and publishes an auth.otp_requested event for the mailer.
func (s *UserService) RequestOTP(ctx context.Context, email string) error {
	v := common.NewValidator()
	validateEmail(v, email)
	if !v.Valid() {
		return v.ValidationError()
	}

	code, err := generateOTPCode()
	if err != nil {
		return err
	}

	err = s.m.upsertOTP(ctx, email, code)
	if err != nil {
		return err
	}

	msg, err := json.Marshal(common.OTPRequested{
		Email:     strings.ToLower(email),
		Code:      code,
		ExpiresIn: int(OTPCodeTime.Minutes()),
	})
	if err != nil {
		return err
	}

	return s.mb.Publish(ctx, msg, common.OTPRequestedKey, common.AuthExchange)
}

// VerifyOTP consumes a code and signs the email in, creating the account on first use. A code
// is discarded after OTPMaxAttempts wrong guesses.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (*Session, *User, error) {
	v := common.NewValidator()
	validateEmail(v, email)
	validateOTPCode(v, code)
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	otp, err := s.m.claimOTPAttempt(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, nil, ErrInvalidCredentials
		default:
			return nil, nil, err
		}
	}

	if !otp.matches(code) {
		if otp.exhausted() {
			if err := s.m.deleteOTP(ctx, s.m.db, email); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, ErrInvalidCredentials
	}

	tx, err := s.m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	err = s.m.deleteOTP(ctx, tx, email)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.findOrCreateUser(ctx, tx, email)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.m.createSession(ctx, tx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

func (s *UserService) OAuthEnabled() bool {
	return s.oauth != nil
}

func (s *UserService) OAuthURL(next, nonce string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.AuthCodeURL(next, nonce)
}

func (s *UserService) ParseOAuthState(state, nonce string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.ParseState(state, nonce)
}

// LoginWithOAuth exchanges an authorization code for a session. Identities with a verified
// email are linked to an existing account with the same email.
func (s *UserService) LoginWithOAuth(ctx context.Context, code string) (*Session, *User, error) {
	if s.oauth == nil {
		return nil, nil, ErrOAuthDisabled
	}

	v := common.NewValidator()
	v.Check(code != "", "code", "must be provided")
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	identity, err := s.oauth.exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	return s.loginWithIdentity(ctx, s.oauth.Name, identity)
}

func (s *UserService) loginWithIdentity(ctx context.Context, provider string, identity *oauthIdentity) (*Session, *User, error) {
	tx, err := s.m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var user *User

	userID, err := s.m.getIdentityUserID(ctx, tx, provider, identity.Subject)
	switch {
	case err == nil:
		user, err = s.m.getUserByID(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
	case errors.Is(err, common.ErrRecordNotFound):
		user, err = s.m.getUserByEmail(ctx, tx, identity.Email)
		switch {
		case err == nil:
			if !identity.EmailVerified {
				return nil, nil, ErrUnverifiedEmail
			}
		case errors.Is(err, common.ErrRecordNotFound):
			user = &User{Email: strings.ToLower(identity.Email)}
			if err := s.m.insertUser(ctx, tx, user); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}

		err = s.m.insertIdentity(ctx, tx, provider, identity.Subject, user.ID)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	session, err := s.m.createSession(ctx, tx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

func (s *UserService) findOrCreateUser(ctx context.Context, tx *sqlx.Tx, email string) (*User, error) {
	user, err := s.m.getUserByEmail(ctx, tx, email)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, common.ErrRecordNotFound) {
		return nil, err
	}

	user = &User{Email: strings.ToLower(email)}
	if err := s.m.insertUser(ctx, tx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUsername sets the caller's username.
func (s *UserService) UpdateUsername(ctx context.Context, callerID uuid.UUID, username string) error {
	v := common.NewValidator()
	validateUsername(v, username)
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.updateUsername(ctx, callerID, username)
}

// UpdateAvatarURL records the public url of the caller's uploaded avatar.
func (s *UserService) UpdateAvatarURL(ctx context.Context, callerID uuid.UUID, url string) error {
	v := common.NewValidator()
	v.Check(url != "", "avatar_url", "must be provided")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.updateAvatarURL(ctx, callerID, url)
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.m.getUserByID(ctx, id)
}

// GetProfile returns the public profile with follower and following counts.
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.m.getProfile(ctx, id)
}
