package userservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newSession(userID uuid.UUID, ttl time.Duration) (*Session, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Plain:  base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes),
		UserID: userID,
		Expiry: time.Now().Add(ttl),
	}

	session.Hash = hashToken(session.Plain)

	return session, nil
}

func (m *DBModel) createSession(ctx context.Context, q sqlx.ExecerContext, userID uuid.UUID) (*Session, error) {
	session, err := newSession(userID, SessionTokenTime)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO sessions (hash, user_id, expiry)
		VALUES ($1, $2, $3)`

	_, err = q.ExecContext(ctx, query, session.Hash, session.UserID, session.Expiry)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (m *DBModel) getUserBySession(ctx context.Context, hash []byte) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		INNER JOIN profiles p ON p.id = u.id
		INNER JOIN sessions s ON s.user_id = u.id
		WHERE s.hash = $1 AND s.expiry > $2`

	return scanUser(m.db.QueryRowxContext(ctx, query, hash, time.Now()))
}

func (m *DBModel) deleteSession(ctx context.Context, hash []byte) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE hash = $1`, hash)
	return err
}

func (m *DBModel) deleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry <= $1`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
