package userservice

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
	"golang.org/x/crypto/bcrypt"
)

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPCodeLength, n.Int64()), nil
}

// upsertOTP replaces any earlier code for the email, so only the latest one verifies.
func (m *DBModel) upsertOTP(ctx context.Context, email string, code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO otp_codes (email, hash, expiry)
		VALUES (lower($1), $2, $3)
		ON CONFLICT (email) DO UPDATE SET hash = EXCLUDED.hash, expiry = EXCLUDED.expiry, attempts = 0`

	_, err = m.db.ExecContext(ctx, query, email, hash, time.Now().Add(OTPCodeTime))
	return err
}

// claimOTPAttempt counts one verification attempt against the email's code and returns the
// code. Expired codes and codes with no attempts left are not returned.
func (m *DBModel) claimOTPAttempt(ctx context.Context, email string) (*otpCode, error) {
	query := `
		UPDATE otp_codes
		SET attempts = attempts + 1
		WHERE email = lower($1) AND expiry > $2 AND attempts < $3
		RETURNING email, hash, expiry, attempts`

	var c otpCode

	err := m.db.GetContext(ctx, &c, query, email, time.Now(), OTPMaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

func (m *DBModel) deleteOTP(ctx context.Context, q sqlx.ExecerContext, email string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM otp_codes WHERE email = lower($1)`, email)
	return err
}

func (c *otpCode) exhausted() bool {
	return c.Attempts >= OTPMaxAttempts
}

func (c *otpCode) matches(code string) bool {
	return bcrypt.CompareHashAndPassword(c.Hash, []byte(code)) == nil
}
