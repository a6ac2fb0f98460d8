package userservice

import (
	"regexp"

	"github.com/sushihentaime/writtenwork/internal/common"
)

var (
	EmailRX    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UsernameRX = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	OTPCodeRX  = regexp.MustCompile(`^[0-9]{6}$`)
	LetterRX   = regexp.MustCompile(`[a-zA-Z]`)
	NumberRX   = regexp.MustCompile(`[0-9]`)
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckStringLength(username, 3, 20), "username", "must be between 3 and 20 characters long")
	v.Check(v.Matches(username, UsernameRX), "username", "must be alphanumeric")
}

func validateEmail(v *common.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(EmailRX.MatchString(email), "email", "must be a valid email address")
}

// validatePassword is the sign-up rule. Login only requires a non-empty password.
func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")

	value := v.CheckStringLength(password, 8, 72) && LetterRX.MatchString(password) && NumberRX.MatchString(password)
	v.Check(value, "password", "must be between 8 and 72 characters long and contain at least one letter and one number")
}

func validateOTPCode(v *common.Validator, code string) {
	v.Check(code != "", "code", "must be provided")
	v.Check(OTPCodeRX.MatchString(code), "code", "must be a 6 digit code")
}

func ValidateToken(v *common.Validator, token string) {
	v.Check(token != "", "token", "must be provided")
	v.Check(len(token) == 26, "token", "invalid token")
}
