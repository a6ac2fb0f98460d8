package mailservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	template := NewTemplate("http://localhost:4000")

	testCases := []struct {
		name         string
		templateName string
		data         any
		expectedErr  bool
		contains     string
	}{
		{
			name:         "success",
			templateName: "otp_email.tmpl",
			data:         otpEmail{Code: "123456", ExpiresIn: 10},
			expectedErr:  false,
			contains:     "123456",
		},
		{
			name:         "invalid template name",
			templateName: "invalid_template.html",
			data:         nil,
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, p, h, err := template.ParseTemplate(tc.templateName, tc.data)
			assert.Equal(t, tc.expectedErr, err != nil)

			if err == nil {
				assert.NotEmpty(t, s.String())
				assert.Contains(t, p.String(), tc.contains)
				assert.Contains(t, p.String(), "http://localhost:4000")
				assert.Contains(t, h.String(), tc.contains)
			}
		})
	}
}
