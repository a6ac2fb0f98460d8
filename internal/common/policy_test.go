package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyPredicates(t *testing.T) {
	assert.Equal(t, "EXISTS (SELECT 1 FROM profiles WHERE id = $2 AND role = 'admin')", AdminCheck(2))
	assert.Equal(t, "(user_id = $1 OR EXISTS (SELECT 1 FROM profiles WHERE id = $1 AND role = 'admin'))", OwnerOrAdmin("user_id", 1))
	assert.Contains(t, PublishedOrOwnerOrAdmin("p", 3), "p.is_published OR (p.user_id = $3")
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
}
