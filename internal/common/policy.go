package common

import "fmt"

// Role is the profiles.role column. It is the only source of truth for admin
// decisions: the route gate reads it through the session lookup and every
// store predicate below reads it in SQL.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// AdminCheck returns a predicate that holds when the user bound to $n is an admin.
func AdminCheck(n int) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM profiles WHERE id = $%d AND role = '%s')", n, RoleAdmin)
}

// OwnerOrAdmin returns a predicate that holds when the user bound to $n owns
// the row through ownerColumn or is an admin.
func OwnerOrAdmin(ownerColumn string, n int) string {
	return fmt.Sprintf("(%s = $%d OR %s)", ownerColumn, n, AdminCheck(n))
}

// PublishedOrOwnerOrAdmin is the read policy for posts: drafts are visible to
// their author and to admins only. A nil viewer must be bound as NULL.
func PublishedOrOwnerOrAdmin(alias string, n int) string {
	return fmt.Sprintf("(%s.is_published OR %s)", alias, OwnerOrAdmin(alias+".user_id", n))
}
