package model

// Role names used across the platform.
const (
	RoleAcademyOwner = "academy_owner"
	RoleCoach        = "coach"
	RoleMember       = "member"
)

// roleRank orders roles from least to most privileged. Unknown roles rank
// below member.
var roleRank = map[string]int{
	RoleMember:       1,
	RoleCoach:        2,
	RoleAcademyOwner: 3,
}

// MostPrivilegedRole picks the highest-ranked role, for tokens that carry a
// single role claim. Returns "" for an empty list.
func MostPrivilegedRole(roles []string) string {
	best := ""
	for _, role := range roles {
		if best == "" || roleRank[role] > roleRank[best] {
			best = role
		}
	}
	return best
}

// User represents an application user. Every user belongs to exactly one
// tenant, so the tenant filter applies to identity rows too.
type User struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Email          string `json:"email" gorm:"type:varchar(100);index;not null"`
	PasswordHash   string `json:"-" gorm:"type:varchar(255);not null"`
	FirstName      string `json:"first_name" gorm:"type:varchar(100)"`
	LastName       string `json:"last_name" gorm:"type:varchar(100)"`
	EmailConfirmed bool   `json:"email_confirmed" gorm:"default:false"`

	TenantScoped
	AuditFields
	SoftDeleteFields
}

// UserRole assigns a named role to a user within their tenant.
type UserRole struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"index;not null"`
	Role   string `json:"role" gorm:"type:varchar(50);not null"`

	TenantScoped

	User User `json:"-" gorm:"foreignKey:UserID"`
}
