package domain

import "time"

// Role enumerates principal roles.
type Role string

const (
	RoleUser  Role = "User"
	RoleAgent Role = "Agent"
	RoleAdmin Role = "Admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAgent || r == RoleAdmin
}

// User is the single identity model: end-users, agents and admins differ
// only by role. Department tags are meaningful for Agents, where they drive
// auto-assignment eligibility.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	Departments  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the user belongs to the staff broadcast group.
func (u *User) IsStaff() bool {
	return u.Role == RoleAgent || u.Role == RoleAdmin
}

// HasDepartment reports whether the user carries the given department tag.
func (u *User) HasDepartment(dept string) bool {
	for _, d := range u.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// UserRef is the display-relevant projection of a user embedded in resolved
// tickets and comments.
type UserRef struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      Role
}

// Ref returns the display projection for embedding.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
