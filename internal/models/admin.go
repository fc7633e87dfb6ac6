package models

import "time"

// Permission is immutable reference data managed by the seed step.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      string
	Description string
}

// Admin is a back-office identity authenticated by username/password.
// Permissions carries the resolved permission rows when the admin was
// loaded through a query that joins them.
type Admin struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsSuperAdmin bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Permissions  []Permission
}

// HasPermission reports whether the admin may perform the named operation.
// Super admins satisfy every check.
func (a Admin) HasPermission(name string) bool {
	if a.IsSuperAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (a Admin) PermissionNames() []string {
	names := make([]string, 0, len(a.Permissions))
	for _, p := range a.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// AdminSession is one authenticated admin browser session. The CSRF token
// is paired 1:1 with the session token at creation.
type AdminSession struct {
	ID           string
	AdminID      string
	SessionToken string
	CSRFToken    string
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (s AdminSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
