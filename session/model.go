package session

import "time"

// UserType classifies the account behind a session.
type UserType string

const (
	// UserTypeTenant is a user scoped to one SPPG tenant.
	UserTypeTenant UserType = "TENANT_USER"
	// UserTypePlatform is a platform-level operator with no tenant scope.
	UserTypePlatform UserType = "PLATFORM_USER"
	// UserTypeDemo is a throwaway demo account.
	UserTypeDemo UserType = "DEMO_USER"
)

// Record is the server-side state of one authenticated browser session.
// Records are stored as JSON under `session:{sessionId}` with a store TTL
// matching ExpiresAt; the embedded ExpiresAt remains authoritative because
// an extension can leave the app-level expiry shorter than the key TTL.
type Record struct {
	SessionID   string   `json:"sessionId"`
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	TenantID    string   `json:"tenantId,omitempty"` // empty for platform-scoped users
	UserType    UserType `json:"userType"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Permissions []string `json:"permissions"`

	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// HasPermission reports whether the record carries the given permission.
func (r *Record) HasPermission(perm string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Activity is one audit-trail entry for a session. The activity list lives
// under `session:{sessionId}:activity` with its own, longer TTL so the trail
// survives the session record it describes.
type Activity struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CreateInput carries the identity attributes captured at login time.
type CreateInput struct {
	UserID      string
	Role        string
	TenantID    string
	UserType    UserType
	Email       string
	DisplayName string
	Permissions []string
	IP          string
	UserAgent   string
}
