package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated caller. Elevated is set when a non-admin
// presented a valid manager PIN for the current request.
type Actor struct {
	Username string
	Role     string
	Elevated bool
}

// CanOverride reports whether the actor holds the elevated capability.
func (a Actor) CanOverride() bool {
	return a.Role == RoleAdmin || a.Elevated
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
