package auth

const (
	RoleClient = "client"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// Actor is the request-scoped authorization context handed to domain
// operations. Role checks happen in middleware; the actor identifies who
// performed a transition so it can be recorded alongside the state change.
type Actor struct {
	UserID string
	Role   string
}
