package models

// User is the identity-service record for an account. Password is only
// populated by the by-number-id lookup used for login bootstrapping.
type User struct {
	UserName string `json:"userName"`
	NumberID string `json:"numberId"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}
