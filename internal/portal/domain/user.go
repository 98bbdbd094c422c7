package domain

// User is the minimal record returned by a successful credential exchange.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Token string `json:"token"`
}
