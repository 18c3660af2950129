package domain

// User represents an account owner. Every client, invoice and recurring
// template belongs to exactly one user; user ID is the tenant boundary.
type User struct {
	UserID       string `json:"userID"` // Primary Key (UUID)
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	AuditFields
}
