package domain

import "time"

// User is an account able to author questions.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsModerator  bool
	CreatedAt    time.Time
}
