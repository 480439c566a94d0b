package domain

// Credentials are presented once at login and never stored as-is.
type Credentials struct {
	Email    string
	Password string
}

// Identity is everything handlers may trust about a caller. It is only ever built from
// validated token claims.
type Identity struct {
	ID          string
	IsModerator bool
}
