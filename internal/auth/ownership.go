package auth

import "github.com/qaboard/qa-service/internal/domain"

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Authorize decides whether caller may mutate a resource owned by ownerID. Moderators
// may act on anything; everyone else only on what they authored.
func Authorize(ownerID string, caller domain.Identity) Decision {
	if caller.IsModerator {
		return Allow
	}
	if ownerID != "" && ownerID == caller.ID {
		return Allow
	}
	return Deny
}

// OwnershipGuard binds Authorize to a caller so storage code can ask about a row it has
// locked without knowing who is asking.
func OwnershipGuard(caller domain.Identity) func(ownerID string) bool {
	return func(ownerID string) bool {
		return Authorize(ownerID, caller) == Allow
	}
}
