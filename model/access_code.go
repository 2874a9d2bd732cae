package model

import "time"

// AccessCode is a revocable capability granting external (tier 1) access to one contract.
type AccessCode struct {
	Code        string     `json:"code"`
	ContractID  string     `json:"contract_id"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxUses     int        `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Valid reports whether the code can still be redeemed at now.
func (a *AccessCode) Valid(now time.Time) bool {
	if a.RevokedAt != nil {
		return false
	}
	if a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
		return false
	}
	return a.CurrentUses < a.MaxUses
}
