// Package access resolves what a caller may do with a contract.
//
// A Grant is computed once per request by Gate.Resolve and passed explicitly to
// every operation that needs it.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jorellortega/covionpartners-sub001/model"
)

// Tier levels.
const (
	TierExternal = 1
	TierEdit     = 4
	TierOwner    = 5
)

// RoleKind is a user's relation to an organization.
type RoleKind string

const (
	RoleNone  RoleKind = "none"
	RoleOwner RoleKind = "owner"
	RoleStaff RoleKind = "staff"
)

// Role is returned by the membership provider. Level applies to staff (1..5).
type Role struct {
	Kind  RoleKind `json:"kind"`
	Level int      `json:"level,omitempty"`
}

// IdentityProvider answers organization membership questions.
type IdentityProvider interface {
	OrgRole(ctx context.Context, userID, orgID string) (Role, error)
}

// CodeRedeemer validates an access code for a contract and consumes one use
// atomically. It returns an error when the code is unknown, bound to another
// contract, revoked, expired or exhausted.
type CodeRedeemer interface {
	Redeem(ctx context.Context, code, contractID string) (*model.AccessCode, error)
}

// GrantKind is the entry point through which access was granted.
type GrantKind string

const (
	GrantOwner    GrantKind = "owner"
	GrantStaff    GrantKind = "staff"
	GrantExternal GrantKind = "external"
)

// Grant is the resolved permission of one caller on one contract.
type Grant struct {
	Kind       GrantKind `json:"kind"`
	Tier       int       `json:"tier"`
	UserID     string    `json:"user_id,omitempty"`
	ContractID string    `json:"contract_id"`
	Code       string    `json:"-"`
}

func (g Grant) CanView() bool { return g.Tier >= TierExternal }

// CanEdit allows changing the body and field definitions.
func (g Grant) CanEdit() bool { return g.Kind != GrantExternal && g.Tier >= TierEdit }

func (g Grant) CanDelete() bool { return g.CanEdit() }

func (g Grant) CanGenerateCodes() bool { return g.CanEdit() }

// CanFillValues allows entering field values, including for external signers.
func (g Grant) CanFillValues() bool { return g.CanView() }

// Capability names an operation gated by a Grant.
type Capability string

const (
	CapView          Capability = "view"
	CapEdit          Capability = "edit"
	CapDelete        Capability = "delete"
	CapGenerateCodes Capability = "generate_codes"
	CapFillValues    Capability = "fill_values"
)

// Allows reports whether the grant covers c.
func (g Grant) Allows(c Capability) bool {
	switch c {
	case CapView:
		return g.CanView()
	case CapEdit:
		return g.CanEdit()
	case CapDelete:
		return g.CanDelete()
	case CapGenerateCodes:
		return g.CanGenerateCodes()
	case CapFillValues:
		return g.CanFillValues()
	}
	return false
}

// Require returns an AccessDeniedError unless the grant covers c.
func (g Grant) Require(c Capability) error {
	if g.Allows(c) {
		return nil
	}
	return &AccessDeniedError{ContractID: g.ContractID, Capability: c, Reason: fmt.Sprintf("tier %d (%s) is not sufficient", g.Tier, g.Kind)}
}

// AccessDeniedError is terminal for the caller's view of a contract.
type AccessDeniedError struct {
	ContractID string
	Capability Capability
	Reason     string
	Err        error
}

func (e *AccessDeniedError) Error() string {
	msg := "access denied"
	if e.Capability != "" {
		msg += " for " + string(e.Capability)
	}
	if e.ContractID != "" {
		msg += " on contract " + e.ContractID
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AccessDeniedError) Unwrap() error { return e.Err }

// Principal is who is asking. UserID comes from a user session; ExternalContractID
// from a view token issued after a code redemption; Code from a raw access code.
type Principal struct {
	UserID             string
	ExternalContractID string
	Code               string
}

// Gate resolves grants in a fixed order: owner, staff, external.
type Gate struct {
	identity IdentityProvider
	codes    CodeRedeemer
}

func NewGate(identity IdentityProvider, codes CodeRedeemer) *Gate {
	return &Gate{identity: identity, codes: codes}
}

// Resolve computes the caller's grant for contract. No match means
// AccessDeniedError; there is no default tier.
func (g *Gate) Resolve(ctx context.Context, p Principal, contract *model.Contract) (Grant, error) {
	if contract == nil {
		return Grant{}, &AccessDeniedError{Reason: "unknown contract"}
	}

	if p.UserID != "" && g.identity != nil {
		role, err := g.identity.OrgRole(ctx, p.UserID, contract.OrgID)
		if err != nil {
			return Grant{}, fmt.Errorf("resolve org role: %w", err)
		}
		switch role.Kind {
		case RoleOwner:
			return Grant{Kind: GrantOwner, Tier: TierOwner, UserID: p.UserID, ContractID: contract.ID}, nil
		case RoleStaff:
			if role.Level >= 1 && role.Level <= TierOwner {
				return Grant{Kind: GrantStaff, Tier: role.Level, UserID: p.UserID, ContractID: contract.ID}, nil
			}
		}
	}

	if p.ExternalContractID != "" {
		if p.ExternalContractID == contract.ID {
			return Grant{Kind: GrantExternal, Tier: TierExternal, ContractID: contract.ID}, nil
		}
		return Grant{}, &AccessDeniedError{ContractID: contract.ID, Reason: "view token is bound to another contract"}
	}

	if p.Code != "" && g.codes != nil {
		code, err := g.codes.Redeem(ctx, p.Code, contract.ID)
		if err != nil {
			return Grant{}, &AccessDeniedError{ContractID: contract.ID, Reason: "access code rejected", Err: err}
		}
		return Grant{Kind: GrantExternal, Tier: TierExternal, ContractID: contract.ID, Code: code.Code}, nil
	}

	return Grant{}, &AccessDeniedError{ContractID: contract.ID, Reason: "no owner, staff or access code match"}
}

// IsDenied reports whether err is an AccessDeniedError.
func IsDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}
