package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

// ContractService resolves access and performs contract-level operations.
type ContractService struct {
	contracts ContractRepository
	codes     *GormAccessCodeRepository
	gate      *access.Gate
	identity  access.IdentityProvider
	sessions  *EditSessionStore
}

func NewContractService(contracts ContractRepository, codes *GormAccessCodeRepository, identity access.IdentityProvider, sessions *EditSessionStore) *ContractService {
	return &ContractService{
		contracts: contracts,
		codes:     codes,
		gate:      access.NewGate(identity, codes),
		identity:  identity,
		sessions:  sessions,
	}
}

// Load fetches a contract and the caller's grant on it.
func (s *ContractService) Load(ctx context.Context, p access.Principal, id string) (*model.Contract, access.Grant, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, access.Grant{}, err
	}
	grant, err := s.gate.Resolve(ctx, p, contract)
	if err != nil {
		return nil, access.Grant{}, err
	}
	return contract, grant, nil
}

// NewContract describes a contract to create.
type NewContract struct {
	Title string
	Body  string
	OrgID string
}

// Create stores a draft contract. The caller must be owner or staff of tier 4+ in the org.
func (s *ContractService) Create(ctx context.Context, userID string, in NewContract) (*model.Contract, error) {
	role, err := s.identity.OrgRole(ctx, userID, in.OrgID)
	if err != nil {
		return nil, err
	}
	if role.Kind == access.RoleNone || (role.Kind == access.RoleStaff && role.Level < access.TierEdit) {
		return nil, &access.AccessDeniedError{Capability: access.CapEdit, Reason: fmt.Sprintf("cannot create contracts in org %s", in.OrgID)}
	}
	c := &model.Contract{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		Fields:    []model.FieldDefinition{},
		Values:    map[string]string{},
		Status:    model.StatusDraft,
		OrgID:     in.OrgID,
		CreatedBy: userID,
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info(ctx, "contract created", "contract_id", c.ID, "org_id", c.OrgID)
	return c, nil
}

// List returns the org's contracts for a member of the org.
func (s *ContractService) List(ctx context.Context, userID, orgID string) ([]*model.Contract, error) {
	role, err := s.identity.OrgRole(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if role.Kind == access.RoleNone {
		return nil, &access.AccessDeniedError{Capability: access.CapView, Reason: fmt.Sprintf("not a member of org %s", orgID)}
	}
	return s.contracts.ListByOrg(ctx, orgID)
}

// UpdateMeta changes title and status.
func (s *ContractService) UpdateMeta(ctx context.Context, grant access.Grant, id string, title *string, status *model.Status) (*model.Contract, error) {
	if err := grant.Require(access.CapEdit); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
	}
	return s.contracts.Update(ctx, id, ContractPatch{Title: title, Status: status})
}

// Delete removes the contract and any open editing sessions on it. Stored blobs are kept.
func (s *ContractService) Delete(ctx context.Context, grant access.Grant, id string) error {
	if err := grant.Require(access.CapDelete); err != nil {
		return err
	}
	if err := s.contracts.Delete(ctx, id); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.DeleteByContract(id)
	}
	return nil
}

// IssueCode creates an external access code for the contract.
func (s *ContractService) IssueCode(ctx context.Context, grant access.Grant, contractID string, expiresAt *time.Time, maxUses int) (*model.AccessCode, error) {
	if err := grant.Require(access.CapGenerateCodes); err != nil {
		return nil, err
	}
	if maxUses < 1 {
		return nil, fmt.Errorf("%w: max_uses must be at least 1", ErrInvalidInput)
	}
	return s.codes.Create(ctx, contractID, expiresAt, maxUses, grant.UserID)
}

func (s *ContractService) ListCodes(ctx context.Context, grant access.Grant, contractID string) ([]*model.AccessCode, error) {
	if err := grant.Require(access.CapGenerateCodes); err != nil {
		return nil, err
	}
	return s.codes.ListByContract(ctx, contractID)
}

func (s *ContractService) RevokeCode(ctx context.Context, grant access.Grant, contractID, code string) error {
	if err := grant.Require(access.CapGenerateCodes); err != nil {
		return err
	}
	return s.codes.Revoke(ctx, code, contractID)
}

// Redeem consumes one use of code for contractID and returns the external grant.
func (s *ContractService) Redeem(ctx context.Context, contractID, code string) (*model.Contract, access.Grant, error) {
	return s.Load(ctx, access.Principal{Code: code}, contractID)
}
