package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/config"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// ConfigIdentityProvider answers identity and membership questions from the
// users section of the configuration.
type ConfigIdentityProvider struct {
	cfg *config.Config
}

func NewConfigIdentityProvider(cfg *config.Config) *ConfigIdentityProvider {
	return &ConfigIdentityProvider{cfg: cfg}
}

// Authenticate checks a username and password pair.
func (p *ConfigIdentityProvider) Authenticate(username, password string) (*config.User, error) {
	user := p.cfg.FindUser(username)
	if user == nil || subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// OrgRole reports the membership of userID in orgID. Unknown users and orgs are RoleNone.
func (p *ConfigIdentityProvider) OrgRole(_ context.Context, userID, orgID string) (access.Role, error) {
	user := p.cfg.FindUserByID(userID)
	if user == nil {
		return access.Role{Kind: access.RoleNone}, nil
	}
	m, ok := user.Membership(orgID)
	if !ok {
		return access.Role{Kind: access.RoleNone}, nil
	}
	switch strings.ToLower(m.Role) {
	case "owner":
		return access.Role{Kind: access.RoleOwner, Level: access.TierOwner}, nil
	case "staff":
		return access.Role{Kind: access.RoleStaff, Level: m.Level}, nil
	}
	return access.Role{Kind: access.RoleNone}, nil
}
