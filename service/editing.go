package service

import (
	"context"
	"errors"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/editor"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pager"
)

var ErrSessionForbidden = errors.New("editing session belongs to another user")

// EditingService opens editing sessions over stored contracts and saves them back.
type EditingService struct {
	contracts ContractRepository
	sessions  *EditSessionStore
	pager     *pager.Pager
}

func NewEditingService(contracts ContractRepository, sessions *EditSessionStore, p *pager.Pager) *EditingService {
	return &EditingService{contracts: contracts, sessions: sessions, pager: p}
}

func (s *EditingService) Pager() *pager.Pager { return s.pager }

// Open starts a session on the stored body and field definitions.
func (s *EditingService) Open(ctx context.Context, grant access.Grant, contract *model.Contract) (*EditSession, error) {
	if err := grant.Require(access.CapEdit); err != nil {
		return nil, err
	}
	sess, err := editor.NewSession(contract.Body, contract.Fields, s.pager)
	if err != nil {
		return nil, err
	}
	return s.sessions.Add(contract.ID, grant.UserID, grant, sess), nil
}

// Do runs fn on session id on behalf of userID.
func (s *EditingService) Do(id, userID string, fn func(*editor.Session) error) (*EditSession, error) {
	var entry *EditSession
	err := s.sessions.With(id, func(e *EditSession, sess *editor.Session) error {
		if e.UserID != userID {
			return ErrSessionForbidden
		}
		entry = e
		return fn(sess)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Save writes the session's body and field definitions to the contract. A
// pending highlight is not saved; the body is stored as it was before it.
// Concurrent editors of the same contract overwrite each other; the last save wins.
func (s *EditingService) Save(ctx context.Context, id, userID string) (*model.Contract, error) {
	var (
		body string
		defs []model.FieldDefinition
	)
	entry, err := s.Do(id, userID, func(sess *editor.Session) error {
		body = sess.Body()
		defs = sess.Fields()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := entry.Grant.Require(access.CapEdit); err != nil {
		return nil, err
	}
	return s.contracts.Update(ctx, entry.ContractID, ContractPatch{Body: &body, Fields: &defs})
}

// Close discards a session.
func (s *EditingService) Close(id, userID string) error {
	if _, err := s.Do(id, userID, func(*editor.Session) error { return nil }); err != nil {
		return err
	}
	s.sessions.Delete(id)
	return nil
}
