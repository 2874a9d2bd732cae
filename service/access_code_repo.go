package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jorellortega/covionpartners-sub001/model"
)

type accessCodeRow struct {
	Code        string `gorm:"primaryKey;size:32"`
	ContractID  string `gorm:"index;size:64"`
	ExpiresAt   *time.Time
	MaxUses     int
	CurrentUses int
	RevokedAt   *time.Time
	CreatedBy   string
	CreatedAt   time.Time
}

func (accessCodeRow) TableName() string { return "access_codes" }

func (r *accessCodeRow) toModel() *model.AccessCode {
	return &model.AccessCode{
		Code:        r.Code,
		ContractID:  r.ContractID,
		ExpiresAt:   r.ExpiresAt,
		MaxUses:     r.MaxUses,
		CurrentUses: r.CurrentUses,
		RevokedAt:   r.RevokedAt,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

// validCodeCond selects codes that may still be redeemed. It is the SQL form of
// model.AccessCode.Valid.
const validCodeCond = "current_uses < max_uses AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?)"

// GormAccessCodeRepository stores access codes. Use counts only move through a
// single conditional UPDATE so concurrent redemptions cannot overshoot max_uses.
type GormAccessCodeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormAccessCodeRepository(db *gorm.DB) *GormAccessCodeRepository {
	return &GormAccessCodeRepository{db: db, now: utcNow}
}

// NewAccessCode returns a random code like 9F1C-04AB-77D2-E310.
func NewAccessCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create issues a new code for contractID.
func (r *GormAccessCodeRepository) Create(ctx context.Context, contractID string, expiresAt *time.Time, maxUses int, createdBy string) (*model.AccessCode, error) {
	if maxUses < 1 {
		return nil, fmt.Errorf("max uses must be at least 1, got %d", maxUses)
	}
	row := &accessCodeRow{
		Code:       NewAccessCode(),
		ContractID: contractID,
		ExpiresAt:  expiresAt,
		MaxUses:    maxUses,
		CreatedBy:  createdBy,
		CreatedAt:  r.now(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create access code: %w", err)
	}
	return row.toModel(), nil
}

// FindValid returns the code if it is neither expired, revoked nor used up.
func (r *GormAccessCodeRepository) FindValid(ctx context.Context, code string) (*model.AccessCode, error) {
	var row accessCodeRow
	err := r.db.WithContext(ctx).
		Where("code = ?", normalizeCode(code)).
		Where(validCodeCond, r.now()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccessCodeInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find access code: %w", err)
	}
	return row.toModel(), nil
}

// IncrementUse consumes one use if the code is still valid at the time of the update.
func (r *GormAccessCodeRepository) IncrementUse(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Model(&accessCodeRow{}).
		Where("code = ?", normalizeCode(code)).
		Where(validCodeCond, r.now()).
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return fmt.Errorf("increment access code use: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccessCodeInvalid
	}
	return nil
}

// Redeem consumes one use of a code bound to contractID and returns its new state.
func (r *GormAccessCodeRepository) Redeem(ctx context.Context, code, contractID string) (*model.AccessCode, error) {
	code = normalizeCode(code)
	var out *model.AccessCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&accessCodeRow{}).
			Where("code = ? AND contract_id = ?", code, contractID).
			Where(validCodeCond, r.now()).
			Update("current_uses", gorm.Expr("current_uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccessCodeInvalid
		}
		var row accessCodeRow
		if err := tx.Where("code = ?", code).Take(&row).Error; err != nil {
			return err
		}
		out = row.toModel()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAccessCodeInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("redeem access code: %w", err)
	}
	return out, nil
}

// Revoke invalidates a code of contractID.
func (r *GormAccessCodeRepository) Revoke(ctx context.Context, code, contractID string) error {
	now := r.now()
	res := r.db.WithContext(ctx).Model(&accessCodeRow{}).
		Where("code = ? AND contract_id = ? AND revoked_at IS NULL", normalizeCode(code), contractID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return fmt.Errorf("revoke access code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccessCodeInvalid
	}
	return nil
}

// ListByContract returns every code of a contract, newest first.
func (r *GormAccessCodeRepository) ListByContract(ctx context.Context, contractID string) ([]*model.AccessCode, error) {
	var rows []accessCodeRow
	if err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	out := make([]*model.AccessCode, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}
