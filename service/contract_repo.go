package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jorellortega/covionpartners-sub001/model"
)

// ContractPatch is a partial update. Nil members are left unchanged. Values are
// merged into the stored map, never replacing it.
type ContractPatch struct {
	Title  *string
	Status *model.Status
	Body   *string
	Fields *[]model.FieldDefinition
	Values map[string]string
	File   *model.FileRef
}

// ContractRepository persists contracts.
type ContractRepository interface {
	Create(ctx context.Context, c *model.Contract) error
	Get(ctx context.Context, id string) (*model.Contract, error)
	Update(ctx context.Context, id string, patch ContractPatch) (*model.Contract, error)
	Delete(ctx context.Context, id string) error
	ListByOrg(ctx context.Context, orgID string) ([]*model.Contract, error)
}

type contractRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string
	Body      string `gorm:"type:text"`
	FileURL   string
	FilePath  string
	FileName  string
	FileMime  string
	Fields    datatypes.JSON
	Values    datatypes.JSON
	Status    string `gorm:"size:32"`
	OrgID     string `gorm:"index;size:64"`
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (contractRow) TableName() string { return "contracts" }

func rowFromContract(c *model.Contract) (*contractRow, error) {
	fields, err := json.Marshal(nonNilFields(c.Fields))
	if err != nil {
		return nil, err
	}
	values, err := json.Marshal(nonNilValues(c.Values))
	if err != nil {
		return nil, err
	}
	row := &contractRow{
		ID:        c.ID,
		Title:     c.Title,
		Body:      c.Body,
		Fields:    datatypes.JSON(fields),
		Values:    datatypes.JSON(values),
		Status:    string(c.Status),
		OrgID:     c.OrgID,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.File != nil {
		row.FileURL, row.FilePath, row.FileName, row.FileMime = c.File.URL, c.File.Path, c.File.Name, c.File.MimeType
	}
	return row, nil
}

func (r *contractRow) toModel() (*model.Contract, error) {
	c := &model.Contract{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Status:    model.Status(r.Status),
		OrgID:     r.OrgID,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Fields:    []model.FieldDefinition{},
		Values:    map[string]string{},
	}
	if len(r.Fields) > 0 {
		if err := json.Unmarshal(r.Fields, &c.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of contract %s: %w", r.ID, err)
		}
	}
	if len(r.Values) > 0 {
		if err := json.Unmarshal(r.Values, &c.Values); err != nil {
			return nil, fmt.Errorf("decode values of contract %s: %w", r.ID, err)
		}
	}
	if r.FilePath != "" {
		c.File = &model.FileRef{URL: r.FileURL, Path: r.FilePath, Name: r.FileName, MimeType: r.FileMime}
	}
	return c, nil
}

func nonNilFields(f []model.FieldDefinition) []model.FieldDefinition {
	if f == nil {
		return []model.FieldDefinition{}
	}
	return f
}

func nonNilValues(v map[string]string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v
}

// GormContractRepository stores contracts in one row each, with fields and
// values as JSON columns.
type GormContractRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db, now: utcNow}
}

func (r *GormContractRepository) Create(ctx context.Context, c *model.Contract) error {
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	row, err := rowFromContract(c)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (r *GormContractRepository) Get(ctx context.Context, id string) (*model.Contract, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return row.toModel()
}

// Update applies patch inside a transaction. Values are merged with what is
// stored at commit time; body and fields are last-write-wins.
func (r *GormContractRepository) Update(ctx context.Context, id string, patch ContractPatch) (*model.Contract, error) {
	var out *model.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row contractRow
		if err := q.Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrContractNotFound, id)
			}
			return err
		}
		c, err := row.toModel()
		if err != nil {
			return err
		}

		if patch.Title != nil {
			c.Title = *patch.Title
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		if patch.Body != nil {
			c.Body = *patch.Body
		}
		if patch.Fields != nil {
			c.Fields = *patch.Fields
		}
		if patch.Values != nil {
			c.Values = model.MergeValues(c.Values, patch.Values)
		}
		if patch.File != nil {
			f := *patch.File
			c.File = &f
		}
		c.UpdatedAt = r.now()

		updated, err := rowFromContract(c)
		if err != nil {
			return err
		}
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrContractNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update contract: %w", err)
	}
	return out, nil
}

func (r *GormContractRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&contractRow{})
	if res.Error != nil {
		return fmt.Errorf("delete contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrContractNotFound, id)
	}
	return nil
}

func (r *GormContractRepository) ListByOrg(ctx context.Context, orgID string) ([]*model.Contract, error) {
	var rows []contractRow
	if err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	out := make([]*model.Contract, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
