package issues

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, issue *Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*Issue, error)
	List(ctx context.Context, filter ListFilter) ([]Issue, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Issue, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, issue *Issue) error {
	if err := r.db.WithContext(ctx).Create(issue).Error; err != nil {
		return err
	}
	// reload so the author is populated for the response
	return r.db.WithContext(ctx).Preload("User").Where("id = ?", issue.ID).First(issue).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Issue, error) {
	var issue Issue
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

// List returns matching issues newest first with their authors preloaded.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]Issue, error) {
	query := r.db.WithContext(ctx).Model(&Issue{}).Preload("User")

	if filter.Status != "" {
		query = query.Where("issues.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("issues.priority = ?", filter.Priority)
	}
	if filter.AuthorRole != "" {
		query = query.Joins("JOIN users ON users.id = issues.user_id").
			Where("users.role = ?", filter.AuthorRole)
	}

	var list []Issue
	if err := query.Order("issues.created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Issue, error) {
	result := r.db.WithContext(ctx).Model(&Issue{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrIssueNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Issue{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIssueNotFound
	}
	return nil
}
