package issues

import (
	"time"

	"github.com/google/uuid"

	"issuetrack/internal/users"
)

type Issue struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string    `json:"title" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Priority    Priority  `json:"priority" gorm:"type:varchar(10);not null"`
	Status      Status    `json:"status" gorm:"type:varchar(20);not null;default:'OPEN'"`

	UserID uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	User   *users.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type IssueResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Priority    Priority          `json:"priority"`
	Status      Status            `json:"status"`
	UserID      string            `json:"user_id"`
	User        *users.PublicUser `json:"user,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (i *Issue) ToResponse() IssueResponse {
	resp := IssueResponse{
		ID:          i.ID.String(),
		Title:       i.Title,
		Description: i.Description,
		Priority:    i.Priority,
		Status:      i.Status,
		UserID:      i.UserID.String(),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.User != nil {
		author := i.User.Public()
		resp.User = &author
	}
	return resp
}

// ListFilter narrows an issue listing. Zero values match everything.
type ListFilter struct {
	Status     Status
	Priority   Priority
	AuthorRole users.Role
}
