package issues

type CreateIssueRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"required,min=5"`
	Priority    string `json:"priority" validate:"required"`
}

// UpdateIssueRequest is a partial update; nil fields are left untouched.
type UpdateIssueRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,min=5"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// ListIssuesQuery holds the raw query string filters of GET /issues.
type ListIssuesQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Role     string `form:"role"`
}
