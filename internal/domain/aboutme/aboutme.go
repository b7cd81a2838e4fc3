package aboutme

import (
	"time"

	"github.com/google/uuid"
)

const (
	Table = "about_me"

	ColumnID          = "id"
	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnUpdatedAt   = "updated_at"
)

// AboutMe is the single-row "about me" block of the portfolio.
type AboutMe struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is a full replacement of the editable fields.
type Input struct {
	Title       string
	Description string
}

func (in Input) Values() map[string]any {
	return map[string]any{
		ColumnTitle:       in.Title,
		ColumnDescription: in.Description,
	}
}

func Columns() []string {
	return []string{ColumnID, ColumnTitle, ColumnDescription, ColumnUpdatedAt}
}
