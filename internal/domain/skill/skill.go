package skill

import (
	"time"

	"github.com/google/uuid"
)

const (
	SectionTable = "skills_section"
	Table        = "skills"

	ColumnID          = "id"
	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnName        = "name"
	ColumnIconURL     = "icon_url"
	ColumnCreatedAt   = "created_at"
	ColumnUpdatedAt   = "updated_at"
)

// Section is the single-row header rendered above the skill icons. Skills do
// not reference it.
type Section struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Skill struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IconURL   *string   `json:"icon_url"`
	CreatedAt time.Time `json:"created_at"`
}

func SectionColumns() []string {
	return []string{ColumnID, ColumnTitle, ColumnDescription, ColumnUpdatedAt}
}

func Columns() []string {
	return []string{ColumnID, ColumnName, ColumnIconURL, ColumnCreatedAt}
}

// SectionValues builds the patch for a section update, stamping updated_at.
func SectionValues(title, description string, now time.Time) map[string]any {
	return map[string]any{
		ColumnTitle:       title,
		ColumnDescription: description,
		ColumnUpdatedAt:   now,
	}
}

// Values builds an insert or update patch. A nil iconURL leaves the column
// out of the patch so an existing icon survives the update.
func Values(name string, iconURL *string) map[string]any {
	v := map[string]any{ColumnName: name}
	if iconURL != nil {
		v[ColumnIconURL] = *iconURL
	}
	return v
}
