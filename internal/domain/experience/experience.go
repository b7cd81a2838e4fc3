package experience

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	Table = "experience_list"

	ColumnID             = "id"
	ColumnEmployer       = "employer"
	ColumnRole           = "role"
	ColumnStartDate      = "start_date"
	ColumnEndDate        = "end_date"
	ColumnEmploymentType = "employment_type"
	ColumnLocation       = "location"
	ColumnDescription    = "description"
	ColumnCreatedAt      = "created_at"
)

type EmploymentType string

const (
	Intern    EmploymentType = "Intern"
	Contract  EmploymentType = "Contract"
	FullTime  EmploymentType = "Full-time"
	PartTime  EmploymentType = "Part-time"
	Freelance EmploymentType = "Freelance"
)

var ErrInvalidEmploymentType = errors.New("invalid employment type")

func (t EmploymentType) Validate() error {
	switch t {
	case Intern, Contract, FullTime, PartTime, Freelance:
		return nil
	default:
		return ErrInvalidEmploymentType
	}
}

// Experience is one row of the work history. A nil EndDate means the
// position is current.
type Experience struct {
	ID             uuid.UUID      `json:"id"`
	Employer       string         `json:"employer"`
	Role           string         `json:"role"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
	EmploymentType EmploymentType `json:"employment_type"`
	Location       string         `json:"location"`
	Description    string         `json:"description"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (e Experience) Current() bool {
	return e.EndDate == nil
}

type Input struct {
	Employer       string
	Role           string
	StartDate      time.Time
	EndDate        *time.Time
	EmploymentType EmploymentType
	Location       string
	Description    string
}

// Values always carries end_date so clearing it on update stores NULL.
func (in Input) Values() map[string]any {
	var end any
	if in.EndDate != nil && !in.EndDate.IsZero() {
		end = truncateDate(*in.EndDate)
	}
	return map[string]any{
		ColumnEmployer:       in.Employer,
		ColumnRole:           in.Role,
		ColumnStartDate:      truncateDate(in.StartDate),
		ColumnEndDate:        end,
		ColumnEmploymentType: string(in.EmploymentType),
		ColumnLocation:       in.Location,
		ColumnDescription:    in.Description,
	}
}

func Columns() []string {
	return []string{
		ColumnID, ColumnEmployer, ColumnRole, ColumnStartDate, ColumnEndDate,
		ColumnEmploymentType, ColumnLocation, ColumnDescription, ColumnCreatedAt,
	}
}

// Before reports whether a sorts ahead of b: most recent start first, newer
// rows first on equal start dates.
func Before(a, b Experience) bool {
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
