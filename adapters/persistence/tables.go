package persistence

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

func NewAboutMeTable(db *pgxpool.Pool, log logger.Logger) *Table[aboutme.AboutMe] {
	return NewTable(db, aboutme.Table, aboutme.Columns(), scanAboutMe, log)
}

func NewSkillsSectionTable(db *pgxpool.Pool, log logger.Logger) *Table[skill.Section] {
	return NewTable(db, skill.SectionTable, skill.SectionColumns(), scanSkillsSection, log)
}

func NewSkillsTable(db *pgxpool.Pool, log logger.Logger) *Table[skill.Skill] {
	return NewTable(db, skill.Table, skill.Columns(), scanSkill, log)
}

func NewExperienceTable(db *pgxpool.Pool, log logger.Logger) *Table[experience.Experience] {
	return NewTable(db, experience.Table, experience.Columns(), scanExperience, log)
}

func scanAboutMe(row pgx.Row) (aboutme.AboutMe, error) {
	var a aboutme.AboutMe
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.UpdatedAt)
	return a, err
}

func scanSkillsSection(row pgx.Row) (skill.Section, error) {
	var s skill.Section
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.UpdatedAt)
	return s, err
}

func scanSkill(row pgx.Row) (skill.Skill, error) {
	var s skill.Skill
	err := row.Scan(&s.ID, &s.Name, &s.IconURL, &s.CreatedAt)
	return s, err
}

func scanExperience(row pgx.Row) (experience.Experience, error) {
	var (
		e       experience.Experience
		empType string
	)
	err := row.Scan(
		&e.ID,
		&e.Employer,
		&e.Role,
		&e.StartDate,
		&e.EndDate,
		&empType,
		&e.Location,
		&e.Description,
		&e.CreatedAt,
	)
	e.EmploymentType = experience.EmploymentType(empType)
	return e, err
}
