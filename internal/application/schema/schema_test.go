package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

func validExperience() ExperienceForm {
	start := time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)
	return ExperienceForm{
		Employer:       "Acme",
		Role:           "Engineer",
		StartDate:      &start,
		EmploymentType: "Full-time",
		Location:       "Remote",
		Description:    "<p>Built things</p>",
	}
}

func TestValidate_Experience(t *testing.T) {
	require.NoError(t, Validate(validExperience()))

	f := validExperience()
	f.Description = "<p>   </p>"
	err := Validate(f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidInput))
	assert.Contains(t, err.Error(), "description is required")

	f = validExperience()
	f.EmploymentType = "Volunteer"
	f.StartDate = nil
	err = Validate(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employment_type must be one of")
	assert.Contains(t, err.Error(), "start_date is required")
}

func TestExperienceForm_Input(t *testing.T) {
	f := validExperience()
	f.Description = `<p onclick="x()">Built <script>alert(1)</script>things</p>`

	in := f.Input()
	assert.Equal(t, experience.FullTime, in.EmploymentType)
	assert.Equal(t, *f.StartDate, in.StartDate)
	assert.Nil(t, in.EndDate)
	assert.Equal(t, "<p>Built things</p>", in.Description)
}

func TestValidate_AboutMe(t *testing.T) {
	assert.NoError(t, Validate(AboutMeForm{Title: "Hi", Description: "<b>me</b>"}))

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'a'
	}
	err := Validate(AboutMeForm{Title: string(long), Description: "me"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title must be less than 50 characters")
}

func TestValidate_SkillsAndSignIn(t *testing.T) {
	assert.NoError(t, Validate(SkillForm{Name: "Go"}))
	assert.Error(t, Validate(SkillForm{Name: "G"}))

	assert.NoError(t, Validate(SkillsSectionForm{Title: "Skills", Description: "What I use daily"}))
	assert.Error(t, Validate(SkillsSectionForm{Title: "Sk", Description: "short"}))

	assert.NoError(t, Validate(SignInForm{Email: "owner@example.com", Password: "x"}))
	err := Validate(SignInForm{Email: "nope", Password: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "password is required")
}

func TestValidateIcon(t *testing.T) {
	assert.NoError(t, ValidateIcon("image/svg+xml", 100))
	assert.Error(t, ValidateIcon("image/gif", 100))
	assert.Error(t, ValidateIcon("image/png", MaxIconSize+1))
}
