// Package schema validates dashboard form input before it reaches a store.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

const MaxIconSize = 1 << 20

var allowedIconTypes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/webp":    {},
	"image/svg+xml": {},
}

var (
	validate    = newValidator()
	stripPolicy = bluemonday.StrictPolicy()
	ugcPolicy   = bluemonday.UGCPolicy()
)

type SignInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AboutMeForm struct {
	Title       string `json:"title" validate:"required,max=50"`
	Description string `json:"description" validate:"richtext,max=999"`
}

func (f AboutMeForm) Input() aboutme.Input {
	return aboutme.Input{Title: f.Title, Description: SanitizeRichText(f.Description)}
}

type SkillsSectionForm struct {
	Title       string `json:"title" validate:"min=3,max=100"`
	Description string `json:"description" validate:"min=10,max=500"`
}

type SkillForm struct {
	Name string `form:"name" json:"name" validate:"min=2,max=50"`
}

type ExperienceForm struct {
	Employer       string     `json:"employer" validate:"required,max=100"`
	Role           string     `json:"role" validate:"required,max=100"`
	StartDate      *time.Time `json:"start_date" validate:"required"`
	EndDate        *time.Time `json:"end_date" validate:"omitempty"`
	EmploymentType string     `json:"employment_type" validate:"required,oneof=Intern Contract Full-time Part-time Freelance"`
	Location       string     `json:"location" validate:"required,max=100"`
	Description    string     `json:"description" validate:"richtext"`
}

func (f ExperienceForm) Input() experience.Input {
	in := experience.Input{
		Employer:       f.Employer,
		Role:           f.Role,
		EndDate:        f.EndDate,
		EmploymentType: experience.EmploymentType(f.EmploymentType),
		Location:       f.Location,
		Description:    SanitizeRichText(f.Description),
	}
	if f.StartDate != nil {
		in.StartDate = *f.StartDate
	}
	return in
}

// Validate checks form against its struct tags and reports every failing
// field in one invalid-input error.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.NewInvalidInput("invalid form", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return apperror.NewInvalidInput(strings.Join(msgs, "; "), err)
}

// ValidateIcon checks an uploaded icon's declared type and size.
func ValidateIcon(contentType string, size int64) error {
	if _, ok := allowedIconTypes[contentType]; !ok {
		return apperror.NewInvalidInput("only PNG, JPEG, WEBP and SVG files are allowed", nil)
	}
	if size > MaxIconSize {
		return apperror.NewInvalidInput("max file size is 1MB", nil)
	}
	return nil
}

// SanitizeRichText drops markup that is unsafe to render on the public page.
func SanitizeRichText(html string) string {
	return ugcPolicy.Sanitize(html)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// richtext: non-empty once every tag is stripped.
	if err := v.RegisterValidation("richtext", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(stripPolicy.Sanitize(fl.Field().String())) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "richtext":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
