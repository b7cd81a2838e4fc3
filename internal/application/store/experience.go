package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

// ExperienceStore keeps the work history with the most recent start first.
type ExperienceStore struct {
	*List[experience.Experience]
}

func NewExperienceStore(coll service.Collection[experience.Experience], events service.ContentPublisher, log logger.Logger) *ExperienceStore {
	return &ExperienceStore{NewList(coll,
		func(e experience.Experience) uuid.UUID { return e.ID },
		[]service.Order{
			{Column: experience.ColumnStartDate, Ascending: false},
			{Column: experience.ColumnCreatedAt, Ascending: false},
		},
		experience.Before,
		events, log)}
}

func (s *ExperienceStore) FetchExperiences(ctx context.Context) {
	s.Fetch(ctx)
}

func (s *ExperienceStore) AddExperience(ctx context.Context, in experience.Input) WriteResult {
	if failed, ok := s.valid("add", in); !ok {
		return failed
	}
	return s.Add(ctx, in.Values())
}

func (s *ExperienceStore) UpdateExperience(ctx context.Context, id uuid.UUID, in experience.Input) WriteResult {
	if failed, ok := s.valid("update", in); !ok {
		return failed
	}
	return s.Update(ctx, id, in.Values())
}

func (s *ExperienceStore) DeleteExperience(ctx context.Context, id uuid.UUID) WriteResult {
	return s.Delete(ctx, id)
}

func (s *ExperienceStore) valid(operation string, in experience.Input) (WriteResult, bool) {
	if err := in.EmploymentType.Validate(); err != nil {
		err = apperror.NewInvalidInput("employment type must be one of Intern, Contract, Full-time, Part-time, Freelance", err)
		s.begin()
		s.observe(operation, err)
		return s.fail(err), false
	}
	return WriteResult{}, true
}
