package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/asset"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

// AssetUploader stores an icon and returns its public URL.
type AssetUploader interface {
	Execute(ctx context.Context, f asset.File) (string, error)
}

type SkillsSectionStore struct {
	*Singleton[skill.Section]
	now func() time.Time
}

func NewSkillsSectionStore(coll service.Collection[skill.Section], events service.ContentPublisher, log logger.Logger) *SkillsSectionStore {
	return &SkillsSectionStore{
		Singleton: NewSingleton(coll, func(s skill.Section) uuid.UUID { return s.ID }, events, log),
		now:       time.Now,
	}
}

func (s *SkillsSectionStore) FetchSection(ctx context.Context) {
	s.Fetch(ctx)
}

func (s *SkillsSectionStore) UpdateSection(ctx context.Context, title, description string) WriteResult {
	return s.Upsert(ctx, skill.SectionValues(title, description, s.now().UTC()))
}

// SkillIconsStore keeps the skills ordered by creation time.
type SkillIconsStore struct {
	*List[skill.Skill]
	assets AssetUploader
}

func NewSkillIconsStore(coll service.Collection[skill.Skill], assets AssetUploader, events service.ContentPublisher, log logger.Logger) *SkillIconsStore {
	return &SkillIconsStore{
		List: NewList(coll,
			func(s skill.Skill) uuid.UUID { return s.ID },
			[]service.Order{{Column: skill.ColumnCreatedAt, Ascending: true}},
			func(a, b skill.Skill) bool { return a.CreatedAt.Before(b.CreatedAt) },
			events, log),
		assets: assets,
	}
}

func (s *SkillIconsStore) FetchSkills(ctx context.Context) {
	s.Fetch(ctx)
}

// AddSkill uploads the optional icon first. A failed upload aborts the
// insert and reports status 0.
func (s *SkillIconsStore) AddSkill(ctx context.Context, name string, icon *asset.File) WriteResult {
	iconURL, failed, ok := s.upload(ctx, "add", icon)
	if !ok {
		return failed
	}
	return s.Add(ctx, skill.Values(name, iconURL))
}

// UpdateSkill renames the skill and, when icon is given, replaces its icon.
// Without a new icon the stored URL is kept.
func (s *SkillIconsStore) UpdateSkill(ctx context.Context, id uuid.UUID, name string, icon *asset.File) WriteResult {
	iconURL, failed, ok := s.upload(ctx, "update", icon)
	if !ok {
		return failed
	}
	return s.Update(ctx, id, skill.Values(name, iconURL))
}

func (s *SkillIconsStore) DeleteSkill(ctx context.Context, id uuid.UUID) WriteResult {
	return s.Delete(ctx, id)
}

func (s *SkillIconsStore) upload(ctx context.Context, operation string, icon *asset.File) (*string, WriteResult, bool) {
	if icon == nil {
		return nil, WriteResult{}, true
	}
	s.begin()
	url, err := s.assets.Execute(ctx, *icon)
	if err != nil {
		s.observe(operation, err)
		return nil, s.fail(err), false
	}
	return &url, WriteResult{}, true
}
