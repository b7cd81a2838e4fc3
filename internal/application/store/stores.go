package store

import (
	"context"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type Deps struct {
	AboutMe        service.Collection[aboutme.AboutMe]
	SkillsSection  service.Collection[skill.Section]
	Skills         service.Collection[skill.Skill]
	Experiences    service.Collection[experience.Experience]
	Assets         AssetUploader
	Auth           service.AuthProvider
	SessionStorage session.Storage
	Events         service.ContentPublisher
	Logger         logger.Logger
}

// Stores is the process-wide set of content stores.
type Stores struct {
	AboutMe       *AboutMeStore
	SkillsSection *SkillsSectionStore
	Skills        *SkillIconsStore
	Experiences   *ExperienceStore
	Session       *SessionStore
}

func New(ctx context.Context, d Deps) *Stores {
	return &Stores{
		AboutMe:       NewAboutMeStore(d.AboutMe, d.Events, d.Logger),
		SkillsSection: NewSkillsSectionStore(d.SkillsSection, d.Events, d.Logger),
		Skills:        NewSkillIconsStore(d.Skills, d.Assets, d.Events, d.Logger),
		Experiences:   NewExperienceStore(d.Experiences, d.Events, d.Logger),
		Session:       NewSessionStore(ctx, d.Auth, d.SessionStorage, d.Logger),
	}
}

func (s *Stores) Close() {
	s.Session.Close()
}
