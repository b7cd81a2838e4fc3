package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type AboutMeStore struct {
	*Singleton[aboutme.AboutMe]
}

func NewAboutMeStore(coll service.Collection[aboutme.AboutMe], events service.ContentPublisher, log logger.Logger) *AboutMeStore {
	return &AboutMeStore{NewSingleton(coll, func(a aboutme.AboutMe) uuid.UUID { return a.ID }, events, log)}
}

func (s *AboutMeStore) FetchAbout(ctx context.Context) {
	s.Fetch(ctx)
}

// UpdateAbout replaces the about-me block, creating it on first use.
func (s *AboutMeStore) UpdateAbout(ctx context.Context, in aboutme.Input) WriteResult {
	return s.Upsert(ctx, in.Values())
}
