package portfolio

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type PortfolioUseCase struct {
	stores      *store.Stores
	cache       service.SnapshotCache
	ttl         time.Duration
	invalidator *Invalidator
	logger      logger.Logger
}

func NewPortfolioUseCase(stores *store.Stores, cache service.SnapshotCache, ttl time.Duration, log logger.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{
		stores:      stores,
		cache:       cache,
		ttl:         ttl,
		invalidator: NewInvalidator(cache, log),
		logger:      log,
	}
}

// Execute serves the cached snapshot or rebuilds it from the stores. A
// section that fails to load keeps its last known data and is reported in
// Errors; such a snapshot is not cached. Neither is one whose content was
// invalidated while it was being built.
func (uc *PortfolioUseCase) Execute(ctx context.Context) (*service.PortfolioSnapshot, error) {
	cached, err := uc.cache.Get(ctx)
	if err != nil {
		uc.logger.Warn("Snapshot cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	gen, genErr := uc.cache.Generation(ctx)
	if genErr != nil {
		uc.logger.Warn("Snapshot generation read failed, not caching", zap.Error(genErr))
	}

	var wg conc.WaitGroup
	wg.Go(func() { uc.stores.AboutMe.FetchAbout(ctx) })
	wg.Go(func() { uc.stores.SkillsSection.FetchSection(ctx) })
	wg.Go(func() { uc.stores.Skills.FetchSkills(ctx) })
	wg.Go(func() { uc.stores.Experiences.FetchExperiences(ctx) })
	wg.Wait()

	snap := uc.build()
	if len(snap.Errors) > 0 {
		uc.logger.Warn("Portfolio snapshot is partial", zap.Any("errors", snap.Errors))
		return snap, nil
	}

	if genErr != nil {
		return snap, nil
	}
	stored, err := uc.cache.Set(ctx, snap, uc.ttl, gen)
	if err != nil {
		uc.logger.Warn("Snapshot cache write failed", zap.Error(err))
	} else if !stored {
		uc.logger.Debug("Content changed while building the snapshot, not caching")
	}
	return snap, nil
}

func (uc *PortfolioUseCase) Invalidate(ctx context.Context) error {
	return uc.invalidator.Invalidate(ctx)
}

func (uc *PortfolioUseCase) build() *service.PortfolioSnapshot {
	about := uc.stores.AboutMe.Snapshot()
	section := uc.stores.SkillsSection.Snapshot()
	skills := uc.stores.Skills.Snapshot()
	experiences := uc.stores.Experiences.Snapshot()

	snap := &service.PortfolioSnapshot{
		About:       about.Data,
		Section:     section.Data,
		Skills:      skills.Data,
		Experiences: experiences.Data,
		GeneratedAt: time.Now().UTC(),
	}
	for name, msg := range map[string]string{
		aboutme.Table:      about.Error,
		skill.SectionTable: section.Error,
		skill.Table:        skills.Error,
		experience.Table:   experiences.Error,
	} {
		if msg == "" {
			continue
		}
		if snap.Errors == nil {
			snap.Errors = make(map[string]string)
		}
		snap.Errors[name] = msg
	}
	return snap
}

// Invalidator drops the cached snapshot whenever content changes.
type Invalidator struct {
	cache  service.SnapshotCache
	logger logger.Logger
}

func NewInvalidator(cache service.SnapshotCache, log logger.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: log}
}

func (i *Invalidator) Invalidate(ctx context.Context) error {
	return i.cache.Invalidate(ctx)
}

// HandleContentEvent is the content event handler used by the local
// publisher and the Kafka worker.
func (i *Invalidator) HandleContentEvent(ctx context.Context, ev service.ContentEvent) error {
	i.logger.Info("Invalidating portfolio snapshot",
		zap.String("collection", ev.Collection),
		zap.String("action", string(ev.Action)),
		zap.String("id", ev.ID.String()))
	return i.Invalidate(ctx)
}
