package service

import (
	"context"
	"time"

	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
)

// PortfolioSnapshot is everything the public portfolio page renders.
type PortfolioSnapshot struct {
	About       *aboutme.AboutMe        `json:"about"`
	Section     *skill.Section          `json:"skills_section"`
	Skills      []skill.Skill           `json:"skills"`
	Experiences []experience.Experience `json:"experiences"`
	Errors      map[string]string       `json:"errors,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// SnapshotCache holds the last complete snapshot. Get returns nil on a miss.
//
// Every Invalidate bumps a generation counter. Set stores the snapshot only
// while the generation still equals the one read before the snapshot was
// built, so a rebuild racing a content change never repopulates stale data.
type SnapshotCache interface {
	Get(ctx context.Context) (*PortfolioSnapshot, error)
	Generation(ctx context.Context) (uint64, error)
	Set(ctx context.Context, s *PortfolioSnapshot, ttl time.Duration, generation uint64) (stored bool, err error)
	Invalidate(ctx context.Context) error
}
