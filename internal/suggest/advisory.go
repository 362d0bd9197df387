package suggest

import (
	"context"

	"go.uber.org/zap"

	"github.com/poi-recon/internal/match"
)

// Advisor is an external, non-reproducible suggestion collaborator (e.g. a
// generative model). Its output carries no correctness guarantees and must
// pass through the same human-confirmation flow as any other suggestion.
type Advisor interface {
	Propose(ctx context.Context, src match.SourceEntity, candidates []match.ListingEntity) ([]Suggestion, error)
}

// Advisory wraps an Advisor with a deterministic fallback: if the advisor
// errors or returns nothing, the deterministic ranking answers instead.
type Advisory struct {
	advisor  Advisor
	fallback *Deterministic
	log      *zap.Logger
}

// NewAdvisory creates the advisory suggester. log may be nil.
func NewAdvisory(advisor Advisor, fallback *Deterministic, log *zap.Logger) *Advisory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Advisory{advisor: advisor, fallback: fallback, log: log}
}

// Suggest asks the advisor first and falls back to the deterministic ranking
// on error or empty result.
func (a *Advisory) Suggest(ctx context.Context, src match.SourceEntity, candidates []match.ListingEntity) ([]Suggestion, error) {
	if a.advisor != nil {
		results, err := a.advisor.Propose(ctx, src, candidates)
		if err == nil && len(results) > 0 {
			return results, nil
		}
		if err != nil {
			a.log.Warn("advisory suggester failed, using deterministic fallback",
				zap.String("source", src.Name), zap.Error(err))
		}
	}
	return a.fallback.Suggest(ctx, src, candidates)
}
