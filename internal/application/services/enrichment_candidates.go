package services

import (
	"context"
	"time"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
)

const (
	// defaultCandidateBatch caps each candidate query when no limit is given
	defaultCandidateBatch = 50

	// retryCooldown is how long a failed plant waits before it is retried
	retryCooldown = 24 * time.Hour
)

// CandidateSelector finds plants that need enrichment
type CandidateSelector struct {
	plants repositories.PlantRepository
	now    func() time.Time
}

// NewCandidateSelector creates a candidate selector
func NewCandidateSelector(plants repositories.PlantRepository) *CandidateSelector {
	return &CandidateSelector{plants: plants, now: time.Now}
}

// GetPlantsNeedingEnrichment returns plants that were never enriched first,
// then plants whose enrichment is incomplete and out of cooldown. Each group
// is capped at half of limit (at least one). A negative limit means no limit.
func (s *CandidateSelector) GetPlantsNeedingEnrichment(ctx context.Context, limit int) ([]*entities.Plant, error) {
	if limit == 0 {
		return []*entities.Plant{}, nil
	}

	perSet := defaultCandidateBatch
	if limit > 0 {
		perSet = max(1, limit/2)
	}

	fresh, err := s.plants.ListWithoutEnrichment(ctx, perSet)
	if err != nil {
		return nil, err
	}
	retries, err := s.plants.ListIncompleteEnrichment(ctx, s.now().Add(-retryCooldown), perSet)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(fresh)+len(retries))
	candidates := make([]*entities.Plant, 0, len(fresh)+len(retries))
	for _, group := range [][]*entities.Plant{fresh, retries} {
		for _, plant := range group {
			if _, dup := seen[plant.ID]; dup {
				continue
			}
			seen[plant.ID] = struct{}{}
			candidates = append(candidates, plant)
		}
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
