package scorecard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/margin/internal/clients/research"
	"github.com/aristath/margin/internal/domain"
	"github.com/aristath/margin/internal/modules/fundamentals"
)

// ResearchProvider rates qualitative criteria for a symbol. Implemented
// by the research backend client and the direct Claude researcher.
type ResearchProvider interface {
	Research(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error)
}

// Service builds Fisher scorecards.
type Service struct {
	stocks   *fundamentals.Service
	provider ResearchProvider
	cache    *research.Cache
	log      zerolog.Logger
}

// NewService creates a scorecard service.
func NewService(stocks *fundamentals.Service, provider ResearchProvider, cache *research.Cache, log zerolog.Logger) *Service {
	return &Service{
		stocks:   stocks,
		provider: provider,
		cache:    cache,
		log:      log.With().Str("service", "scorecard").Logger(),
	}
}

// GetScorecard assembles the full 15-criterion scorecard for a symbol:
// fundamentals-derived ratings for criteria 1 and 5, research-backed
// ratings for the rest, merged in id order. Research results come from
// the cache when fresh.
func (s *Service) GetScorecard(ctx context.Context, symbol string) (*domain.Scorecard, error) {
	data, err := s.stocks.GetStockData(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quantitative := QuantitativeCriteria(data, now)

	researched, err := s.cache.GetOrFetch(ctx, data.Symbol, domain.ResearchCriterionIDs, func(ctx context.Context) (*domain.ResearchResponse, error) {
		return s.provider.Research(ctx, domain.ResearchRequest{
			Symbol:             data.Symbol,
			CompanyName:        data.CompanyName,
			CriteriaToResearch: domain.ResearchCriterionIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	card := merge(data, quantitative, researched.Ratings, now)

	s.log.Info().
		Str("symbol", card.Symbol).
		Float64("overall_score", card.OverallScore).
		Msg("Scorecard assembled")

	return card, nil
}

// InvalidateResearch drops cached research for a symbol so the next
// scorecard request re-researches it. Returns the number of cache
// entries removed.
func (s *Service) InvalidateResearch(symbol string) int {
	return s.cache.Invalidate(symbol)
}

// merge fills the 15-criterion template: exactly one entry per id, in
// id order. Criteria the provider did not rate stay unrated rather than
// being dropped, so the scorecard shape is always complete.
func merge(data *domain.StockData, quantitative []domain.Criterion, ratings []domain.CriterionRating, now time.Time) *domain.Scorecard {
	byID := make(map[int]domain.Criterion, len(domain.FisherCriteriaTemplate))
	for _, c := range quantitative {
		byID[c.ID] = c
	}

	for _, r := range ratings {
		spec, ok := domain.FisherCriterionByID(r.CriterionID)
		if !ok {
			continue
		}
		// Research never overrides a formula-derived rating.
		if _, exists := byID[r.CriterionID]; exists {
			continue
		}
		rating := r.Rating
		byID[r.CriterionID] = domain.Criterion{
			ID:            spec.ID,
			Title:         spec.Title,
			Description:   spec.Description,
			Category:      spec.Category,
			Rating:        &rating,
			Justification: r.Justification,
			DataSource:    domain.SourceResearch,
			Confidence:    domain.Confidence(r.Confidence),
			Sources:       r.Sources,
			LastUpdated:   now,
		}
	}

	criteria := make([]domain.Criterion, 0, len(domain.FisherCriteriaTemplate))
	var present []float64
	for _, spec := range domain.FisherCriteriaTemplate {
		c, ok := byID[spec.ID]
		if !ok {
			c = domain.Criterion{
				ID:          spec.ID,
				Title:       spec.Title,
				Description: spec.Description,
				Category:    spec.Category,
				DataSource:  spec.DataSource,
				Sources:     []string{},
			}
		}
		if c.Rating != nil {
			present = append(present, float64(*c.Rating))
		}
		criteria = append(criteria, c)
	}

	overall := 0.0
	if len(present) > 0 {
		overall = stat.Mean(present, nil)
	}

	return &domain.Scorecard{
		Symbol:       data.Symbol,
		CompanyName:  data.CompanyName,
		OverallScore: overall,
		Criteria:     criteria,
		CreatedAt:    now,
		LastUpdated:  now,
	}
}
