// Package llm rates Fisher scorecard criteria by asking Claude directly,
// as an alternative to the dedicated research backend. It trades the
// backend's web-grounded research for a single model call.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/domain"
)

const (
	requestTimeout = 3 * time.Minute
	maxTokens      = 8192
)

// ClaudeResearcher rates qualitative criteria with the Anthropic API.
type ClaudeResearcher struct {
	client anthropic.Client
	model  string
	log    zerolog.Logger
}

// NewClaudeResearcher creates a Claude-backed research provider.
func NewClaudeResearcher(apiKey, model string, log zerolog.Logger) (*ClaudeResearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &ClaudeResearcher{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		log:    log.With().Str("client", "claude").Logger(),
	}, nil
}

// Research rates the requested criteria in one model call. When the
// model's answer cannot be parsed, every requested criterion falls back
// to a neutral low-confidence rating rather than failing the scorecard.
func (r *ClaudeResearcher) Research(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := buildResearchPrompt(req)

	r.log.Info().
		Str("symbol", req.Symbol).
		Ints("criteria", req.CriteriaToResearch).
		Str("model", r.model).
		Msg("Requesting criterion ratings from Claude")

	start := time.Now()
	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	ratings := parseRatings(text.String(), req.CriteriaToResearch, r.log)

	r.log.Info().
		Str("symbol", req.Symbol).
		Int("ratings", len(ratings)).
		Dur("elapsed", time.Since(start)).
		Msg("Claude research complete")

	return &domain.ResearchResponse{
		Symbol:       req.Symbol,
		Ratings:      ratings,
		ResearchDate: time.Now(),
		ModelUsed:    r.model,
	}, nil
}

// buildResearchPrompt assembles the analyst prompt: one block per
// criterion with its question and research guidance, then the output
// contract.
func buildResearchPrompt(req domain.ResearchRequest) string {
	var criteriaPrompts []string
	for i, id := range req.CriteriaToResearch {
		spec, ok := domain.FisherCriterionByID(id)
		if !ok {
			continue
		}
		criteriaPrompts = append(criteriaPrompts, fmt.Sprintf(`
%d. **%s** (ID: %d)
   Question: %s

   Research Requirements:
   %s

   Provide:
   - Rating: 1-5 (1=Poor, 2=Below Average, 3=Average, 4=Good, 5=Excellent)
   - Justification: 2-3 sentences explaining the rating
   - Key Findings: 2-4 bullet points with specific data/facts
   - Sources: List of information sources (URLs, reports, etc.)
   - Confidence: high/medium/low based on data availability
`, i+1, spec.Title, spec.ID, spec.Description, researchGuidance(id)))
	}

	return fmt.Sprintf(`You are a professional investment analyst researching %s (%s) using Philip Fisher's "Scuttlebutt" methodology.

Please research the following investment criteria and provide STRUCTURED, DATA-DRIVEN analysis:

%s

IMPORTANT INSTRUCTIONS:
1. Use recent information (last 2-3 years preferred)
2. Compare against industry peers when possible
3. Be objective - acknowledge both strengths and weaknesses
4. Cite specific data points, numbers, and facts
5. If information is limited, state this clearly and lower confidence

OUTPUT FORMAT (JSON):
Return ONLY valid JSON in this exact structure:
{
  "ratings": [
    {
      "criterionId": 2,
      "rating": 4,
      "justification": "Management shows strong determination...",
      "keyFindings": [
        "CEO has 10+ years tenure",
        "Launched 3 new product lines in 2 years",
        "R&D budget increased 25%% YoY"
      ],
      "sources": [
        "2024 Annual Report",
        "Q3 2024 Earnings Call"
      ],
      "confidence": "high"
    }
  ]
}

Research %s (%s) NOW and return the JSON.`,
		req.CompanyName, req.Symbol,
		strings.Join(criteriaPrompts, "\n---\n"),
		req.CompanyName, req.Symbol)
}

// researchGuidance returns criterion-specific research directions.
func researchGuidance(criterionID int) string {
	guidance := map[int]string{
		2: `- Review CEO/executive statements about growth strategy
   - Check number of new products/markets entered recently
   - Look for R&D investments and innovation initiatives
   - Assess strategic acquisitions or partnerships`,
		3: `- Find R&D spending as percentage of revenue
   - Count patents filed or products launched
   - Compare R&D efficiency to competitors
   - Review innovation track record`,
		4: `- Check revenue growth vs industry average
   - Look for customer satisfaction scores/reviews
   - Find market share changes
   - Review sales team size and structure`,
		6: `- Analyze operating margin trends (3-5 years)
   - Check for cost reduction initiatives
   - Look for pricing power or premium positioning
   - Review operational efficiency improvements`,
		7: `- Search Glassdoor ratings and employee reviews
   - Look for labor disputes or unionization efforts
   - Check employee retention/turnover data
   - Review company culture awards or recognition`,
		8: `- Research executive tenure and stability
   - Check for succession planning mentions
   - Look for insider trading patterns
   - Review executive compensation alignment`,
		9: `- Count number of C-suite and VP-level executives
   - Check backgrounds and experience depth
   - Look for management bench strength
   - Review organizational structure`,
		10: `- Review financial reporting quality and transparency
   - Check for accounting restatements or irregularities
   - Look for detailed cost breakdowns in reports
   - Assess auditor opinions and internal controls
   - Review operating expense management trends`,
		11: `- Identify industry-specific competitive advantages
   - Look for patents, licenses, or regulatory moats
   - Check brand strength or market position
   - Review unique assets or capabilities`,
		12: `- Analyze management statements about long-term goals
   - Check capital allocation priorities
   - Review investment in future vs short-term profits
   - Look for guidance and planning horizons`,
		13: `- Review historical equity dilution patterns
   - Check debt-to-equity ratio and financing strategy
   - Look for recent stock issuances or buybacks
   - Assess cash flow adequacy for growth`,
		14: `- Review transparency in earnings calls and reports
   - Check how management handled past setbacks
   - Look for clarity in guidance and communication
   - Assess investor relations accessibility`,
		15: `- Search for any legal or regulatory issues
   - Check for accounting restatements or auditor changes
   - Review executive conduct and ethics
   - Look for related-party transactions or conflicts`,
	}
	if g, ok := guidance[criterionID]; ok {
		return g
	}
	return "- Research thoroughly using public sources"
}

// parseRatings decodes the model's JSON answer, stripping markdown code
// fences first. On any parse failure it returns neutral 3/5 ratings at
// low confidence for every requested criterion.
func parseRatings(text string, requested []int, log zerolog.Logger) []domain.CriterionRating {
	jsonText := stripCodeFences(strings.TrimSpace(text))

	var parsed struct {
		Ratings []domain.CriterionRating `json:"ratings"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil || len(parsed.Ratings) == 0 {
		log.Warn().Err(err).Int("response_length", len(text)).Msg("Failed to parse model response, falling back to neutral ratings")
		return neutralRatings(requested)
	}

	return parsed.Ratings
}

func stripCodeFences(s string) string {
	if strings.HasPrefix(s, "```json") {
		s = strings.Replace(s, "```json", "", 1)
	} else if strings.HasPrefix(s, "```") {
		s = strings.Replace(s, "```", "", 1)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func neutralRatings(requested []int) []domain.CriterionRating {
	ratings := make([]domain.CriterionRating, 0, len(requested))
	for _, id := range requested {
		ratings = append(ratings, domain.CriterionRating{
			CriterionID:   id,
			Rating:        3,
			Justification: "Unable to complete research. Please try again or research manually.",
			KeyFindings:   []string{"Research failed - data unavailable"},
			Sources:       []string{},
			Confidence:    "low",
		})
	}
	return ratings
}
