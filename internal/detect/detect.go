package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"linkedboost/internal/domain"
	"linkedboost/internal/logging"
)

// ProfileSource provides the requester's own profile and 1st-degree
// connections. Satisfied by *linkedin.Client.
type ProfileSource interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
	GetConnections(ctx context.Context, start, count int) ([]domain.Connection, error)
}

// CandidateSource yields candidate contacts to score. In production this
// would be a search/recommendation API; tests and the demo use the simulated
// source in this package.
type CandidateSource interface {
	Candidates(ctx context.Context, opts Options) ([]domain.Contact, error)
}

// Options configures one detection pass. Filter lists boost matching
// candidates rather than excluding others.
type Options struct {
	Industries        []string
	Roles             []string
	Companies         []string
	Keywords          []string
	MinRelevanceScore int  // default 50
	MaxResults        int  // default 20
	ExcludeConnected  bool // drop candidates already in the 1st-degree set
	// Degree filters. When both are false the degree filter is off and both
	// 2nd and 3rd degree candidates pass.
	IncludeSecondDegree bool
	IncludeThirdDegree  bool
	SortBy              string // relevance (default) | recent | mutual
}

func (o Options) minScore() int {
	if o.MinRelevanceScore == 0 {
		return 50
	}
	return o.MinRelevanceScore
}

func (o Options) maxResults() int {
	if o.MaxResults == 0 {
		return 20
	}
	return o.MaxResults
}

func (o Options) includeDegree(degree int) bool {
	if !o.IncludeSecondDegree && !o.IncludeThirdDegree {
		return true
	}
	switch degree {
	case 2:
		return o.IncludeSecondDegree
	case 3:
		return o.IncludeThirdDegree
	}
	return false
}

// Factor weights and raw point values.
const (
	mutualWeight   = 0.3
	industryWeight = 0.25
	roleWeight     = 0.2
	companyWeight  = 0.15
	activityWeight = 0.1

	industryPoints = 25
	rolePoints     = 20
	companyPoints  = 30
	activityPoints = 15

	recentActivityWindow = 7 * 24 * time.Hour
	activeTagWindow      = 2 * 24 * time.Hour
	maxTags              = 5
)

// Detector scores candidate contacts into networking opportunities.
type Detector struct {
	API    ProfileSource
	Source CandidateSource
	Log    *logging.Logger
	Now    func() time.Time
}

func New(api ProfileSource, source CandidateSource, log *logging.Logger) *Detector {
	return &Detector{API: api, Source: source, Log: log, Now: time.Now}
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Detect runs the full detection pipeline and returns the scored, filtered,
// sorted and truncated opportunity list. Unlike DetectOpportunities it
// surfaces pipeline failures to the caller.
func (d *Detector) Detect(ctx context.Context, opts Options) ([]domain.NetworkingOpportunity, error) {
	profile, err := d.API.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	connected := map[string]bool{}
	if opts.ExcludeConnected {
		conns, err := d.API.GetConnections(ctx, 0, 100)
		if err != nil {
			return nil, fmt.Errorf("fetch connections: %w", err)
		}
		for _, c := range conns {
			connected[c.ID] = true
		}
	}

	candidates, err := d.Source.Candidates(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	var scored []domain.NetworkingOpportunity
	for _, c := range candidates {
		if opts.ExcludeConnected && connected[c.ID] {
			continue
		}
		if !opts.includeDegree(c.ConnectionDegree) {
			continue
		}
		opp := d.analyze(c, profile, opts)
		if opp.RelevanceScore >= opts.minScore() {
			scored = append(scored, opp)
		}
	}

	// Stable sort keeps input order on ties.
	switch opts.SortBy {
	case "recent":
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].DetectedAt.After(scored[j].DetectedAt)
		})
	case "mutual":
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].MutualConnections > scored[j].MutualConnections
		})
	default:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		})
	}

	if len(scored) > opts.maxResults() {
		scored = scored[:opts.maxResults()]
	}
	return scored, nil
}

// DetectOpportunities preserves the historical behavior of collapsing any
// pipeline failure into an empty list: callers cannot tell "no matches" from
// "detection broke". Use Detect when the distinction matters.
func (d *Detector) DetectOpportunities(ctx context.Context, opts Options) []domain.NetworkingOpportunity {
	opps, err := d.Detect(ctx, opts)
	if err != nil {
		if d.Log != nil {
			d.Log.Error("opportunity detection failed", "err", err)
		}
		return []domain.NetworkingOpportunity{}
	}
	return opps
}

// analyze scores a single candidate against the requester profile.
func (d *Detector) analyze(contact domain.Contact, profile domain.Profile, opts Options) domain.NetworkingOpportunity {
	now := d.now()
	var factors []domain.RelevanceFactor
	total := 0.0

	mutualRaw := math.Min(float64(contact.MutualConnections*5), 30)
	total += mutualRaw * mutualWeight
	if contact.MutualConnections > 0 {
		factors = append(factors, domain.RelevanceFactor{
			Type:        domain.FactorMutualConnections,
			Description: fmt.Sprintf("%d connexions en commun", contact.MutualConnections),
			Weight:      mutualWeight,
		})
	}

	if contact.Industry != "" && contact.Industry == profile.Industry {
		total += industryPoints * industryWeight
		factors = append(factors, domain.RelevanceFactor{
			Type:        domain.FactorIndustryMatch,
			Description: fmt.Sprintf("Même secteur: %s", contact.Industry),
			Weight:      industryWeight,
		})
	}

	if rolesMatch(contact.Position, profile.Headline) {
		total += rolePoints * roleWeight
		factors = append(factors, domain.RelevanceFactor{
			Type:        domain.FactorSimilarRole,
			Description: "Poste similaire ou complémentaire",
			Weight:      roleWeight,
		})
	}

	if contact.Company != "" && contains(opts.Companies, contact.Company) {
		total += companyPoints * companyWeight
		factors = append(factors, domain.RelevanceFactor{
			Type:        domain.FactorCompanyInterest,
			Description: fmt.Sprintf("Travaille chez %s", contact.Company),
			Weight:      companyWeight,
		})
	}

	if contact.LastActivity != nil && now.Sub(*contact.LastActivity) < recentActivityWindow {
		total += activityPoints * activityWeight
		factors = append(factors, domain.RelevanceFactor{
			Type:        domain.FactorRecentActivity,
			Description: "Activité récente sur LinkedIn",
			Weight:      activityWeight,
		})
	}

	score := int(math.Round(total))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return domain.NetworkingOpportunity{
		ID:                "opp_" + contact.ID,
		ContactID:         contact.ID,
		FirstName:         contact.FirstName,
		LastName:          contact.LastName,
		Headline:          contact.Headline,
		ProfilePicture:    contact.ProfilePicture,
		Company:           contact.Company,
		Position:          contact.Position,
		Location:          contact.Location,
		ConnectionDegree:  contact.ConnectionDegree,
		MutualConnections: contact.MutualConnections,
		RelevanceScore:    score,
		RelevanceFactors:  factors,
		LastActivity:      contact.LastActivity,
		Tags:              generateTags(contact, factors, now),
		Source:            mainSource(factors),
		Status:            "new",
		DetectedAt:        now,
	}
}

var (
	marketingTerms = []string{"marketing", "communication", "brand", "digital", "content", "social media"}
	techTerms      = []string{"developer", "engineer", "tech", "data", "product", "développeur", "ingénieur"}
	salesTerms     = []string{"sales", "business development", "account", "client", "vente", "commercial"}
)

func inBucket(role string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(role, t) {
			return true
		}
	}
	return false
}

// rolesMatch buckets both titles into {marketing, tech, sales} and reports a
// match for the same bucket or for the complementary pairs marketing↔sales
// and tech↔marketing.
func rolesMatch(role1, role2 string) bool {
	if role1 == "" || role2 == "" {
		return false
	}
	r1 := strings.ToLower(role1)
	r2 := strings.ToLower(role2)

	mkt1, mkt2 := inBucket(r1, marketingTerms), inBucket(r2, marketingTerms)
	tech1, tech2 := inBucket(r1, techTerms), inBucket(r2, techTerms)
	sales1, sales2 := inBucket(r1, salesTerms), inBucket(r2, salesTerms)

	return (mkt1 && mkt2) ||
		(tech1 && tech2) ||
		(sales1 && sales2) ||
		(mkt1 && sales2) ||
		(sales1 && mkt2) ||
		(tech1 && mkt2) ||
		(mkt1 && tech2)
}

var factorTags = map[string]string{
	domain.FactorIndustryMatch:     "Même secteur",
	domain.FactorSimilarRole:       "Rôle similaire",
	domain.FactorMutualConnections: "Réseau commun",
	domain.FactorCompanyInterest:   "Entreprise cible",
}

var bigTechNames = []string{"google", "microsoft", "amazon", "apple", "facebook", "meta"}

var decisionMakerTerms = []string{"founder", "ceo", "directeur"}

// generateTags derives descriptive tags, deduplicated in encounter order and
// capped at 5.
func generateTags(contact domain.Contact, factors []domain.RelevanceFactor, now time.Time) []string {
	var tags []string
	for _, f := range factors {
		if tag, ok := factorTags[f.Type]; ok {
			tags = append(tags, tag)
		}
	}

	switch contact.ConnectionDegree {
	case 2:
		tags = append(tags, "2ème degré")
	case 3:
		tags = append(tags, "3ème degré")
	}

	if contact.LastActivity != nil && now.Sub(*contact.LastActivity) < activeTagWindow {
		tags = append(tags, "Actif récemment")
	}

	position := strings.ToLower(contact.Position)
	for _, term := range decisionMakerTerms {
		if strings.Contains(position, term) {
			tags = append(tags, "Décideur")
			break
		}
	}

	if contact.Company != "" {
		company := strings.ToLower(contact.Company)
		for _, name := range bigTechNames {
			if strings.Contains(company, name) {
				tags = append(tags, "GAFAM")
				break
			}
		}
	}

	seen := map[string]bool{}
	out := tags[:0]
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		out = out[:maxTags]
	}
	return out
}

var factorSources = map[string]domain.OpportunitySource{
	domain.FactorMutualConnections: domain.SourceMutualConnections,
	domain.FactorIndustryMatch:     domain.SourceIndustryMatch,
	domain.FactorSimilarRole:       domain.SourceSimilarRole,
	domain.FactorCompanyInterest:   domain.SourceCompanyInterest,
	domain.FactorRecentActivity:    domain.SourceContentEngagement,
	domain.FactorViewedProfile:     domain.SourceViewedProfile,
}

// mainSource is the source of the highest-weight factor, or ai_recommendation
// when the candidate has none.
func mainSource(factors []domain.RelevanceFactor) domain.OpportunitySource {
	if len(factors) == 0 {
		return domain.SourceAIRecommendation
	}
	sorted := make([]domain.RelevanceFactor, len(factors))
	copy(sorted, factors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })
	if src, ok := factorSources[sorted[0].Type]; ok {
		return src
	}
	return domain.SourceAIRecommendation
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
