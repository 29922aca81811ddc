package detect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"linkedboost/internal/domain"
)

type fakeAPI struct {
	profile domain.Profile
	conns   []domain.Connection
	err     error
}

func (f fakeAPI) GetProfile(ctx context.Context) (domain.Profile, error) {
	return f.profile, f.err
}

func (f fakeAPI) GetConnections(ctx context.Context, start, count int) ([]domain.Connection, error) {
	return f.conns, f.err
}

type staticSource struct {
	contacts []domain.Contact
	err      error
}

func (s staticSource) Candidates(ctx context.Context, _ Options) ([]domain.Contact, error) {
	return s.contacts, s.err
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func newTestDetector(api ProfileSource, src CandidateSource) *Detector {
	d := New(api, src, nil)
	d.Now = fixedNow
	return d
}

func marketingProfile() domain.Profile {
	return domain.Profile{
		ID:       "abc123",
		Headline: "Chef de Projet Marketing Digital",
		Industry: "Marketing",
	}
}

func TestAnalyzeWorkedExample(t *testing.T) {
	recent := fixedNow().Add(-3 * 24 * time.Hour)
	contact := domain.Contact{
		ID:                "contact_1",
		FirstName:         "Prénom1",
		LastName:          "Nom1",
		Industry:          "Marketing",
		Position:          "Data Scientist",
		ConnectionDegree:  2,
		MutualConnections: 5,
		LastActivity:      &recent,
	}

	d := newTestDetector(fakeAPI{}, staticSource{})
	opp := d.analyze(contact, marketingProfile(), Options{})

	// min(5*5,30)*0.3 + 25*0.25 + 15*0.1 = 7.5 + 6.25 + 1.5 = 15.25
	if opp.RelevanceScore != 15 {
		t.Fatalf("score = %d, want 15", opp.RelevanceScore)
	}
	if len(opp.RelevanceFactors) != 3 {
		t.Fatalf("factors = %d, want 3", len(opp.RelevanceFactors))
	}
	if opp.Source != domain.SourceMutualConnections {
		t.Fatalf("source = %s, want mutual_connections", opp.Source)
	}
	if opp.ID != "opp_contact_1" {
		t.Fatalf("id = %s", opp.ID)
	}
	if !opp.DetectedAt.Equal(fixedNow()) {
		t.Fatalf("detectedAt = %v", opp.DetectedAt)
	}
}

func TestAnalyzeNoFactors(t *testing.T) {
	d := newTestDetector(fakeAPI{}, staticSource{})
	opp := d.analyze(domain.Contact{ID: "c1", ConnectionDegree: 3}, marketingProfile(), Options{})

	if opp.RelevanceScore != 0 {
		t.Fatalf("score = %d, want 0", opp.RelevanceScore)
	}
	if len(opp.RelevanceFactors) != 0 {
		t.Fatalf("factors = %d, want 0", len(opp.RelevanceFactors))
	}
	if opp.Source != domain.SourceAIRecommendation {
		t.Fatalf("source = %s, want ai_recommendation", opp.Source)
	}
}

func TestAnalyzeSimilarRoleAndCompany(t *testing.T) {
	contact := domain.Contact{
		ID:       "c2",
		Company:  "TechVision",
		Position: "Responsable Commercial",
	}
	d := newTestDetector(fakeAPI{}, staticSource{})
	opp := d.analyze(contact, marketingProfile(), Options{Companies: []string{"TechVision"}})

	// complementary sales<->marketing: 20*0.2 + company 30*0.15 = 4 + 4.5 = 8.5
	if opp.RelevanceScore != 9 {
		t.Fatalf("score = %d, want 9", opp.RelevanceScore)
	}
	if opp.Source != domain.SourceSimilarRole {
		t.Fatalf("source = %s, want similar_role", opp.Source)
	}
}

func TestAnalyzeIdempotentWithFixedClock(t *testing.T) {
	recent := fixedNow().Add(-24 * time.Hour)
	contact := domain.Contact{
		ID:                "c3",
		Industry:          "Marketing",
		MutualConnections: 12,
		ConnectionDegree:  2,
		LastActivity:      &recent,
	}
	d := newTestDetector(fakeAPI{}, staticSource{})
	a := d.analyze(contact, marketingProfile(), Options{})
	b := d.analyze(contact, marketingProfile(), Options{})
	if a.RelevanceScore != b.RelevanceScore || a.Source != b.Source {
		t.Fatalf("repeated analysis diverged: %d/%s vs %d/%s", a.RelevanceScore, a.Source, b.RelevanceScore, b.Source)
	}
}

func TestRolesMatch(t *testing.T) {
	cases := []struct {
		role1, role2 string
		want         bool
	}{
		{"Directeur Marketing", "Responsable Brand", true},
		{"Développeur Senior", "Data Engineer", true},
		{"Responsable Commercial", "Account Manager", true},
		{"Directeur Marketing", "Responsable Commercial", true},
		{"Développeur Senior", "Directeur Marketing", true},
		{"Développeur Senior", "Responsable Commercial", false},
		{"Responsable RH", "Directeur Marketing", false},
		{"", "Directeur Marketing", false},
	}
	for _, c := range cases {
		if got := rolesMatch(c.role1, c.role2); got != c.want {
			t.Errorf("rolesMatch(%q, %q) = %v, want %v", c.role1, c.role2, got, c.want)
		}
	}
}

func TestGenerateTags(t *testing.T) {
	now := fixedNow()
	active := now.Add(-12 * time.Hour)
	contact := domain.Contact{
		ID:               "c4",
		Company:          "Google France",
		Position:         "Directeur Marketing",
		ConnectionDegree: 2,
		LastActivity:     &active,
	}
	factors := []domain.RelevanceFactor{
		{Type: domain.FactorIndustryMatch, Weight: industryWeight},
		{Type: domain.FactorSimilarRole, Weight: roleWeight},
	}

	tags := generateTags(contact, factors, now)
	if len(tags) != maxTags {
		t.Fatalf("tags = %v, want %d entries", tags, maxTags)
	}
	want := []string{"Même secteur", "Rôle similaire", "2ème degré", "Actif récemment", "Décideur"}
	for i, w := range want {
		if tags[i] != w {
			t.Fatalf("tags[%d] = %q, want %q (all: %v)", i, tags[i], w, tags)
		}
	}
}

func TestGenerateTagsDeduplicates(t *testing.T) {
	factors := []domain.RelevanceFactor{
		{Type: domain.FactorIndustryMatch, Weight: industryWeight},
		{Type: domain.FactorIndustryMatch, Weight: industryWeight},
	}
	tags := generateTags(domain.Contact{ID: "c5"}, factors, fixedNow())
	if len(tags) != 1 || tags[0] != "Même secteur" {
		t.Fatalf("tags = %v, want single Même secteur", tags)
	}
}

func TestDetectFiltersScoresAndSorts(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "low", ConnectionDegree: 2, MutualConnections: 1},
		{ID: "high", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 10},
		{ID: "mid", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 2},
	}
	d := newTestDetector(fakeAPI{profile: marketingProfile()}, staticSource{contacts: contacts})

	opps, err := d.Detect(context.Background(), Options{MinRelevanceScore: 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opps))
	}
	if opps[0].ContactID != "high" || opps[1].ContactID != "mid" {
		t.Fatalf("order = %s, %s; want high, mid", opps[0].ContactID, opps[1].ContactID)
	}
	if opps[0].RelevanceScore < opps[1].RelevanceScore {
		t.Fatalf("not sorted by score desc: %d < %d", opps[0].RelevanceScore, opps[1].RelevanceScore)
	}
}

func TestDetectSortByMutual(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "a", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 2},
		{ID: "b", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 14},
	}
	d := newTestDetector(fakeAPI{profile: marketingProfile()}, staticSource{contacts: contacts})

	opps, err := d.Detect(context.Background(), Options{MinRelevanceScore: 1, SortBy: "mutual"})
	if err != nil {
		t.Fatal(err)
	}
	if opps[0].ContactID != "b" {
		t.Fatalf("first = %s, want b", opps[0].ContactID)
	}
}

func TestDetectMaxResults(t *testing.T) {
	var contacts []domain.Contact
	for i := 0; i < 30; i++ {
		contacts = append(contacts, domain.Contact{
			ID:                fmt.Sprintf("c%d", i),
			Industry:          "Marketing",
			ConnectionDegree:  2,
			MutualConnections: 6,
		})
	}
	d := newTestDetector(fakeAPI{profile: marketingProfile()}, staticSource{contacts: contacts})

	opps, err := d.Detect(context.Background(), Options{MinRelevanceScore: 1, MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 5 {
		t.Fatalf("opportunities = %d, want 5", len(opps))
	}
}

func TestDetectExcludeConnected(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "conn_0", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 6},
		{ID: "fresh", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 6},
	}
	api := fakeAPI{
		profile: marketingProfile(),
		conns:   []domain.Connection{{ID: "conn_0"}},
	}
	d := newTestDetector(api, staticSource{contacts: contacts})

	opps, err := d.Detect(context.Background(), Options{MinRelevanceScore: 1, ExcludeConnected: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 1 || opps[0].ContactID != "fresh" {
		t.Fatalf("opportunities = %+v, want only fresh", opps)
	}
}

func TestDetectDegreeFilter(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "second", Industry: "Marketing", ConnectionDegree: 2, MutualConnections: 6},
		{ID: "third", Industry: "Marketing", ConnectionDegree: 3, MutualConnections: 6},
	}
	d := newTestDetector(fakeAPI{profile: marketingProfile()}, staticSource{contacts: contacts})

	opps, err := d.Detect(context.Background(), Options{MinRelevanceScore: 1, IncludeSecondDegree: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 1 || opps[0].ContactID != "second" {
		t.Fatalf("opportunities = %+v, want only second", opps)
	}

	// Both flags off means the degree filter is disabled.
	opps, err = d.Detect(context.Background(), Options{MinRelevanceScore: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(opps) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opps))
	}
}

func TestDetectOpportunitiesCollapsesErrors(t *testing.T) {
	d := newTestDetector(fakeAPI{err: fmt.Errorf("jeton d'accès manquant")}, staticSource{})
	opps := d.DetectOpportunities(context.Background(), Options{})
	if opps == nil || len(opps) != 0 {
		t.Fatalf("opportunities = %v, want empty non-nil slice", opps)
	}
}

func TestDetectPropagatesErrors(t *testing.T) {
	d := newTestDetector(fakeAPI{err: fmt.Errorf("boom")}, staticSource{})
	if _, err := d.Detect(context.Background(), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSimulatedSourceDeterministic(t *testing.T) {
	a, err := NewSimulatedSource(42).Candidates(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSimulatedSource(42).Candidates(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 50 || len(b) != 50 {
		t.Fatalf("candidates = %d/%d, want 50", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Company != b[i].Company || a[i].MutualConnections != b[i].MutualConnections {
			t.Fatalf("candidate %d diverged between seeded runs", i)
		}
	}
	for _, c := range a {
		if c.ConnectionDegree != 2 && c.ConnectionDegree != 3 {
			t.Fatalf("degree = %d", c.ConnectionDegree)
		}
		if c.ConnectionDegree == 2 && c.MutualConnections < 1 {
			t.Fatalf("2nd degree contact without mutual connections")
		}
	}
}
