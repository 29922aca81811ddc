package detect

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"linkedboost/internal/domain"
)

var (
	simIndustries = []string{"Marketing", "Développement logiciel", "Finance", "Ressources humaines", "Vente", "Consulting"}
	simCompanies  = []string{"TechVision", "InnoSoft", "GlobalCorp", "DataTech", "StratConsult", "MarketPro", "FinanceHub"}
	simLocations  = []string{"Paris, France", "Lyon, France", "Marseille, France", "Bordeaux, France", "Lille, France", "Télétravail"}
	simPositions  = []string{
		"Directeur Marketing",
		"Développeur Senior",
		"Chef de Projet",
		"Responsable RH",
		"Consultant Business",
		"Product Manager",
		"Data Scientist",
		"UX Designer",
		"Responsable Commercial",
		"Directeur Financier",
	}
)

// SimulatedSource generates candidate contacts. A real deployment would
// replace it with a search API client; the shape of what it returns is
// identical.
type SimulatedSource struct {
	Rand *rand.Rand
	Now  func() time.Time
	N    int // number of candidates per call, default 50
}

func NewSimulatedSource(seed int64) *SimulatedSource {
	return &SimulatedSource{Rand: rand.New(rand.NewSource(seed)), Now: time.Now, N: 50}
}

func (s *SimulatedSource) Candidates(ctx context.Context, _ Options) ([]domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n := s.N
	if n <= 0 {
		n = 50
	}

	contacts := make([]domain.Contact, n)
	for i := range contacts {
		company := simCompanies[rng.Intn(len(simCompanies))]
		position := simPositions[rng.Intn(len(simPositions))]

		degree := 3
		if rng.Float64() > 0.3 {
			degree = 2
		}
		mutual := rng.Intn(5)
		if degree == 2 {
			mutual = rng.Intn(15) + 1
		}

		var lastActivity *time.Time
		if rng.Float64() > 0.6 {
			t := now().Add(-time.Duration(rng.Int63n(int64(recentActivityWindow))))
			lastActivity = &t
		}

		contacts[i] = domain.Contact{
			ID:                fmt.Sprintf("contact_%d", i),
			FirstName:         fmt.Sprintf("Prénom%d", i),
			LastName:          fmt.Sprintf("Nom%d", i),
			Headline:          fmt.Sprintf("%s chez %s", position, company),
			Company:           company,
			Position:          position,
			Industry:          simIndustries[rng.Intn(len(simIndustries))],
			Location:          simLocations[rng.Intn(len(simLocations))],
			ConnectionDegree:  degree,
			MutualConnections: mutual,
			LastActivity:      lastActivity,
		}
	}
	return contacts, nil
}
