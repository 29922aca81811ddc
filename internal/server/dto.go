package server

import (
	"time"

	"linkedboost/internal/domain"
)

// DetectRequest carries the detection filters.
type DetectRequest struct {
	Industries          []string `json:"industries,omitempty"`
	Roles               []string `json:"roles,omitempty"`
	Companies           []string `json:"companies,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	MinRelevanceScore   int      `json:"min_relevance_score,omitempty" minimum:"0" maximum:"100"`
	MaxResults          int      `json:"max_results,omitempty" minimum:"0"`
	ExcludeConnected    bool     `json:"exclude_connected,omitempty"`
	IncludeSecondDegree bool     `json:"include_second_degree,omitempty"`
	IncludeThirdDegree  bool     `json:"include_third_degree,omitempty"`
	SortBy              string   `json:"sort_by,omitempty" enum:",relevance,recent,mutual"`
}

type AutomationRequest struct {
	Name        string                    `json:"name" minLength:"1"`
	Description string                    `json:"description,omitempty"`
	Type        domain.AutomationType     `json:"type" enum:"messages,connections,engagement,content,monitoring"`
	Status      domain.AutomationStatus   `json:"status,omitempty" enum:",active,paused,scheduled"`
	Target      domain.AutomationTarget   `json:"target"`
	Content     string                    `json:"content,omitempty"`
	Schedule    domain.AutomationSchedule `json:"schedule"`
}

type AutomationUpdateRequest struct {
	Name        *string                    `json:"name,omitempty"`
	Description *string                    `json:"description,omitempty"`
	Status      *domain.AutomationStatus   `json:"status,omitempty" enum:"active,paused,scheduled"`
	Content     *string                    `json:"content,omitempty"`
	Target      *domain.AutomationTarget   `json:"target,omitempty"`
	Schedule    *domain.AutomationSchedule `json:"schedule,omitempty"`
}

type OpportunityListResponse struct {
	Items []domain.NetworkingOpportunity `json:"items"`
	Count int                            `json:"count"`
}

type AutomationListResponse struct {
	Items []domain.Automation `json:"items"`
	Count int                 `json:"count"`
}

type ConnectionListResponse struct {
	Items []domain.Connection `json:"items"`
	Count int                 `json:"count"`
}

type EventListResponse struct {
	Items []domain.Event `json:"items"`
	Count int            `json:"count"`
}

type ExecutionResponse struct {
	Success          bool              `json:"success"`
	ActionsPerformed int               `json:"actions_performed"`
	Errors           []string          `json:"errors,omitempty"`
	Automation       domain.Automation `json:"automation"`
}

type StatusResponse struct {
	Automations   map[string]int `json:"automations"`
	Opportunities map[string]int `json:"opportunities"`
	Connections   int            `json:"connections"`
}

type LimitsResponse struct {
	Used      int       `json:"used"`
	Total     int       `json:"total"`
	ResetTime time.Time `json:"reset_time" format:"date-time"`
}
