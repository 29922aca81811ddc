package domain

import "time"

// Profile is the requesting user's own LinkedIn profile, used as the
// comparison basis for industry and role matching.
type Profile struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Headline       string `json:"headline,omitempty"`
	Industry       string `json:"industry,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Email          string `json:"email,omitempty"`
	VanityName     string `json:"vanity_name,omitempty"`
}

// Connection is a 1st-degree contact of the requester.
type Connection struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Headline         string     `json:"headline,omitempty"`
	ProfilePicture   string     `json:"profile_picture,omitempty"`
	ConnectionDegree int        `json:"connection_degree,omitempty"`
	DateConnected    *time.Time `json:"date_connected,omitempty" format:"date-time"`
	LastInteraction  *time.Time `json:"last_interaction,omitempty" format:"date-time"`
}

// Contact is a candidate contact fed into opportunity scoring.
// 1st-degree contacts are excluded by construction; degree is 2 or 3.
type Contact struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Headline          string     `json:"headline,omitempty"`
	ProfilePicture    string     `json:"profile_picture,omitempty"`
	Company           string     `json:"company,omitempty"`
	Position          string     `json:"position,omitempty"`
	Industry          string     `json:"industry,omitempty"`
	Location          string     `json:"location,omitempty"`
	ConnectionDegree  int        `json:"connection_degree"`
	MutualConnections int        `json:"mutual_connections"`
	LastActivity      *time.Time `json:"last_activity,omitempty" format:"date-time"`
}

// RelevanceFactor is one weighted contributor to an opportunity score.
type RelevanceFactor struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Relevance factor types.
const (
	FactorMutualConnections = "mutual_connections"
	FactorIndustryMatch     = "industry_match"
	FactorSimilarRole       = "similar_role"
	FactorCompanyInterest   = "company_interest"
	FactorRecentActivity    = "recent_activity"
	FactorViewedProfile     = "viewed_profile"
)

// OpportunitySource classifies where an opportunity came from.
type OpportunitySource string

const (
	SourceIndustryMatch     OpportunitySource = "industry_match"
	SourceMutualConnections OpportunitySource = "mutual_connections"
	SourceSimilarRole       OpportunitySource = "similar_role"
	SourceCompanyInterest   OpportunitySource = "company_interest"
	SourceEventAttendance   OpportunitySource = "event_attendance"
	SourceContentEngagement OpportunitySource = "content_engagement"
	SourceCareerChange      OpportunitySource = "career_change"
	SourceViewedProfile     OpportunitySource = "viewed_profile"
	SourceAIRecommendation  OpportunitySource = "ai_recommendation"
)

// NetworkingOpportunity is the output of scoring one candidate contact.
// It is created fresh on each detection and never mutated afterwards.
type NetworkingOpportunity struct {
	ID                string            `json:"id"`
	ContactID         string            `json:"contact_id"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Headline          string            `json:"headline,omitempty"`
	ProfilePicture    string            `json:"profile_picture,omitempty"`
	Company           string            `json:"company,omitempty"`
	Position          string            `json:"position,omitempty"`
	Location          string            `json:"location,omitempty"`
	ConnectionDegree  int               `json:"connection_degree"`
	MutualConnections int               `json:"mutual_connections"`
	RelevanceScore    int               `json:"relevance_score"`
	RelevanceFactors  []RelevanceFactor `json:"relevance_factors"`
	LastActivity      *time.Time        `json:"last_activity,omitempty" format:"date-time"`
	Tags              []string          `json:"tags"`
	Source            OpportunitySource `json:"source"`
	Status            string            `json:"status,omitempty" enum:"new,contacted,dismissed"`
	DetectedAt        time.Time         `json:"detected_at" format:"date-time"`
}

// AutomationType selects the per-target action an automation performs.
type AutomationType string

const (
	AutomationMessages    AutomationType = "messages"
	AutomationConnections AutomationType = "connections"
	AutomationEngagement  AutomationType = "engagement"
	AutomationContent     AutomationType = "content"
	AutomationMonitoring  AutomationType = "monitoring"
)

// AutomationStatus gates execution: only active automations run.
type AutomationStatus string

const (
	StatusActive    AutomationStatus = "active"
	StatusPaused    AutomationStatus = "paused"
	StatusScheduled AutomationStatus = "scheduled"
)

// TargetType selects how an automation's target list is resolved.
type TargetType string

const (
	TargetNewConnections TargetType = "new-connections"
	TargetAllNetwork     TargetType = "all-network"
	TargetSpecificList   TargetType = "specific-list"
	TargetIndustry       TargetType = "industry"
	TargetCustomSearch   TargetType = "custom-search"
)

type AutomationTarget struct {
	Type    TargetType     `json:"type" enum:"new-connections,all-network,specific-list,industry,custom-search"`
	Value   string         `json:"value,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

// Frequency of scheduled runs.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

type AutomationSchedule struct {
	Frequency  Frequency  `json:"frequency" enum:"daily,weekly,biweekly,monthly,custom"`
	Days       []int      `json:"days,omitempty"`
	Time       string     `json:"time,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty" format:"date-time"`
	EndDate    *time.Time `json:"end_date,omitempty" format:"date-time"`
	MaxActions int        `json:"max_actions,omitempty"`
}

type AutomationStats struct {
	TotalRuns    int `json:"total_runs"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Automation owns its own run history: Execute mutates Stats, LastRun and
// NextRun in place. Concurrent execution of the same record is not guarded.
type Automation struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        AutomationType     `json:"type" enum:"messages,connections,engagement,content,monitoring"`
	Status      AutomationStatus   `json:"status" enum:"active,paused,scheduled"`
	Target      AutomationTarget   `json:"target"`
	Content     string             `json:"content,omitempty"`
	Schedule    AutomationSchedule `json:"schedule"`
	CreatedAt   time.Time          `json:"created_at" format:"date-time"`
	UpdatedAt   time.Time          `json:"updated_at" format:"date-time"`
	LastRun     *time.Time         `json:"last_run,omitempty" format:"date-time"`
	NextRun     *time.Time         `json:"next_run,omitempty" format:"date-time"`
	Stats       AutomationStats    `json:"stats"`
}

// Event is one row of the append-only activity log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey authenticates CLI/service callers against the HTTP API.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
