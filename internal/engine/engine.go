package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"linkedboost/internal/automation"
	"linkedboost/internal/config"
	"linkedboost/internal/detect"
	"linkedboost/internal/domain"
	"linkedboost/internal/events"
	"linkedboost/internal/linkedin"
	"linkedboost/internal/logging"
	"linkedboost/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Client   *linkedin.Client
	Detector *detect.Detector
	Runner   *automation.Runner
	Log      *logging.Logger
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log *logging.Logger) Engine {
	token := ""
	if cfg != nil && cfg.LinkedIn.AccessTokenEnv != "" {
		token = os.Getenv(cfg.LinkedIn.AccessTokenEnv)
	}
	client := linkedin.NewClient(token)

	runner := automation.NewRunner(client, automation.SimulatedTargets{}, log)
	if cfg != nil {
		if cfg.Pacing.MinDelayMs > 0 || cfg.Pacing.MaxDelayMs > 0 {
			runner.Pacing = automation.Pacing{
				Min: time.Duration(cfg.Pacing.MinDelayMs) * time.Millisecond,
				Max: time.Duration(cfg.Pacing.MaxDelayMs) * time.Millisecond,
			}
		}
		if len(cfg.Personalization) > 0 {
			runner.Tokens = cfg.Personalization
		}
	}

	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Client:   client,
		Detector: detect.New(client, detect.NewSimulatedSource(time.Now().UnixNano()), log),
		Runner:   runner,
		Log:      log,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// DetectOptions mirror the detection filters exposed over the API and CLI.
type DetectOptions struct {
	Industries          []string
	Roles               []string
	Companies           []string
	Keywords            []string
	MinRelevanceScore   int
	MaxResults          int
	ExcludeConnected    bool
	IncludeSecondDegree bool
	IncludeThirdDegree  bool
	SortBy              string
}

func (o DetectOptions) detectOptions(cfg *config.Config) detect.Options {
	opts := detect.Options{
		Industries:          o.Industries,
		Roles:               o.Roles,
		Companies:           o.Companies,
		Keywords:            o.Keywords,
		MinRelevanceScore:   o.MinRelevanceScore,
		MaxResults:          o.MaxResults,
		ExcludeConnected:    o.ExcludeConnected,
		IncludeSecondDegree: o.IncludeSecondDegree,
		IncludeThirdDegree:  o.IncludeThirdDegree,
		SortBy:              o.SortBy,
	}
	if cfg != nil {
		if opts.MinRelevanceScore == 0 {
			opts.MinRelevanceScore = cfg.Detection.MinRelevanceScore
		}
		if opts.MaxResults == 0 {
			opts.MaxResults = cfg.Detection.MaxResults
		}
		if opts.SortBy == "" {
			opts.SortBy = cfg.Detection.SortBy
		}
	}
	return opts
}

// DetectAndStore runs one detection pass and persists every opportunity
// found. Re-detected contacts get refreshed scores but keep their status.
func (e Engine) DetectAndStore(ctx context.Context, opts DetectOptions, actorID string) ([]domain.NetworkingOpportunity, error) {
	opps, err := e.Detector.Detect(ctx, opts.detectOptions(e.Config))
	if err != nil {
		return nil, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, o := range opps {
		if err := e.Repo.UpsertOpportunityTx(ctx, tx, o); err != nil {
			return nil, fmt.Errorf("store opportunity %s: %w", o.ID, err)
		}
	}
	if err := e.Events.Append(ctx, tx, "opportunities.detect", "opportunity", "", actorID, events.EventPayload{
		"count": len(opps),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return opps, nil
}

func (e Engine) ListOpportunities(ctx context.Context, f repo.OpportunityFilter) ([]domain.NetworkingOpportunity, error) {
	return e.Repo.ListOpportunities(ctx, f)
}

var validOpportunityStatuses = map[string]bool{
	"new":       true,
	"contacted": true,
	"dismissed": true,
}

func (e Engine) SetOpportunityStatus(ctx context.Context, id, status, actorID string) (domain.NetworkingOpportunity, error) {
	if !validOpportunityStatuses[status] {
		return domain.NetworkingOpportunity{}, fmt.Errorf("invalid status %q", status)
	}
	if err := e.Repo.SetOpportunityStatus(ctx, id, status, e.now()); err != nil {
		return domain.NetworkingOpportunity{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NetworkingOpportunity{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "opportunity.status", "opportunity", id, actorID, events.EventPayload{
		"status": status,
	}); err != nil {
		return domain.NetworkingOpportunity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.NetworkingOpportunity{}, err
	}
	return e.Repo.GetOpportunity(ctx, id)
}

// AutomationCreateOptions are parameters for creating an automation.
type AutomationCreateOptions struct {
	ID          string
	Name        string
	Description string
	Type        domain.AutomationType
	Status      domain.AutomationStatus
	Target      domain.AutomationTarget
	Content     string
	Schedule    domain.AutomationSchedule
	ActorID     string
}

var validAutomationTypes = map[domain.AutomationType]bool{
	domain.AutomationMessages:    true,
	domain.AutomationConnections: true,
	domain.AutomationEngagement:  true,
	domain.AutomationContent:     true,
	domain.AutomationMonitoring:  true,
}

var validTargetTypes = map[domain.TargetType]bool{
	domain.TargetNewConnections: true,
	domain.TargetAllNetwork:     true,
	domain.TargetSpecificList:   true,
	domain.TargetIndustry:       true,
	domain.TargetCustomSearch:   true,
}

var validFrequencies = map[domain.Frequency]bool{
	domain.FrequencyDaily:    true,
	domain.FrequencyWeekly:   true,
	domain.FrequencyBiweekly: true,
	domain.FrequencyMonthly:  true,
	domain.FrequencyCustom:   true,
}

func (e Engine) CreateAutomation(ctx context.Context, opts AutomationCreateOptions) (domain.Automation, error) {
	if opts.Name == "" {
		return domain.Automation{}, errors.New("name is required")
	}
	if !validAutomationTypes[opts.Type] {
		return domain.Automation{}, fmt.Errorf("invalid automation type %q", opts.Type)
	}
	if !validTargetTypes[opts.Target.Type] {
		return domain.Automation{}, fmt.Errorf("invalid target type %q", opts.Target.Type)
	}
	if !validFrequencies[opts.Schedule.Frequency] {
		return domain.Automation{}, fmt.Errorf("invalid frequency %q", opts.Schedule.Frequency)
	}
	if opts.Schedule.MaxActions < 0 {
		return domain.Automation{}, errors.New("max actions must not be negative")
	}
	if (opts.Type == domain.AutomationMessages || opts.Type == domain.AutomationContent) && opts.Content == "" {
		return domain.Automation{}, fmt.Errorf("content is required for %s automations", opts.Type)
	}

	now := e.now().UTC()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := opts.Status
	if status == "" {
		status = domain.StatusActive
	}
	a := domain.Automation{
		ID:          id,
		Name:        opts.Name,
		Description: opts.Description,
		Type:        opts.Type,
		Status:      status,
		Target:      opts.Target,
		Content:     opts.Content,
		Schedule:    opts.Schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Automation{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAutomationTx(ctx, tx, a); err != nil {
		return domain.Automation{}, fmt.Errorf("insert automation: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "automation.create", "automation", a.ID, opts.ActorID, events.EventPayload{
		"type":   string(a.Type),
		"status": string(a.Status),
	}); err != nil {
		return domain.Automation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Automation{}, err
	}
	return a, nil
}

func (e Engine) GetAutomation(ctx context.Context, id string) (domain.Automation, error) {
	return e.Repo.GetAutomation(ctx, id)
}

func (e Engine) ListAutomations(ctx context.Context, status string) ([]domain.Automation, error) {
	return e.Repo.ListAutomations(ctx, status)
}

func (e Engine) UpdateAutomation(ctx context.Context, id string, upd repo.AutomationUpdate, actorID string) (domain.Automation, error) {
	if upd.Status != nil && *upd.Status != domain.StatusActive && *upd.Status != domain.StatusPaused && *upd.Status != domain.StatusScheduled {
		return domain.Automation{}, fmt.Errorf("invalid status %q", *upd.Status)
	}
	if err := e.Repo.UpdateAutomation(ctx, id, upd, e.now()); err != nil {
		return domain.Automation{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Automation{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "automation.update", "automation", id, actorID, nil); err != nil {
		return domain.Automation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Automation{}, err
	}
	return e.Repo.GetAutomation(ctx, id)
}

func (e Engine) DeleteAutomation(ctx context.Context, id, actorID string) error {
	if err := e.Repo.DeleteAutomation(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "automation.delete", "automation", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// PauseAutomation stops future runs. Only active or scheduled automations
// can be paused.
func (e Engine) PauseAutomation(ctx context.Context, id, actorID string) (domain.Automation, error) {
	a, err := e.Repo.GetAutomation(ctx, id)
	if err != nil {
		return domain.Automation{}, err
	}
	if a.Status == domain.StatusPaused {
		return domain.Automation{}, fmt.Errorf("automation %s is already paused", id)
	}
	status := domain.StatusPaused
	return e.UpdateAutomation(ctx, id, repo.AutomationUpdate{Status: &status}, actorID)
}

// ResumeAutomation reactivates a paused automation.
func (e Engine) ResumeAutomation(ctx context.Context, id, actorID string) (domain.Automation, error) {
	a, err := e.Repo.GetAutomation(ctx, id)
	if err != nil {
		return domain.Automation{}, err
	}
	if a.Status != domain.StatusPaused {
		return domain.Automation{}, fmt.Errorf("automation %s is not paused", id)
	}
	status := domain.StatusActive
	return e.UpdateAutomation(ctx, id, repo.AutomationUpdate{Status: &status}, actorID)
}

// RunAutomation executes one pass of an automation and persists the mutated
// stats and schedule state.
func (e Engine) RunAutomation(ctx context.Context, id, actorID string) (automation.Result, domain.Automation, error) {
	a, err := e.Repo.GetAutomation(ctx, id)
	if err != nil {
		return automation.Result{}, domain.Automation{}, err
	}

	before := a.Stats.TotalRuns
	res := e.Runner.Execute(ctx, &a)

	// An inactive automation or failed target resolution leaves the record
	// untouched; nothing to persist.
	if a.Stats.TotalRuns == before {
		return res, a, nil
	}

	a.UpdatedAt = e.now().UTC()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateRunStateTx(ctx, tx, a); err != nil {
		return res, a, fmt.Errorf("persist run state: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "automation.run", "automation", a.ID, actorID, events.EventPayload{
		"success":           res.Success,
		"actions_performed": res.ActionsPerformed,
		"errors":            len(res.Errors),
	}); err != nil {
		return res, a, err
	}
	if err := tx.Commit(); err != nil {
		return res, a, err
	}
	return res, a, nil
}

// SyncConnections pulls the 1st-degree network and upserts it locally.
func (e Engine) SyncConnections(ctx context.Context, actorID string) (int, error) {
	conns, err := e.Client.GetConnections(ctx, 0, 100)
	if err != nil {
		return 0, fmt.Errorf("fetch connections: %w", err)
	}

	now := e.now().UTC()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, c := range conns {
		if err := e.Repo.UpsertConnectionTx(ctx, tx, c, now); err != nil {
			return 0, fmt.Errorf("store connection %s: %w", c.ID, err)
		}
	}
	if err := e.Events.Append(ctx, tx, "connections.sync", "connection", "", actorID, events.EventPayload{
		"count": len(conns),
	}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(conns), nil
}

func (e Engine) Profile(ctx context.Context) (domain.Profile, error) {
	return e.Client.GetProfile(ctx)
}

func (e Engine) APILimits(ctx context.Context) (linkedin.APILimits, error) {
	return e.Client.GetAPILimits(ctx)
}
