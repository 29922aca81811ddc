package automation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"linkedboost/internal/domain"
	"linkedboost/internal/linkedin"
	"linkedboost/internal/logging"
)

// Executor is the subset of the LinkedIn client the runner acts through.
// Satisfied by *linkedin.Client.
type Executor interface {
	SendMessage(ctx context.Context, msg linkedin.Message) (linkedin.MessageResult, error)
	SendConnectionRequest(ctx context.Context, userID, message string) (linkedin.ConnectionRequestResult, error)
	CreatePost(ctx context.Context, post linkedin.Post) (linkedin.PostResult, error)
	InteractWithPost(ctx context.Context, postID string, action linkedin.PostAction, comment string) (linkedin.InteractionResult, error)
}

// Target is one resolved recipient of an automation action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// TargetSource resolves an automation's target descriptor into concrete
// targets, and lists a target's recent posts for engagement actions.
type TargetSource interface {
	Targets(ctx context.Context, target domain.AutomationTarget) ([]Target, error)
	RecentPosts(ctx context.Context, targetID string) ([]Post, error)
}

// Post is a feed item belonging to a target.
type Post struct {
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
}

// Result summarizes one automation run. ActionsPerformed plus the number of
// errors equals the number of attempted iterations.
type Result struct {
	Success          bool     `json:"success"`
	ActionsPerformed int      `json:"actions_performed"`
	Errors           []string `json:"errors,omitempty"`
}

// Pacing bounds the randomized delay inserted between consecutive actions.
type Pacing struct {
	Min time.Duration
	Max time.Duration
}

// DefaultPacing matches LinkedIn's tolerated request cadence.
var DefaultPacing = Pacing{Min: 1 * time.Second, Max: 3 * time.Second}

var defaultTokens = map[string]string{
	"{prénom}":     "Jean",
	"{nom}":        "Dupont",
	"{entreprise}": "Acme Inc",
	"{poste}":      "Directeur Marketing",
}

var engagementComments = []string{
	"Excellent point de vue !",
	"Merci pour ce partage intéressant.",
	"Contenu très pertinent, merci !",
	"Je suis tout à fait d'accord avec cette analyse.",
	"Perspective intéressante, j'apprécie le partage.",
}

// Runner executes automations against the LinkedIn API. Rand, Now and Sleep
// are injectable so runs are deterministic and instant under test.
type Runner struct {
	Executor Executor
	Targets  TargetSource
	Pacing   Pacing
	Tokens   map[string]string
	Log      *logging.Logger
	Rand     *rand.Rand
	Now      func() time.Time
	Sleep    func(context.Context, time.Duration)
}

func NewRunner(exec Executor, targets TargetSource, log *logging.Logger) *Runner {
	return &Runner{
		Executor: exec,
		Targets:  targets,
		Pacing:   DefaultPacing,
		Log:      log,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:      time.Now,
		Sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) rng() *rand.Rand {
	if r.Rand == nil {
		r.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.Rand
}

// Execute runs one pass of the automation. It mutates the automation in
// place: stats accumulate, LastRun is set to now and NextRun is recomputed
// from the schedule. Target resolution failure aborts the run without
// touching stats.
func (r *Runner) Execute(ctx context.Context, a *domain.Automation) Result {
	if a.Status != domain.StatusActive {
		return Result{Success: false, Errors: []string{"L'automatisation n'est pas active"}}
	}

	targets, err := r.Targets.Targets(ctx, a.Target)
	if err != nil {
		if r.Log != nil {
			r.Log.Error("target resolution failed", "automation", a.ID, "err", err)
		}
		return Result{Success: false, Errors: []string{err.Error()}}
	}

	maxActions := a.Schedule.MaxActions
	if maxActions <= 0 {
		maxActions = len(targets)
	}
	attempts := len(targets)
	if maxActions < attempts {
		attempts = maxActions
	}

	var errs []string
	performed := 0
	for i := 0; i < attempts; i++ {
		target := targets[i]

		if err := r.perform(ctx, a, target, i); err != nil {
			errs = append(errs, fmt.Sprintf("Erreur pour la cible %s: %v", target.ID, err))
		} else {
			performed++
		}

		if i < attempts-1 {
			r.Sleep(ctx, r.delay())
		}
	}

	now := r.now()
	a.Stats.TotalRuns++
	a.Stats.SuccessCount += performed
	a.Stats.FailureCount += len(errs)
	a.LastRun = &now
	next := nextRun(a.Schedule, now)
	a.NextRun = &next

	return Result{Success: len(errs) == 0, ActionsPerformed: performed, Errors: errs}
}

func (r *Runner) perform(ctx context.Context, a *domain.Automation, target Target, i int) error {
	switch a.Type {
	case domain.AutomationMessages:
		return r.sendMessage(ctx, target.ID, a.Content)
	case domain.AutomationConnections:
		return r.sendConnectionRequest(ctx, target.ID, a.Content)
	case domain.AutomationEngagement:
		return r.engage(ctx, target.ID)
	case domain.AutomationContent:
		// Content publishes once per run; later iterations still count.
		if i == 0 {
			return r.publish(ctx, a.Content)
		}
		return nil
	case domain.AutomationMonitoring:
		return r.monitor(ctx, target.ID)
	}
	return fmt.Errorf("type d'automatisation inconnu: %s", a.Type)
}

func (r *Runner) delay() time.Duration {
	p := r.Pacing
	if p.Min <= 0 && p.Max <= 0 {
		p = DefaultPacing
	}
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(r.rng().Int63n(int64(p.Max-p.Min)))
}

func (r *Runner) sendMessage(ctx context.Context, targetID, content string) error {
	res, err := r.Executor.SendMessage(ctx, linkedin.Message{
		RecipientID: targetID,
		Body:        r.personalize(content),
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return errOr(res.Error, "Échec de l'envoi du message")
	}
	return nil
}

func (r *Runner) sendConnectionRequest(ctx context.Context, targetID, content string) error {
	var note string
	if content != "" {
		note = r.personalize(content)
	}
	res, err := r.Executor.SendConnectionRequest(ctx, targetID, note)
	if err != nil {
		return err
	}
	if !res.Success {
		return errOr(res.Error, "Échec de l'envoi de la demande de connexion")
	}
	return nil
}

func (r *Runner) engage(ctx context.Context, targetID string) error {
	posts, err := r.Targets.RecentPosts(ctx, targetID)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return fmt.Errorf("Aucun post récent trouvé pour cette cible")
	}
	post := posts[r.rng().Intn(len(posts))]

	if r.rng().Float64() > 0.5 {
		res, err := r.Executor.InteractWithPost(ctx, post.ID, linkedin.ActionLike, "")
		if err != nil {
			return err
		}
		if !res.Success {
			return errOr(res.Error, "Échec du like")
		}
		return nil
	}

	comment := engagementComments[r.rng().Intn(len(engagementComments))]
	res, err := r.Executor.InteractWithPost(ctx, post.ID, linkedin.ActionComment, comment)
	if err != nil {
		return err
	}
	if !res.Success {
		return errOr(res.Error, "Échec du commentaire")
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, content string) error {
	res, err := r.Executor.CreatePost(ctx, linkedin.Post{
		Content:    content,
		Visibility: "CONNECTIONS",
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return errOr(res.Error, "Échec de la publication")
	}
	return nil
}

func (r *Runner) monitor(ctx context.Context, targetID string) error {
	// Monitoring records activity only; there is no outbound action.
	if r.Log != nil {
		r.Log.Info("monitoring target", "target", targetID)
	}
	return nil
}

// personalize substitutes template tokens like {prénom} in outbound content.
func (r *Runner) personalize(content string) string {
	tokens := r.Tokens
	if tokens == nil {
		tokens = defaultTokens
	}
	for token, value := range tokens {
		content = strings.ReplaceAll(content, token, value)
	}
	return content
}

func errOr(msg, fallback string) error {
	if msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s", fallback)
}

// nextRun computes the next scheduled execution from now. The frequency sets
// the date offset; an explicit schedule time overrides the clock time.
func nextRun(s domain.AutomationSchedule, now time.Time) time.Time {
	var next time.Time
	switch s.Frequency {
	case domain.FrequencyDaily:
		next = now.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		next = now.AddDate(0, 0, 7)
	case domain.FrequencyBiweekly:
		next = now.AddDate(0, 0, 14)
	case domain.FrequencyMonthly:
		next = now.AddDate(0, 1, 0)
	case domain.FrequencyCustom:
		next = now.AddDate(0, 0, 3)
	default:
		next = now
	}

	if s.Time != "" {
		var hours, minutes int
		if _, err := fmt.Sscanf(s.Time, "%d:%d", &hours, &minutes); err == nil {
			next = time.Date(next.Year(), next.Month(), next.Day(), hours, minutes, 0, 0, next.Location())
		}
	}
	return next
}
