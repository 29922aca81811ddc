package engine_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"linkedboost/internal/config"
	"linkedboost/internal/db"
	"linkedboost/internal/detect"
	"linkedboost/internal/domain"
	"linkedboost/internal/engine"
	"linkedboost/internal/migrate"
	"linkedboost/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	t.Setenv("LINKEDIN_ACCESS_TOKEN", "test-token")
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	eng := engine.New(conn, cfg, nil)
	eng.Now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	eng.Detector.Now = eng.Now
	eng.Detector.Source = detect.NewSimulatedSource(42)
	eng.Runner.Now = eng.Now
	eng.Runner.Rand = rand.New(rand.NewSource(1))
	eng.Runner.Sleep = func(context.Context, time.Duration) {}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func newAutomation(t *testing.T, env testEnv, typ domain.AutomationType) domain.Automation {
	t.Helper()
	a, err := env.Engine.CreateAutomation(env.Ctx, engine.AutomationCreateOptions{
		Name:    "prospection",
		Type:    typ,
		Target:  domain.AutomationTarget{Type: domain.TargetNewConnections},
		Content: "Bonjour {prénom}",
		Schedule: domain.AutomationSchedule{
			Frequency:  domain.FrequencyDaily,
			MaxActions: 3,
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create automation: %v", err)
	}
	return a
}

func TestDetectAndStore(t *testing.T) {
	env := newTestEnv(t)

	opps, err := env.Engine.DetectAndStore(env.Ctx, engine.DetectOptions{
		MinRelevanceScore: 5,
		MaxResults:        10,
	}, "tester")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(opps) == 0 {
		t.Fatal("no opportunities detected")
	}
	if len(opps) > 10 {
		t.Fatalf("opportunities = %d, want <= 10", len(opps))
	}
	for i := 1; i < len(opps); i++ {
		if opps[i].RelevanceScore > opps[i-1].RelevanceScore {
			t.Fatalf("not sorted by score desc at %d", i)
		}
	}

	stored, err := env.Engine.ListOpportunities(env.Ctx, repo.OpportunityFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != len(opps) {
		t.Fatalf("stored = %d, detected = %d", len(stored), len(opps))
	}
	if stored[0].Status != "new" {
		t.Fatalf("status = %s, want new", stored[0].Status)
	}
}

func TestDetectAndStoreKeepsStatusOnRedetection(t *testing.T) {
	env := newTestEnv(t)

	opps, err := env.Engine.DetectAndStore(env.Ctx, engine.DetectOptions{MinRelevanceScore: 5}, "tester")
	if err != nil || len(opps) == 0 {
		t.Fatalf("detect: %v (%d opportunities)", err, len(opps))
	}
	id := opps[0].ID

	if _, err := env.Engine.SetOpportunityStatus(env.Ctx, id, "contacted", "tester"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	env.Engine.Detector.Source = detect.NewSimulatedSource(42)
	if _, err := env.Engine.DetectAndStore(env.Ctx, engine.DetectOptions{MinRelevanceScore: 5}, "tester"); err != nil {
		t.Fatalf("re-detect: %v", err)
	}

	got, err := env.Engine.Repo.GetOpportunity(env.Ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "contacted" {
		t.Fatalf("status = %s, want contacted after re-detection", got.Status)
	}
}

func TestSetOpportunityStatusValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.SetOpportunityStatus(env.Ctx, "opp_x", "archived", "tester"); err == nil {
		t.Fatal("expected invalid status error")
	}
	if _, err := env.Engine.SetOpportunityStatus(env.Ctx, "opp_missing", "contacted", "tester"); err != repo.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAutomationValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []engine.AutomationCreateOptions{
		{Type: domain.AutomationMessages, Target: domain.AutomationTarget{Type: domain.TargetAllNetwork}, Schedule: domain.AutomationSchedule{Frequency: domain.FrequencyDaily}, Content: "x"},
		{Name: "n", Type: "spam", Target: domain.AutomationTarget{Type: domain.TargetAllNetwork}, Schedule: domain.AutomationSchedule{Frequency: domain.FrequencyDaily}},
		{Name: "n", Type: domain.AutomationMonitoring, Target: domain.AutomationTarget{Type: "everyone"}, Schedule: domain.AutomationSchedule{Frequency: domain.FrequencyDaily}},
		{Name: "n", Type: domain.AutomationMonitoring, Target: domain.AutomationTarget{Type: domain.TargetAllNetwork}, Schedule: domain.AutomationSchedule{Frequency: "hourly"}},
		{Name: "n", Type: domain.AutomationMessages, Target: domain.AutomationTarget{Type: domain.TargetAllNetwork}, Schedule: domain.AutomationSchedule{Frequency: domain.FrequencyDaily}},
	}
	for i, opts := range cases {
		opts.ActorID = "tester"
		if _, err := env.Engine.CreateAutomation(env.Ctx, opts); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestRunAutomationPersistsState(t *testing.T) {
	env := newTestEnv(t)
	a := newAutomation(t, env, domain.AutomationMessages)

	res, updated, err := env.Engine.RunAutomation(env.Ctx, a.ID, "tester")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success || res.ActionsPerformed != 3 {
		t.Fatalf("result = %+v", res)
	}
	if updated.Stats.TotalRuns != 1 || updated.Stats.SuccessCount != 3 {
		t.Fatalf("stats = %+v", updated.Stats)
	}

	got, err := env.Engine.GetAutomation(env.Ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stats.TotalRuns != 1 || got.Stats.SuccessCount != 3 || got.Stats.FailureCount != 0 {
		t.Fatalf("persisted stats = %+v", got.Stats)
	}
	if got.LastRun == nil || got.NextRun == nil {
		t.Fatal("lastRun/nextRun not persisted")
	}
	if want := env.Engine.Now().AddDate(0, 0, 1); !got.NextRun.Equal(want) {
		t.Fatalf("nextRun = %v, want %v", got.NextRun, want)
	}
}

func TestRunAutomationPausedDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	a := newAutomation(t, env, domain.AutomationMessages)

	if _, err := env.Engine.PauseAutomation(env.Ctx, a.ID, "tester"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	res, _, err := env.Engine.RunAutomation(env.Ctx, a.ID, "tester")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Success || res.ActionsPerformed != 0 {
		t.Fatalf("result = %+v", res)
	}

	got, err := env.Engine.GetAutomation(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stats.TotalRuns != 0 || got.LastRun != nil {
		t.Fatalf("paused run mutated state: %+v", got.Stats)
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	env := newTestEnv(t)
	a := newAutomation(t, env, domain.AutomationMessages)

	paused, err := env.Engine.PauseAutomation(env.Ctx, a.ID, "tester")
	if err != nil || paused.Status != domain.StatusPaused {
		t.Fatalf("pause: %v (status %s)", err, paused.Status)
	}
	if _, err := env.Engine.PauseAutomation(env.Ctx, a.ID, "tester"); err == nil {
		t.Fatal("expected error pausing a paused automation")
	}

	resumed, err := env.Engine.ResumeAutomation(env.Ctx, a.ID, "tester")
	if err != nil || resumed.Status != domain.StatusActive {
		t.Fatalf("resume: %v (status %s)", err, resumed.Status)
	}
	if _, err := env.Engine.ResumeAutomation(env.Ctx, a.ID, "tester"); err == nil {
		t.Fatal("expected error resuming an active automation")
	}
}

func TestDeleteAutomation(t *testing.T) {
	env := newTestEnv(t)
	a := newAutomation(t, env, domain.AutomationMonitoring)

	if err := env.Engine.DeleteAutomation(env.Ctx, a.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.GetAutomation(env.Ctx, a.ID); err != repo.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := env.Engine.DeleteAutomation(env.Ctx, a.ID, "tester"); err != repo.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSyncConnections(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.Engine.SyncConnections(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 100 {
		t.Fatalf("synced = %d, want 100", n)
	}

	count, err := env.Engine.Repo.CountConnections(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 100 {
		t.Fatalf("stored = %d, want 100", count)
	}

	// Syncing again must not duplicate rows.
	if _, err := env.Engine.SyncConnections(env.Ctx, "tester"); err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	count, err = env.Engine.Repo.CountConnections(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 100 {
		t.Fatalf("stored after re-sync = %d, want 100", count)
	}
}

func TestEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	a := newAutomation(t, env, domain.AutomationMessages)
	if _, _, err := env.Engine.RunAutomation(env.Ctx, a.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	evts, err := env.Engine.Repo.ListEvents(env.Ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 {
		t.Fatalf("events = %d, want 2", len(evts))
	}
	if evts[0].Type != "automation.run" || evts[1].Type != "automation.create" {
		t.Fatalf("event types = %s, %s", evts[0].Type, evts[1].Type)
	}
	if evts[0].EntityID != a.ID || evts[0].ActorID != "tester" {
		t.Fatalf("event = %+v", evts[0])
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.Profile(env.Ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.FirstName != "Marie" || p.Industry != "Marketing" {
		t.Fatalf("profile = %+v", p)
	}
}
