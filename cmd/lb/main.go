package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"linkedboost/internal/config"
	"linkedboost/internal/db"
	"linkedboost/internal/domain"
	"linkedboost/internal/engine"
	"linkedboost/internal/logging"
	"linkedboost/internal/migrate"
	"linkedboost/internal/repo"
	"linkedboost/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "lb",
	Short: "LinkedBoost CLI",
	Long: `LinkedBoost detects networking opportunities and runs LinkedIn automations.
Core concepts:
- Workspace: your .linkedboost directory holding the local database; linkedboost.yml next to it configures the service.
- Opportunities: 2nd/3rd-degree contacts scored 0-100 on mutual connections, industry, role, target companies and recent activity.
- Automations: recurring actions (messages, connections, engagement, content, monitoring) against a resolved target audience.
- Pacing: a randomized delay between actions keeps the account under LinkedIn's rate limits.
- Event log: diary of detections, runs and edits, view with 'lb log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LINKEDBOOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(limitsCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(opportunityCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(connectionsCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote default config to %s\n", path)
			}
			fmt.Printf("Workspace ready at %s\n", db.Path(workspace))
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				automations, err := e.Repo.CountAutomationsByStatus(ctx)
				if err != nil {
					return err
				}
				opportunities, err := e.Repo.CountOpportunitiesByStatus(ctx)
				if err != nil {
					return err
				}
				connections, err := e.Repo.CountConnections(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"automations":   automations,
					"opportunities": opportunities,
					"connections":   connections,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Connections: %d\n", connections)
				fmt.Println("Automations:")
				for status, c := range automations {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Println("Opportunities:")
				for status, c := range opportunities {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the authenticated LinkedIn profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Profile(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func limitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show LinkedIn API quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				limits, err := e.APILimits(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(limits)
				}
				fmt.Printf("API quota: %d/%d (resets %s)\n", limits.Used, limits.Total, limits.ResetTime.Format(time.RFC3339))
				return nil
			})
		},
	}
	return cmd
}

func detectCmd() *cobra.Command {
	var (
		industries, companies []string
		minScore, maxResults  int
		excludeConnected      bool
		sortBy                string
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect networking opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opps, err := e.DetectAndStore(ctx, engine.DetectOptions{
					Industries:        industries,
					Companies:         companies,
					MinRelevanceScore: minScore,
					MaxResults:        maxResults,
					ExcludeConnected:  excludeConnected,
					SortBy:            sortBy,
				}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(opps)
				}
				renderOpportunities(opps)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&industries, "industry", nil, "industry filter")
	cmd.Flags().StringSliceVar(&companies, "company", nil, "target company")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum relevance score (config default when 0)")
	cmd.Flags().IntVar(&maxResults, "max", 0, "maximum results (config default when 0)")
	cmd.Flags().BoolVar(&excludeConnected, "exclude-connected", false, "skip existing 1st-degree connections")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by relevance, recent or mutual")
	return cmd
}

func opportunityCmd() *cobra.Command {
	opp := &cobra.Command{Use: "opportunity", Short: "Manage detected opportunities"}
	opp.AddCommand(opportunityListCmd())
	opp.AddCommand(opportunityShowCmd())
	opp.AddCommand(opportunityStatusCmd())
	return opp
}

func opportunityListCmd() *cobra.Command {
	var f repo.OpportunityFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opps, err := e.ListOpportunities(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(opps)
				}
				renderOpportunities(opps)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.MinScore, "min-score", 0, "minimum relevance score")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter (new, contacted, dismissed)")
	cmd.Flags().StringVar(&f.Source, "source", "", "source filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum rows")
	return cmd
}

func opportunityShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opp, err := e.Repo.GetOpportunity(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(opp)
			})
		},
	}
	return cmd
}

func opportunityStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Update opportunity status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opp, err := e.SetOpportunityStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(opp)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "new status (new, contacted, dismissed)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func automationCmd() *cobra.Command {
	auto := &cobra.Command{Use: "automation", Short: "Manage automations"}
	auto.AddCommand(automationCreateCmd())
	auto.AddCommand(automationListCmd())
	auto.AddCommand(automationShowCmd())
	auto.AddCommand(automationRunCmd())
	auto.AddCommand(automationPauseCmd())
	auto.AddCommand(automationResumeCmd())
	auto.AddCommand(automationDeleteCmd())
	return auto
}

func automationCreateCmd() *cobra.Command {
	var (
		name, description, typ, targetType, targetValue string
		content, frequency, at                          string
		maxActions                                      int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an automation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAutomation(ctx, engine.AutomationCreateOptions{
					Name:        name,
					Description: description,
					Type:        domain.AutomationType(typ),
					Target: domain.AutomationTarget{
						Type:  domain.TargetType(targetType),
						Value: targetValue,
					},
					Content: content,
					Schedule: domain.AutomationSchedule{
						Frequency:  domain.Frequency(frequency),
						Time:       at,
						MaxActions: maxActions,
					},
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "automation name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&typ, "type", "", "messages, connections, engagement, content or monitoring")
	cmd.Flags().StringVar(&targetType, "target", "", "new-connections, all-network, specific-list, industry or custom-search")
	cmd.Flags().StringVar(&targetValue, "target-value", "", "target parameter (list id, industry name, search query)")
	cmd.Flags().StringVar(&content, "content", "", "message or post template, supports {prénom} style tokens")
	cmd.Flags().StringVar(&frequency, "frequency", "daily", "daily, weekly, biweekly, monthly or custom")
	cmd.Flags().StringVar(&at, "at", "", "run time HH:MM")
	cmd.Flags().IntVar(&maxActions, "max-actions", 0, "cap actions per run (0 = all targets)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func automationListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List automations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				automations, err := e.ListAutomations(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(automations)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Type", "Status", "Runs", "OK", "KO", "Next run"})
				for _, a := range automations {
					nextRun := ""
					if a.NextRun != nil {
						nextRun = a.NextRun.Format(time.RFC3339)
					}
					tw.AppendRow(table.Row{a.ID, a.Name, a.Type, a.Status, a.Stats.TotalRuns, a.Stats.SuccessCount, a.Stats.FailureCount, nextRun})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (active, paused, scheduled)")
	return cmd
}

func automationShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.GetAutomation(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func automationRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Execute an automation now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, a, err := e.RunAutomation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				out := map[string]any{
					"success":           res.Success,
					"actions_performed": res.ActionsPerformed,
					"errors":            res.Errors,
					"stats":             a.Stats,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Success: %v, actions: %d, errors: %d\n", res.Success, res.ActionsPerformed, len(res.Errors))
				for _, msg := range res.Errors {
					fmt.Println("  -", msg)
				}
				if a.NextRun != nil {
					fmt.Printf("Next run: %s\n", a.NextRun.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	return cmd
}

func automationPauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause an automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.PauseAutomation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("Automation %s is now %s\n", a.ID, a.Status)
				return nil
			})
		},
	}
	return cmd
}

func automationResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.ResumeAutomation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("Automation %s is now %s\n", a.ID, a.Status)
				return nil
			})
		},
	}
	return cmd
}

func automationDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteAutomation(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync 1st-degree connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.SyncConnections(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("Synced %d connections\n", n)
				return nil
			})
		},
	}
	return cmd
}

func connectionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List stored connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				conns, err := e.Repo.ListConnections(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(conns)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Headline", "Connected"})
				for _, c := range conns {
					connected := ""
					if c.DateConnected != nil {
						connected = c.DateConnected.Format("2006-01-02")
					}
					tw.AppendRow(table.Row{c.ID, c.FirstName + " " + c.LastName, c.Headline, connected})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				secret := "lbk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
				err := r.InsertAPIKey(ctx, nil, domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: viper.GetString("actor-id"),
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
				})
				if err != nil {
					return err
				}
				// The plain key is shown once and never stored.
				fmt.Println(secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				evts, err := r.ListEvents(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Actor", "Payload"})
				for _, e := range evts {
					entity := e.EntityKind
					if e.EntityID != "" {
						entity += "/" + e.EntityID
					}
					tw.AppendRow(table.Row{e.TS, e.Type, entity, e.ActorID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Logging.Level)
			e := engine.New(conn, cfg, log)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			jwtSecret := os.Getenv("LINKEDBOOST_JWT_SECRET")
			if jwtSecret == "" {
				jwtSecret = cfg.Server.JWTSecret
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret:              jwtSecret,
					AllowLegacyActorHeader: cfg.Server.AllowLegacyActorHeader,
					Log:                    log,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info("serving LinkedBoost API", "addr", addr, "base_path", basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (config default when empty)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (config default when empty)")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg, logging.New(cfg.Logging.Level))
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func renderOpportunities(opps []domain.NetworkingOpportunity) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Position", "Company", "Score", "Source", "Status", "Tags"})
	for _, o := range opps {
		tw.AppendRow(table.Row{
			o.ID,
			o.FirstName + " " + o.LastName,
			o.Position,
			o.Company,
			o.RelevanceScore,
			o.Source,
			o.Status,
			strings.Join(o.Tags, ", "),
		})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
