package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"linkedboost/internal/domain"
	"linkedboost/internal/engine"
	"linkedboost/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"automation not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the LinkedBoost API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("LinkedBoost API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerOpportunities(group, cfg.Engine)
	registerAutomations(group, cfg.Engine)
	registerConnections(group, cfg.Engine)
	registerProfile(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "jeton d'accès"):
		return newAPIError(http.StatusBadGateway, "linkedin_error", msg, nil)
	case strings.Contains(lowered, "already paused"), strings.Contains(lowered, "not paused"):
		return newAPIError(http.StatusConflict, "status_conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadGateway:
		return "linkedin_error"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>LinkedBoost API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Workspace status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		automations, err := e.Repo.CountAutomationsByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		opportunities, err := e.Repo.CountOpportunitiesByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		connections, err := e.Repo.CountConnections(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: StatusResponse{
			Automations:   automations,
			Opportunities: opportunities,
			Connections:   connections,
		}}, nil
	})
}

func registerOpportunities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "detect-opportunities",
		Method:      http.MethodPost,
		Path:        "/opportunities/detect",
		Summary:     "Detect networking opportunities",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		Body DetectRequest `json:"body"`
	}) (*struct {
		Body OpportunityListResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opps, err := e.DetectAndStore(ctx, engine.DetectOptions{
			Industries:          input.Body.Industries,
			Roles:               input.Body.Roles,
			Companies:           input.Body.Companies,
			Keywords:            input.Body.Keywords,
			MinRelevanceScore:   input.Body.MinRelevanceScore,
			MaxResults:          input.Body.MaxResults,
			ExcludeConnected:    input.Body.ExcludeConnected,
			IncludeSecondDegree: input.Body.IncludeSecondDegree,
			IncludeThirdDegree:  input.Body.IncludeThirdDegree,
			SortBy:              input.Body.SortBy,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OpportunityListResponse `json:"body"`
		}{Body: OpportunityListResponse{Items: emptyIfNil(opps), Count: len(opps)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-opportunities",
		Method:      http.MethodGet,
		Path:        "/opportunities",
		Summary:     "List stored opportunities",
	}, func(ctx context.Context, input *struct {
		MinScore int    `query:"min_score"`
		Status   string `query:"status" enum:",new,contacted,dismissed"`
		Source   string `query:"source"`
		Limit    int    `query:"limit" default:"50"`
	}) (*struct {
		Body OpportunityListResponse `json:"body"`
	}, error) {
		opps, err := e.ListOpportunities(ctx, repo.OpportunityFilter{
			MinScore: input.MinScore,
			Status:   input.Status,
			Source:   input.Source,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OpportunityListResponse `json:"body"`
		}{Body: OpportunityListResponse{Items: emptyIfNil(opps), Count: len(opps)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-opportunity",
		Method:      http.MethodGet,
		Path:        "/opportunities/{opportunity_id}",
		Summary:     "Get one opportunity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OpportunityID string `path:"opportunity_id"`
	}) (*struct {
		Body domain.NetworkingOpportunity `json:"body"`
	}, error) {
		opp, err := e.Repo.GetOpportunity(ctx, input.OpportunityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.NetworkingOpportunity `json:"body"`
		}{Body: opp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-opportunity-status",
		Method:      http.MethodPatch,
		Path:        "/opportunities/{opportunity_id}/status",
		Summary:     "Update opportunity status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		OpportunityID string `path:"opportunity_id"`
		Body          struct {
			Status string `json:"status" enum:"new,contacted,dismissed"`
		} `json:"body"`
	}) (*struct {
		Body domain.NetworkingOpportunity `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opp, err := e.SetOpportunityStatus(ctx, input.OpportunityID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.NetworkingOpportunity `json:"body"`
		}{Body: opp}, nil
	})
}

func registerAutomations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-automation",
		Method:        http.MethodPost,
		Path:          "/automations",
		Summary:       "Create automation",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		Body AutomationRequest `json:"body"`
	}) (*struct {
		Body domain.Automation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateAutomation(ctx, engine.AutomationCreateOptions{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Type:        input.Body.Type,
			Status:      input.Body.Status,
			Target:      input.Body.Target,
			Content:     input.Body.Content,
			Schedule:    input.Body.Schedule,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Automation `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-automations",
		Method:      http.MethodGet,
		Path:        "/automations",
		Summary:     "List automations",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:",active,paused,scheduled"`
	}) (*struct {
		Body AutomationListResponse `json:"body"`
	}, error) {
		automations, err := e.ListAutomations(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		if automations == nil {
			automations = []domain.Automation{}
		}
		return &struct {
			Body AutomationListResponse `json:"body"`
		}{Body: AutomationListResponse{Items: automations, Count: len(automations)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-automation",
		Method:      http.MethodGet,
		Path:        "/automations/{automation_id}",
		Summary:     "Get one automation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AutomationID string `path:"automation_id"`
	}) (*struct {
		Body domain.Automation `json:"body"`
	}, error) {
		a, err := e.GetAutomation(ctx, input.AutomationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Automation `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-automation",
		Method:      http.MethodPatch,
		Path:        "/automations/{automation_id}",
		Summary:     "Update automation",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		AutomationID string                  `path:"automation_id"`
		Body         AutomationUpdateRequest `json:"body"`
	}) (*struct {
		Body domain.Automation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAutomation(ctx, input.AutomationID, repo.AutomationUpdate{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Content:     input.Body.Content,
			Target:      input.Body.Target,
			Schedule:    input.Body.Schedule,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Automation `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-automation",
		Method:      http.MethodDelete,
		Path:        "/automations/{automation_id}",
		Summary:     "Delete automation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AutomationID string `path:"automation_id"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAutomation(ctx, input.AutomationID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "deleted"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-automation",
		Method:      http.MethodPost,
		Path:        "/automations/{automation_id}/execute",
		Summary:     "Execute automation now",
		Errors: []int{
			http.StatusNotFound,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		AutomationID string `path:"automation_id"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, a, err := e.RunAutomation(ctx, input.AutomationID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: ExecutionResponse{
			Success:          res.Success,
			ActionsPerformed: res.ActionsPerformed,
			Errors:           res.Errors,
			Automation:       a,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pause-automation",
		Method:      http.MethodPost,
		Path:        "/automations/{automation_id}/pause",
		Summary:     "Pause automation",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		AutomationID string `path:"automation_id"`
	}) (*struct {
		Body domain.Automation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.PauseAutomation(ctx, input.AutomationID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Automation `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resume-automation",
		Method:      http.MethodPost,
		Path:        "/automations/{automation_id}/resume",
		Summary:     "Resume automation",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		AutomationID string `path:"automation_id"`
	}) (*struct {
		Body domain.Automation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.ResumeAutomation(ctx, input.AutomationID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Automation `json:"body"`
		}{Body: a}, nil
	})
}

func registerConnections(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-connections",
		Method:      http.MethodPost,
		Path:        "/connections/sync",
		Summary:     "Sync 1st-degree connections",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.SyncConnections(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: map[string]int{"synced": n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-connections",
		Method:      http.MethodGet,
		Path:        "/connections",
		Summary:     "List stored connections",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body ConnectionListResponse `json:"body"`
	}, error) {
		conns, err := e.Repo.ListConnections(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if conns == nil {
			conns = []domain.Connection{}
		}
		return &struct {
			Body ConnectionListResponse `json:"body"`
		}{Body: ConnectionListResponse{Items: conns, Count: len(conns)}}, nil
	})
}

func registerProfile(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Authenticated LinkedIn profile",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Profile `json:"body"`
	}, error) {
		p, err := e.Profile(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-api-limits",
		Method:      http.MethodGet,
		Path:        "/limits",
		Summary:     "LinkedIn API quota",
		Errors:      []int{http.StatusBadGateway},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body LimitsResponse `json:"body"`
	}, error) {
		limits, err := e.APILimits(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LimitsResponse `json:"body"`
		}{Body: LimitsResponse{
			Used:      limits.Used,
			Total:     limits.Total,
			ResetTime: limits.ResetTime,
		}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body EventListResponse `json:"body"`
	}, error) {
		evts, err := e.Repo.ListEvents(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if evts == nil {
			evts = []domain.Event{}
		}
		return &struct {
			Body EventListResponse `json:"body"`
		}{Body: EventListResponse{Items: evts, Count: len(evts)}}, nil
	})
}

func emptyIfNil(opps []domain.NetworkingOpportunity) []domain.NetworkingOpportunity {
	if opps == nil {
		return []domain.NetworkingOpportunity{}
	}
	return opps
}
