package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"gigboard/internal/domain"
	"gigboard/internal/engine"
	"gigboard/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_state"`
	Message string         `json:"message" example:"project cannot be published while open"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Gigboard API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Gigboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Engine, cfg.Auth)
	registerUsers(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerApplications(group, cfg.Engine)
	registerContracts(group, cfg.Engine)
	registerRatings(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerStats(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
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
	var fe engine.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	var se engine.StateError
	if errors.As(err, &se) {
		return newAPIError(http.StatusConflict, "invalid_state", err.Error(), map[string]any{"entity": se.Entity, "status": se.Status})
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	var ae engine.ArgumentError
	if errors.As(err, &ae) {
		return newAPIError(http.StatusBadRequest, "invalid_argument", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
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
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		joinPath(basePath, "health"):         true,
		joinPath(basePath, "auth/dev/login"): true,
		joinPath(basePath, "users/register"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func joinPath(basePath, p string) string {
	joined := path.Join(basePath, p)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Gigboard API Docs</title>
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

func registerAuth(api huma.API, e engine.Engine, auth AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Issue a development token",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		if e.Config == nil || !e.Config.Auth.DevLogin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "dev login is disabled", nil)
		}
		if input.Body.Email == "" {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "email is required", nil)
		}
		u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Body.Email)))
		if err != nil {
			return nil, handleError(err)
		}
		if !u.Active {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "account is deactivated", nil)
		}
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		token, err := issueToken(auth.JWTSecret, u.ID, u.Role, auth.tokenTTL(), now)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, User: u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-user",
		Method:        http.MethodPost,
		Path:          "/users/register",
		Summary:       "Register user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		u, err := e.RegisterUser(ctx, engine.RegisterOptions{
			Email:     input.Body.Email,
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Role:      input.Body.Role,
			Bio:       input.Body.Bio,
			Skills:    input.Body.Skills,
			AvatarURL: input.Body.AvatarURL,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.Repo.GetUser(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update profile",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateProfileRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var raw map[string]json.RawMessage
		_ = json.Unmarshal(bodyBytes(ctx), &raw)
		_, skillsSet := raw["skills"]
		u, err := e.UpdateUserProfile(ctx, engine.ProfileUpdateOptions{
			UserID:    input.ID,
			CallerID:  callerID,
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Bio:       input.Body.Bio,
			SetSkills: skillsSet,
			Skills:    input.Body.Skills,
			AvatarURL: input.Body.AvatarURL,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-user",
		Method:      http.MethodPost,
		Path:        "/users/{id}/deactivate",
		Summary:     "Deactivate user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.DeactivateUser(ctx, input.ID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workers",
		Method:      http.MethodGet,
		Path:        "/workers",
		Summary:     "List workers",
	}, func(ctx context.Context, input *struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 && e.Config != nil {
			limit = e.Config.Limits.PageSize
		}
		items, err := e.Repo.ListWorkers(ctx, limit, input.Offset)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: nonNilUsers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "leaderboard",
		Method:      http.MethodGet,
		Path:        "/leaderboard",
		Summary:     "Top workers by rating",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"10"`
	}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}
		items, err := e.Repo.Leaderboard(ctx, limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: nonNilUsers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-ratings",
		Method:      http.MethodGet,
		Path:        "/users/{id}/ratings",
		Summary:     "List ratings received by a user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID     int64 `path:"id"`
		Limit  int   `query:"limit"`
		Offset int   `query:"offset"`
	}) (*struct {
		Body []domain.Rating `json:"body"`
	}, error) {
		if _, err := e.Repo.GetUser(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit <= 0 && e.Config != nil {
			limit = e.Config.Limits.PageSize
		}
		items, err := e.Repo.ListRatingsForUser(ctx, input.ID, limit, input.Offset)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Rating `json:"body"`
		}{Body: nonNilRatings(items)}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			OwnerID:      callerID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Requirements: input.Body.Requirements,
			Budget:       input.Body.Budget,
			Deadline:     input.Body.Deadline,
			TechStack:    input.Body.TechStack,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		Status  string `query:"status" enum:"draft,open,in_progress,review,completed,cancelled"`
		OwnerID int64  `query:"owner_id"`
		Mine    bool   `query:"mine"`
		Limit   int    `query:"limit"`
		Offset  int    `query:"offset"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Mine {
			caller, err := e.Repo.GetUser(ctx, callerID)
			if err != nil {
				return nil, handleError(err)
			}
			if caller.Role == domain.RoleWorker {
				items, err := e.Repo.ListProjectsForWorker(ctx, callerID)
				if err != nil {
					return nil, handleError(err)
				}
				return &struct {
					Body []domain.Project `json:"body"`
				}{Body: nonNilProjects(items)}, nil
			}
			input.OwnerID = callerID
		}
		limit := input.Limit
		if limit <= 0 && e.Config != nil {
			limit = e.Config.Limits.PageSize
		}
		items, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{
			Status:  input.Status,
			OwnerID: input.OwnerID,
			Limit:   limit,
			Offset:  input.Offset,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: nonNilProjects(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var raw map[string]json.RawMessage
		_ = json.Unmarshal(bodyBytes(ctx), &raw)
		_, techStackSet := raw["tech_stack"]
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:           input.ID,
			CallerID:     callerID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Requirements: input.Body.Requirements,
			Budget:       input.Body.Budget,
			Deadline:     input.Body.Deadline,
			SetTechStack: techStackSet,
			TechStack:    input.Body.TechStack,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	type projectTransition struct {
		id      string
		path    string
		summary string
		run     func(e engine.Engine, ctx context.Context, projectID, callerID int64) (domain.Project, error)
	}
	transitions := []projectTransition{
		{"publish-project", "/projects/{id}/publish", "Publish project", engine.Engine.PublishProject},
		{"request-project-review", "/projects/{id}/request-review", "Request project review", engine.Engine.RequestReview},
		{"complete-project", "/projects/{id}/complete", "Complete project", engine.Engine.CompleteProject},
		{"cancel-project", "/projects/{id}/cancel", "Cancel project", engine.Engine.CancelProject},
	}
	for _, tr := range transitions {
		run := tr.run
		huma.Register(api, huma.Operation{
			OperationID: tr.id,
			Method:      http.MethodPost,
			Path:        tr.path,
			Summary:     tr.summary,
			Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		}, func(ctx context.Context, input *struct {
			ID int64 `path:"id"`
		}) (*struct {
			Body domain.Project `json:"body"`
		}, error) {
			callerID, authErr := userIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			p, err := run(e, ctx, input.ID, callerID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Project `json:"body"`
			}{Body: p}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "assign-worker",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/assign",
		Summary:     "Assign or unassign a worker",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body AssignWorkerRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AssignWorker(ctx, input.ID, input.Body.WorkerID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID int64             `path:"project_id"`
		Body      CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ProjectID:      input.ProjectID,
			CallerID:       callerID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Complexity:     input.Body.Complexity,
			EstimatedHours: input.Body.EstimatedHours,
			Deadline:       input.Body.Deadline,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTasks(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: nonNilTasks(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/assign",
		Summary:     "Assign or unassign a task",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body AssignWorkerRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.AssignTask(ctx, input.ID, input.Body.WorkerID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Update task status",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                   `path:"id"`
		Body UpdateTaskStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTaskStatus(ctx, input.ID, input.Body.Status, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerApplications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "apply",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/applications",
		Summary:       "Apply to a project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID int64        `path:"project_id"`
		Body      ApplyRequest `json:"body"`
	}) (*struct {
		Body domain.Application `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.Apply(ctx, engine.ApplyOptions{
			ProjectID:    input.ProjectID,
			WorkerID:     callerID,
			CoverLetter:  input.Body.CoverLetter,
			ProposedRate: input.Body.ProposedRate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Application `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-applications",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/applications",
		Summary:     "List a project's applications",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body []domain.Application `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		caller, err := e.Repo.GetUser(ctx, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		if p.OwnerID != callerID && caller.Role != domain.RoleOperator {
			return nil, handleError(engine.ForbiddenError{Reason: "only the project owner can list applications"})
		}
		items, err := e.Repo.ListApplications(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Application `json:"body"`
		}{Body: nonNilApplications(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-applications",
		Method:      http.MethodGet,
		Path:        "/applications",
		Summary:     "List my applications",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Application `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListApplicationsByWorker(ctx, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Application `json:"body"`
		}{Body: nonNilApplications(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-application",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/applications/{id}/decide",
		Summary:     "Accept or reject an application",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID int64                    `path:"project_id"`
		ID        int64                    `path:"id"`
		Body      DecideApplicationRequest `json:"body"`
	}) (*struct {
		Body domain.Application `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.DecideApplication(ctx, input.ProjectID, input.ID, callerID, input.Body.Accept)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Application `json:"body"`
		}{Body: a}, nil
	})
}

func registerContracts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-contract",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}",
		Summary:     "Get contract",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		c, err := e.Repo.GetContract(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-contract",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/contract",
		Summary:     "Get a project's latest contract",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		c, err := e.Repo.GetContractByProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-contract",
		Method:      http.MethodPost,
		Path:        "/contracts/{id}/sign",
		Summary:     "Sign contract",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SignContract(ctx, input.ID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-contract-status",
		Method:      http.MethodPatch,
		Path:        "/contracts/{id}/status",
		Summary:     "Override contract status",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   int64                    `path:"id"`
		Body SetContractStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetContractStatus(ctx, input.ID, input.Body.Status, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})
}

func registerRatings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-rating",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/ratings",
		Summary:       "Rate a completed project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ProjectID int64               `path:"project_id"`
		Body      SubmitRatingRequest `json:"body"`
	}) (*struct {
		Body domain.Rating `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "invalid_argument", "body required", nil)
		}
		callerID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rt, err := e.SubmitRating(ctx, engine.RatingOptions{
			ProjectID:          input.ProjectID,
			ReviewerID:         callerID,
			RevieweeID:         input.Body.RevieweeID,
			Score:              input.Body.Score,
			Comment:            input.Body.Comment,
			QualityScore:       input.Body.QualityScore,
			CommunicationScore: input.Body.CommunicationScore,
			DeadlineScore:      input.Body.DeadlineScore,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rating `json:"body"`
		}{Body: rt}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List audit events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID  int64  `query:"project_id"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     int64  `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit+1, input.Cursor, input.ProjectID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = items[limit-1].ID
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerStats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "platform-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Platform statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.PlatformStats `json:"body"`
	}, error) {
		callerID, herr := userIDFromContext(ctx)
		if herr != nil {
			return nil, herr
		}
		caller, err := e.Repo.GetUser(ctx, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		if caller.Role != domain.RoleOperator {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only operators can read platform stats", nil)
		}
		s, err := e.Repo.PlatformStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PlatformStats `json:"body"`
		}{Body: s}, nil
	})
}
