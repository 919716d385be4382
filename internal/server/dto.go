package server

import (
	"encoding/json"

	"gigboard/internal/domain"
)

// Request payloads

type RegisterUserRequest struct {
	Email     string   `json:"email" format:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      string   `json:"role" enum:"worker,requester,operator"`
	Bio       string   `json:"bio,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

type UpdateProfileRequest struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
}

type CreateProjectRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements string   `json:"requirements,omitempty"`
	Budget       float64  `json:"budget"`
	Deadline     *string  `json:"deadline,omitempty" format:"date-time"`
	TechStack    []string `json:"tech_stack,omitempty"`
}

type UpdateProjectRequest struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Requirements *string  `json:"requirements,omitempty"`
	Budget       *float64 `json:"budget,omitempty"`
	Deadline     *string  `json:"deadline,omitempty" format:"date-time"`
	TechStack    []string `json:"tech_stack,omitempty"`
}

type AssignWorkerRequest struct {
	WorkerID *int64 `json:"worker_id"`
}

type CreateTaskRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Complexity     int     `json:"complexity" minimum:"1" maximum:"5"`
	EstimatedHours *int    `json:"estimated_hours,omitempty"`
	Deadline       *string `json:"deadline,omitempty" format:"date-time"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in_progress,review,completed"`
}

type ApplyRequest struct {
	CoverLetter  string   `json:"cover_letter,omitempty"`
	ProposedRate *float64 `json:"proposed_rate,omitempty"`
}

type DecideApplicationRequest struct {
	Accept bool `json:"accept"`
}

type SetContractStatusRequest struct {
	Status string `json:"status" enum:"active,completed,cancelled,disputed"`
}

type SubmitRatingRequest struct {
	RevieweeID         *int64 `json:"reviewee_id,omitempty"`
	Score              int    `json:"score" minimum:"1" maximum:"5"`
	Comment            string `json:"comment,omitempty"`
	QualityScore       *int   `json:"quality_score,omitempty" minimum:"1" maximum:"5"`
	CommunicationScore *int   `json:"communication_score,omitempty" minimum:"1" maximum:"5"`
	DeadlineScore      *int   `json:"deadline_score,omitempty" minimum:"1" maximum:"5"`
}

type DevLoginRequest struct {
	Email string `json:"email" format:"email"`
}

// Response payloads

type TokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  int64          `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    int64          `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor int64           `json:"next_cursor,omitempty"`
}

// Conversion helpers

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ProjectID:  e.ProjectID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilUsers(in []domain.User) []domain.User {
	if in == nil {
		return []domain.User{}
	}
	return in
}

func nonNilProjects(in []domain.Project) []domain.Project {
	if in == nil {
		return []domain.Project{}
	}
	return in
}

func nonNilTasks(in []domain.Task) []domain.Task {
	if in == nil {
		return []domain.Task{}
	}
	return in
}

func nonNilApplications(in []domain.Application) []domain.Application {
	if in == nil {
		return []domain.Application{}
	}
	return in
}

func nonNilRatings(in []domain.Rating) []domain.Rating {
	if in == nil {
		return []domain.Rating{}
	}
	return in
}
