package domain

// Project statuses.
const (
	ProjectDraft      = "draft"
	ProjectOpen       = "open"
	ProjectInProgress = "in_progress"
	ProjectReview     = "review"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskCompleted  = "completed"
)

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Contract statuses.
const (
	ContractDraft            = "draft"
	ContractPendingSignature = "pending_signature"
	ContractActive           = "active"
	ContractCompleted        = "completed"
	ContractCancelled        = "cancelled"
	ContractDisputed         = "disputed"
)

// User roles.
const (
	RoleWorker    = "worker"
	RoleRequester = "requester"
	RoleOperator  = "operator"
)

type User struct {
	ID                int64    `json:"id"`
	Email             string   `json:"email"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Role              string   `json:"role" enum:"worker,requester,operator"`
	Bio               string   `json:"bio,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	AvatarURL         string   `json:"avatar_url,omitempty"`
	RatingScore       float64  `json:"rating_score"`
	CompletedProjects int      `json:"completed_projects"`
	Active            bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Project struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Requirements  string   `json:"requirements,omitempty"`
	Budget        float64  `json:"budget"`
	Deadline      *string  `json:"deadline,omitempty" format:"date-time"`
	TechStack     []string `json:"tech_stack,omitempty"`
	Status        string   `json:"status" enum:"draft,open,in_progress,review,completed,cancelled"`
	OwnerID       int64    `json:"owner_id"`
	AssigneeID    *int64   `json:"assignee_id,omitempty"`
	GeneratedSpec string   `json:"generated_spec,omitempty"`
	LLMEstimation string   `json:"llm_estimation,omitempty"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

// Terminal reports whether the project can no longer transition.
func (p Project) Terminal() bool {
	return p.Status == ProjectCompleted || p.Status == ProjectCancelled
}

type Task struct {
	ID             int64   `json:"id"`
	ProjectID      int64   `json:"project_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Complexity     int     `json:"complexity" minimum:"1" maximum:"5"`
	EstimatedHours *int    `json:"estimated_hours,omitempty"`
	Deadline       *string `json:"deadline,omitempty" format:"date-time"`
	Status         string  `json:"status" enum:"pending,in_progress,review,completed"`
	Order          int     `json:"order"`
	AssigneeID     *int64  `json:"assignee_id,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type Application struct {
	ID           int64    `json:"id"`
	ProjectID    int64    `json:"project_id"`
	WorkerID     int64    `json:"worker_id"`
	CoverLetter  string   `json:"cover_letter,omitempty"`
	ProposedRate *float64 `json:"proposed_rate,omitempty"`
	Status       string   `json:"status" enum:"pending,accepted,rejected"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
}

type Contract struct {
	ID                int64   `json:"id"`
	ProjectID         int64   `json:"project_id"`
	RequesterID       int64   `json:"requester_id"`
	WorkerID          int64   `json:"worker_id"`
	TotalAmount       float64 `json:"total_amount"`
	PlatformFee       float64 `json:"platform_fee"`
	WorkerPayment     float64 `json:"worker_payment"`
	Terms             string  `json:"terms"`
	Status            string  `json:"status" enum:"draft,pending_signature,active,completed,cancelled,disputed"`
	RequesterSignedAt *string `json:"requester_signed_at,omitempty" format:"date-time"`
	WorkerSignedAt    *string `json:"worker_signed_at,omitempty" format:"date-time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	CompletedAt       *string `json:"completed_at,omitempty" format:"date-time"`
}

// Signed reports whether both parties have signed.
func (c Contract) Signed() bool {
	return c.RequesterSignedAt != nil && c.WorkerSignedAt != nil
}

type Rating struct {
	ID                 int64  `json:"id"`
	ProjectID          int64  `json:"project_id"`
	ReviewerID         int64  `json:"reviewer_id"`
	RevieweeID         int64  `json:"reviewee_id"`
	Score              int    `json:"score" minimum:"1" maximum:"5"`
	Comment            string `json:"comment,omitempty"`
	QualityScore       *int   `json:"quality_score,omitempty"`
	CommunicationScore *int   `json:"communication_score,omitempty"`
	DeadlineScore      *int   `json:"deadline_score,omitempty"`
	CreatedAt          string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  int64  `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    int64  `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// PlatformStats is the operator-facing aggregate snapshot.
type PlatformStats struct {
	TotalUsers          int `json:"total_users"`
	TotalWorkers        int `json:"total_workers"`
	TotalRequesters     int `json:"total_requesters"`
	TotalProjects       int `json:"total_projects"`
	OpenProjects        int `json:"open_projects"`
	InProgressProjects  int `json:"in_progress_projects"`
	CompletedProjects   int `json:"completed_projects"`
	TotalApplications   int `json:"total_applications"`
	PendingApplications int `json:"pending_applications"`
	TotalContracts      int `json:"total_contracts"`
	ActiveContracts     int `json:"active_contracts"`
}
