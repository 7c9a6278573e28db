package model

// Types returned by the console API and held by the application context.

type UserProfile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Avatar         string  `json:"avatar"`
	AvatarURL      string  `json:"avatar_url"`
	IsPasswordSet  bool    `json:"is_password_set"`
	CustomPlanID   string  `json:"id_custom_plan"`
	PlanExpiration *string `json:"plan_expiration"`
}

type WorkspaceRole string

const (
	RoleOwner           WorkspaceRole = "owner"
	RoleAdmin           WorkspaceRole = "admin"
	RoleEditor          WorkspaceRole = "editor"
	RoleNormal          WorkspaceRole = "normal"
	RoleDatasetOperator WorkspaceRole = "dataset_operator"
)

type Workspace struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Plan      string        `json:"plan"`
	Status    string        `json:"status"`
	CreatedAt int64         `json:"created_at"`
	Role      WorkspaceRole `json:"role"`
	Providers []any         `json:"providers"`
}

type App struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	Description string `json:"description"`
}

type AppList struct {
	Data    []App `json:"data"`
	HasMore bool  `json:"has_more"`
	Limit   int   `json:"limit"`
	Page    int   `json:"page"`
	Total   int   `json:"total"`
}

type VersionInfo struct {
	CurrentEnv     string `json:"current_env"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
	ReleaseDate    string `json:"release_date"`
	ReleaseNotes   string `json:"release_notes"`
	Version        string `json:"version"`
	CanAutoUpdate  bool   `json:"can_auto_update"`
}

// ProfileResponse is a user profile together with the server build headers.
type ProfileResponse struct {
	Profile UserProfile
	Version string // X-Version
	Env     string // X-Env
}

// PayRequestResponse is the body returned by the payment request endpoint.
type PayRequestResponse struct {
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Alias   string `json:"alies,omitempty"`
	Message string `json:"message,omitempty"`
}

// PayStatusResponse is the body returned by the payment status endpoint.
type PayStatusResponse struct {
	Status  string `json:"status"`
	Alias   string `json:"alies,omitempty"`
	Message string `json:"message,omitempty"`
}

const StatusSuccess = "success"
