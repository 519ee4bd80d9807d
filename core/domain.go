package core

import "github.com/google/uuid"

const (
	PathAPIVersion = "/apiversion"
	PathConfig     = "/config"
	PathTelemetry  = "/telemetry"
	PathRemoveUser = "/user/remove"
	PathHello      = "/hello"
)

const (
	HeaderAPIKey     = "api-key"
	HeaderCDIVersion = "cdi-version"
)

const (
	StatusOK  = "OK"
	HelloBody = "Hello"
)

type APIVersions struct {
	Versions []string `json:"versions"`
}

// CoreConfig is the answer of the config endpoint. Path is only present when
// the core allows the caller to read it.
type CoreConfig struct {
	Status string  `json:"status"`
	Path   *string `json:"path,omitempty"`
}

type TelemetryStatus struct {
	Exists      bool    `json:"exists"`
	TelemetryID *string `json:"telemetryId,omitempty"`
}

type Status struct {
	Status string `json:"status"`
}

// IsOK reports whether the core acknowledged the operation. A non OK status is
// a valid answer, not a failure.
func (s Status) IsOK() bool {
	return s.Status == StatusOK
}

type removeUserBody struct {
	UserID string `json:"userId"`
}

func newRemoveUserBody(userID uuid.UUID) removeUserBody {
	return removeUserBody{UserID: userID.String()}
}

type UsersRequest struct {
	PaginationToken string
	Limit           int
	RecipeIDs       []string
}

type UsersPage struct {
	Users               []UserEntry
	NextPaginationToken string
}

type UserEntry struct {
	RecipeID string
	UserID   uuid.UUID
	Email    string
}

var (
	configRequiredFields     = []string{"status"}
	telemetryRequiredFields  = []string{"exists"}
	statusRequiredFields     = []string{"status"}
	apiVersionRequiredFields = []string{"versions"}
)
