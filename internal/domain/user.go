package domain

// User is a desired user computed from the CSV source of truth.
// Email is the unique identifier; Groups is used for cross-reference and
// reporting only, never to mutate group membership from the user engine.
type User struct {
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Active      bool     `json:"active"`
	Groups      []string `json:"groups"`
}

// ResolvedUsername returns the username, defaulting to the email.
func (u User) ResolvedUsername() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// UserRecord is the remote user snapshot, keyed by lowercased email in
// lookup maps. Read-only input to diffing.
type UserRecord struct {
	Email       string   `json:"email"`
	Username    string   `json:"username,omitempty"`
	Name        string   `json:"name,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Active      bool     `json:"active,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// Identifier returns the username or email, whichever is set first.
// Used when building the known-user set for group member validation.
func (r UserRecord) Identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// Account type markers sent on user creation. VOLTERRA_MANAGED provisions
// local (non-SSO) users.
const (
	UserTypeUser   = "USER"
	IdmTypeManaged = "VOLTERRA_MANAGED"
)

// UserCreatePayload is the creation payload for the user engine. It is
// deliberately not the full model dump: the remote API rejects unknown
// fields on creation.
type UserCreatePayload struct {
	Email     string `json:"email" validate:"required"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Type      string `json:"type"`
	IdmType   string `json:"idm_type"`
}

// NewUserCreatePayload builds the creation payload for a desired user.
func NewUserCreatePayload(u User) UserCreatePayload {
	return UserCreatePayload{
		Email:     u.Email,
		Name:      u.ResolvedUsername(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Type:      UserTypeUser,
		IdmType:   IdmTypeManaged,
	}
}

// UserProvisionPayload is the minimal payload for on-demand user creation
// during group sync.
type UserProvisionPayload struct {
	Email string `json:"email" validate:"required"`
}
