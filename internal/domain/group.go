// Package domain provides domain models for idsync.
//
// The remote service returns loosely-typed records; this package narrows
// them into explicitly-shaped snapshot types validated once at the client
// boundary, so the engines never probe open maps.
package domain

// Group is a desired group computed from the CSV source of truth.
// Immutable after construction within a single sync run.
type Group struct {
	// Name is the normalized identifier used in API calls.
	Name string `json:"name" validate:"required,groupname"`

	// OriginalName is the pre-normalization form, set only when the
	// stricter DNS-label naming mode rewrote the identifier.
	OriginalName string `json:"original_name,omitempty"`

	Description string `json:"description,omitempty"`

	// Users holds member identifiers, rendered sorted.
	Users []string `json:"users"`

	Roles []string `json:"roles,omitempty"`
}

// GroupRecord is the remote group snapshot. Read-only input to diffing;
// only ever replaced wholesale via update calls.
type GroupRecord struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Usernames   []string `json:"usernames,omitempty"`
	Users       []string `json:"users,omitempty"`
}

// Members returns the member list, tolerating both field spellings the
// remote API uses.
func (r GroupRecord) Members() []string {
	if len(r.Usernames) > 0 {
		return r.Usernames
	}
	return r.Users
}

// GroupPayload is the full desired payload for group create/update calls.
type GroupPayload struct {
	Name        string   `json:"name" validate:"required,groupname"`
	DisplayName string   `json:"display_name" validate:"required"`
	Usernames   []string `json:"usernames"`
}
