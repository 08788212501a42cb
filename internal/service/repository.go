// Package service implements the state-based reconciliation engines for
// groups and users.
//
// The CSV source of truth is the desired state; the remote identity
// service is the observed state. Engines diff the two and issue a minimal,
// idempotent set of create/update/delete calls with per-entity failure
// isolation: one bad group or user never prevents processing of the rest.
package service

import (
	"context"

	"idsync.io/idsync/internal/domain"
)

// GroupRepository is the remote-state contract consumed by the group
// engine. An empty namespace selects the repository's default scope.
type GroupRepository interface {
	ListGroups(ctx context.Context, namespace string) ([]domain.GroupRecord, error)
	CreateGroup(ctx context.Context, namespace string, payload domain.GroupPayload) (*domain.GroupRecord, error)
	UpdateGroup(ctx context.Context, namespace, name string, payload domain.GroupPayload) (*domain.GroupRecord, error)
	DeleteGroup(ctx context.Context, namespace, name string) error

	ListUserRoles(ctx context.Context, namespace string) ([]domain.UserRecord, error)
	ProvisionUser(ctx context.Context, namespace, email string) (*domain.UserRecord, error)
}

// UserRepository is the remote-state contract consumed by the user engine.
type UserRepository interface {
	ListUsers(ctx context.Context, namespace string) ([]domain.UserRecord, error)
	CreateUser(ctx context.Context, namespace string, payload domain.UserCreatePayload) (*domain.UserRecord, error)
	UpdateUser(ctx context.Context, namespace, email string, user domain.User) (*domain.UserRecord, error)
	DeleteUser(ctx context.Context, namespace, email string) error
}

// responseBodyer is implemented by errors that carry a raw response body
// worth logging alongside the failure.
type responseBodyer interface {
	ResponseBody() string
}

// UserSet tracks known user identifiers. A nil UserSet is the
// absence-signal: "could not validate", distinct from "validated, zero
// users".
type UserSet map[string]struct{}

// NewUserSet builds a set from identifiers.
func NewUserSet(ids ...string) UserSet {
	s := make(UserSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier.
func (s UserSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports membership.
func (s UserSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone copies the set. Cloning nil yields an empty, usable set.
func (s UserSet) Clone() UserSet {
	clone := make(UserSet, len(s))
	for id := range s {
		clone.Add(id)
	}
	return clone
}
