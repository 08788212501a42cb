package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"idsync.io/idsync/internal/domain"
	"idsync.io/idsync/internal/pkg/logger"
)

// ErrorDetail is a structured per-user failure record.
type ErrorDetail struct {
	Email     string
	Operation string
	Error     string
}

// UserSyncStats accumulates the outcome of one user reconciliation call.
type UserSyncStats struct {
	Created      int
	Updated      int
	Deleted      int
	Unchanged    int
	Errors       int
	ErrorDetails []ErrorDetail
}

// Summary generates the one-line summary rendered by the CLI.
func (s UserSyncStats) Summary() string {
	return fmt.Sprintf("Users: created=%d, updated=%d, deleted=%d, unchanged=%d, errors=%d",
		s.Created, s.Updated, s.Deleted, s.Unchanged, s.Errors)
}

// HasErrors reports whether any per-entity error occurred.
func (s UserSyncStats) HasErrors() bool {
	return s.Errors > 0
}

// UserSyncService reconciles desired users against the remote service.
type UserSyncService struct {
	repo      UserRepository
	namespace string
}

// UserSyncOption configures a UserSyncService.
type UserSyncOption func(*UserSyncService)

// WithUserNamespace overrides the default namespace.
func WithUserNamespace(namespace string) UserSyncOption {
	return func(s *UserSyncService) { s.namespace = namespace }
}

// NewUserSyncService creates a user engine backed by repo.
func NewUserSyncService(repo UserRepository, opts ...UserSyncOption) *UserSyncService {
	s := &UserSyncService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchExistingUsers returns the remote users keyed by lowercased email.
// Records without an email are dropped.
func (s *UserSyncService) FetchExistingUsers(ctx context.Context) (map[string]domain.UserRecord, error) {
	records, err := s.repo.ListUsers(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]domain.UserRecord, len(records))
	for _, rec := range records {
		email := strings.ToLower(rec.Email)
		if email == "" {
			continue
		}
		existing[email] = rec
	}

	logger.Info("Fetched existing users", zap.Int("count", len(existing)))
	return existing, nil
}

// SyncUsers reconciles planned users against the remote snapshot. Each
// create/update/delete failure is recorded and reconciliation continues;
// with deleteUsers set, remote users absent from the planned set are
// deleted. dryRun suppresses every repository call while keeping the
// counters identical to a real run.
func (s *UserSyncService) SyncUsers(ctx context.Context, planned []domain.User, existing map[string]domain.UserRecord, dryRun, deleteUsers bool) UserSyncStats {
	stats := UserSyncStats{}

	plannedEmails := make(map[string]struct{}, len(planned))
	for _, user := range planned {
		plannedEmails[strings.ToLower(user.Email)] = struct{}{}
	}

	for _, user := range planned {
		emailLower := strings.ToLower(user.Email)

		rec, ok := existing[emailLower]
		if !ok {
			s.createUser(ctx, user, dryRun, &stats)
			continue
		}
		if userNeedsUpdate(user, rec) {
			s.updateUser(ctx, user, dryRun, &stats)
		} else {
			logger.Debug("User unchanged", zap.String("email", user.Email))
			stats.Unchanged++
		}
	}

	if deleteUsers {
		for _, emailLower := range sortedMapKeys(existing) {
			if _, ok := plannedEmails[emailLower]; !ok {
				s.deleteUser(ctx, emailLower, dryRun, &stats)
			}
		}
	}

	logger.Info("User sync complete", zap.String("summary", stats.Summary()))
	return stats
}

// userNeedsUpdate compares the fields the remote owns copies of: scalar
// fields by exact inequality, groups as a set.
func userNeedsUpdate(planned domain.User, existing domain.UserRecord) bool {
	if planned.DisplayName != existing.DisplayName ||
		planned.FirstName != existing.FirstName ||
		planned.LastName != existing.LastName ||
		planned.Active != existing.Active {
		return true
	}
	return !equalStringSets(planned.Groups, existing.Groups)
}

func equalStringSets(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	if len(set) != setLen(b) {
		return false
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func setLen(values []string) int {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return len(set)
}

func (s *UserSyncService) createUser(ctx context.Context, user domain.User, dryRun bool, stats *UserSyncStats) {
	if dryRun {
		logger.Info("[DRY-RUN] Would create user", zap.String("email", user.Email))
		stats.Created++
		return
	}

	payload := domain.NewUserCreatePayload(user)
	if _, err := s.repo.CreateUser(ctx, s.namespace, payload); err != nil {
		s.recordFailure(stats, user.Email, "create", err)
		return
	}
	stats.Created++
	logger.Info("Created user", zap.String("email", user.Email))
}

func (s *UserSyncService) updateUser(ctx context.Context, user domain.User, dryRun bool, stats *UserSyncStats) {
	if dryRun {
		logger.Info("[DRY-RUN] Would update user", zap.String("email", user.Email))
		stats.Updated++
		return
	}

	if _, err := s.repo.UpdateUser(ctx, s.namespace, user.Email, user); err != nil {
		s.recordFailure(stats, user.Email, "update", err)
		return
	}
	stats.Updated++
	logger.Info("Updated user", zap.String("email", user.Email))
}

func (s *UserSyncService) deleteUser(ctx context.Context, email string, dryRun bool, stats *UserSyncStats) {
	if dryRun {
		logger.Info("[DRY-RUN] Would delete user", zap.String("email", email))
		stats.Deleted++
		return
	}

	if err := s.repo.DeleteUser(ctx, s.namespace, email); err != nil {
		s.recordFailure(stats, email, "delete", err)
		return
	}
	stats.Deleted++
	logger.Info("Deleted user", zap.String("email", email))
}

// recordFailure captures a per-user operational error without aborting the
// run, including the raw response body when the error exposes one.
func (s *UserSyncService) recordFailure(stats *UserSyncStats, email, operation string, err error) {
	fields := []zap.Field{
		zap.String("email", email),
		zap.String("operation", operation),
		zap.Error(err),
	}
	var rb responseBodyer
	if errors.As(err, &rb) {
		fields = append(fields, zap.String("response", rb.ResponseBody()))
	}
	logger.Error("User operation failed", fields...)

	stats.Errors++
	stats.ErrorDetails = append(stats.ErrorDetails, ErrorDetail{
		Email:     email,
		Operation: operation,
		Error:     err.Error(),
	})
}

// CleanupOrphanedUsers deletes remote users absent from the planned set.
// Standalone variant of the deletion half of SyncUsers, with the same
// per-entity failure isolation and dry-run semantics. Email comparison is
// case-insensitive on both sides.
func (s *UserSyncService) CleanupOrphanedUsers(ctx context.Context, planned []domain.User, existing map[string]domain.UserRecord, dryRun bool) UserSyncStats {
	stats := UserSyncStats{}

	plannedEmails := make(map[string]struct{}, len(planned))
	for _, user := range planned {
		plannedEmails[strings.ToLower(user.Email)] = struct{}{}
	}

	var extra []string
	for email := range existing {
		if _, ok := plannedEmails[strings.ToLower(email)]; !ok {
			extra = append(extra, email)
		}
	}
	sort.Strings(extra)

	if len(extra) == 0 {
		return stats
	}

	logger.Info("Extra users in repository not in CSV", zap.Int("count", len(extra)))
	for _, email := range extra {
		logger.Info(" - orphaned user", zap.String("email", email))
	}

	for _, email := range extra {
		s.deleteUser(ctx, email, dryRun, &stats)
	}
	return stats
}

func sortedMapKeys(m map[string]domain.UserRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
