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
	"idsync.io/idsync/internal/pkg/retry"
)

// SyncStats accumulates the outcome of one group reconciliation call.
// Owned exclusively by that call, never shared.
type SyncStats struct {
	Created             int
	Updated             int
	Deleted             int
	Skipped             int
	Errors              int
	SkippedDueToUnknown int
}

// Summary generates the one-line summary rendered by the CLI.
func (s SyncStats) Summary() string {
	return fmt.Sprintf("Summary: created=%d, updated=%d, deleted=%d, skipped=%d, errors=%d",
		s.Created, s.Updated, s.Deleted, s.Skipped, s.Errors)
}

// HasErrors reports whether any per-entity error occurred.
func (s SyncStats) HasErrors() bool {
	return s.Errors > 0
}

// GroupSyncService reconciles desired groups against the remote service.
type GroupSyncService struct {
	repo      GroupRepository
	namespace string
	retry     retry.Policy
}

// GroupSyncOption configures a GroupSyncService.
type GroupSyncOption func(*GroupSyncService)

// WithGroupNamespace overrides the default namespace.
func WithGroupNamespace(namespace string) GroupSyncOption {
	return func(s *GroupSyncService) { s.namespace = namespace }
}

// WithProvisionRetry tunes the retry policy around on-demand user
// creation. The policy retries every error: user creation has no
// side-effect-free probe, so the broad catch is deliberate.
func WithProvisionRetry(p retry.Policy) GroupSyncOption {
	return func(s *GroupSyncService) { s.retry = p }
}

// NewGroupSyncService creates a group engine backed by repo.
func NewGroupSyncService(repo GroupRepository, opts ...GroupSyncOption) *GroupSyncService {
	s := &GroupSyncService{
		repo:  repo,
		retry: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchExistingGroups returns the remote groups keyed by name. Records
// without a name are silently dropped.
func (s *GroupSyncService) FetchExistingGroups(ctx context.Context) (map[string]domain.GroupRecord, error) {
	records, err := s.repo.ListGroups(ctx, s.namespace)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]domain.GroupRecord, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		existing[rec.Name] = rec
	}
	return existing, nil
}

// FetchExistingUsers returns the set of known user identifiers for
// pre-validation, or nil if the fetch failed. The nil return is the
// absence-signal that lets callers fall back to permissive mode.
func (s *GroupSyncService) FetchExistingUsers(ctx context.Context) UserSet {
	records, err := s.repo.ListUserRoles(ctx, s.namespace)
	if err != nil {
		logger.Warn("Could not pre-validate users", zap.Error(err))
		return nil
	}

	users := make(UserSet, len(records))
	for _, rec := range records {
		if id := rec.Identifier(); id != "" {
			users.Add(id)
		}
	}
	return users
}

// SyncGroups reconciles planned groups against the remote snapshot.
//
// With a non-nil existingUsers set (strict mode), a group referencing
// unknown members is skipped without provisioning anything. With a nil set
// (permissive mode), missing members are created on demand through the
// retry policy; members still unresolved afterwards skip the group, one
// error per skipped group.
//
// dryRun suppresses every mutating call while incrementing the same
// counters a real run would, so the dry-run summary mirrors reality.
func (s *GroupSyncService) SyncGroups(ctx context.Context, planned []domain.Group, existing map[string]domain.GroupRecord, existingUsers UserSet, dryRun bool) SyncStats {
	stats := SyncStats{}
	strict := existingUsers != nil

	var current UserSet
	if strict {
		current = existingUsers.Clone()
	} else {
		// Permissive mode: fetch the current users ourselves so missing
		// members can be created as needed.
		current = s.FetchExistingUsers(ctx)
		if current == nil {
			current = make(UserSet)
		}
	}

	for _, grp := range planned {
		desired := append([]string(nil), grp.Users...)
		sort.Strings(desired)

		unknown := s.ensureUsers(ctx, desired, current, strict, dryRun, &stats)
		if len(unknown) > 0 {
			stats.SkippedDueToUnknown++
			stats.Errors++
			errorContext := "after create attempts"
			if strict {
				errorContext = "validation only"
			}
			logger.Error("Skipping group due to unknown users",
				zap.String("group", grp.Name),
				zap.String("context", errorContext),
				zap.String("users", strings.Join(unknown, ", ")))
			continue
		}

		if rec, ok := existing[grp.Name]; ok {
			s.updateGroup(ctx, grp, rec, desired, dryRun, &stats)
		} else {
			s.createGroup(ctx, grp, desired, dryRun, &stats)
		}
	}

	return stats
}

// ensureUsers validates desired members against the known set and, in
// permissive mode, attempts on-demand creation of the missing ones. It
// returns the members still unknown afterwards.
func (s *GroupSyncService) ensureUsers(ctx context.Context, desired []string, current UserSet, strict, dryRun bool, stats *SyncStats) []string {
	unknown := missingFrom(desired, current)

	// Strict validation never silently provisions users.
	if len(unknown) > 0 && strict {
		return unknown
	}

	for _, u := range unknown {
		if dryRun {
			logger.Info("Would create user", zap.String("user", u))
			current.Add(u)
			continue
		}

		_, err := retry.DoValue(ctx, s.retry, func() (*domain.UserRecord, error) {
			return s.repo.ProvisionUser(ctx, s.namespace, u)
		})
		if err != nil {
			stats.Errors++
			logger.Error("Failed to create user after retries",
				zap.String("user", u), zap.Error(err))
			continue
		}
		logger.Info("Created user", zap.String("user", u))
		current.Add(u)
	}

	return missingFrom(desired, current)
}

func missingFrom(desired []string, known UserSet) []string {
	var unknown []string
	for _, u := range desired {
		if !known.Has(u) {
			unknown = append(unknown, u)
		}
	}
	return unknown
}

func (s *GroupSyncService) updateGroup(ctx context.Context, grp domain.Group, rec domain.GroupRecord, desired []string, dryRun bool, stats *SyncStats) {
	current := append([]string(nil), rec.Members()...)
	sort.Strings(current)

	// Member sets compare order-independently, as sorted sequences.
	if equalStrings(current, desired) {
		stats.Skipped++
		logger.Debug("No change for group", zap.String("group", grp.Name))
		return
	}

	if dryRun {
		logger.Info("Would update group",
			zap.String("group", grp.Name), zap.Int("users", len(desired)))
		stats.Updated++
		return
	}

	payload := domain.GroupPayload{
		Name:        grp.Name,
		DisplayName: grp.Name,
		Usernames:   desired,
	}
	if _, err := s.repo.UpdateGroup(ctx, s.namespace, grp.Name, payload); err != nil {
		stats.Errors++
		logGroupFailure("Failed to update group", grp.Name, err)
		return
	}
	stats.Updated++
	logger.Info("Updated group", zap.String("group", grp.Name))
}

func (s *GroupSyncService) createGroup(ctx context.Context, grp domain.Group, desired []string, dryRun bool, stats *SyncStats) {
	if dryRun {
		logger.Info("Would create group",
			zap.String("group", grp.Name), zap.Int("users", len(desired)))
		stats.Created++
		return
	}

	payload := domain.GroupPayload{
		Name:        grp.Name,
		DisplayName: grp.Name,
		Usernames:   desired,
	}
	if _, err := s.repo.CreateGroup(ctx, s.namespace, payload); err != nil {
		stats.Errors++
		logGroupFailure("Failed to create group", grp.Name, err)
		return
	}
	stats.Created++
	logger.Info("Created group", zap.String("group", grp.Name))
}

// logGroupFailure logs a mutation failure, including the raw response body
// when the error exposes one.
func logGroupFailure(msg, name string, err error) {
	fields := []zap.Field{zap.String("group", name), zap.Error(err)}
	var rb responseBodyer
	if errors.As(err, &rb) {
		fields = append(fields, zap.String("response", rb.ResponseBody()))
	}
	logger.Error(msg, fields...)
}

// CleanupOrphanedGroups deletes remote groups absent from the planned set
// and returns the number deleted (or, in dry-run mode, the number that
// would be). Deletion failures are logged and excluded from the count but
// do not abort remaining deletions.
func (s *GroupSyncService) CleanupOrphanedGroups(ctx context.Context, planned []domain.Group, existing map[string]domain.GroupRecord, dryRun bool) int {
	plannedNames := make(map[string]struct{}, len(planned))
	for _, grp := range planned {
		plannedNames[grp.Name] = struct{}{}
	}

	var extra []string
	for name := range existing {
		if _, ok := plannedNames[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	if len(extra) == 0 {
		return 0
	}

	logger.Info("Extra groups in repository not in CSV", zap.Int("count", len(extra)))
	for _, name := range extra {
		logger.Info(" - orphaned group", zap.String("group", name))
	}

	deleted := 0
	for _, name := range extra {
		if dryRun {
			logger.Info("Would delete group", zap.String("group", name))
			deleted++
			continue
		}
		if err := s.repo.DeleteGroup(ctx, s.namespace, name); err != nil {
			logger.Error("Failed to delete group", zap.String("group", name), zap.Error(err))
			continue
		}
		deleted++
		logger.Info("Deleted group", zap.String("group", name))
	}
	return deleted
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
