// Package main is the entry point for the idsync CLI.
//
// idsync reconciles users and groups from a CSV export (the source of
// truth) against a remote identity service: entities present in the CSV
// are created or updated, and with --prune, remote entities absent from
// the CSV are deleted.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"idsync.io/idsync/internal/client"
	"idsync.io/idsync/internal/config"
	"idsync.io/idsync/internal/parser"
	apperrors "idsync.io/idsync/internal/pkg/errors"
	"idsync.io/idsync/internal/pkg/logger"
	"idsync.io/idsync/internal/pkg/retry"
	"idsync.io/idsync/internal/service"
)

const (
	exitRuntimeError = 1
	exitUsageError   = 2
)

type options struct {
	csvPath    string
	dryRun     bool
	prune      bool
	logLevel   string
	maxRetries int
	timeout    time.Duration
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "idsync",
		Short: "Reconcile identity-service users and groups from a CSV export",
		Long: `idsync treats a CSV export as the source of truth and reconciles the
remote identity service to match: users and groups present in the CSV are
created or updated, and with --prune, remote entities absent from the CSV
are deleted.

Authentication via environment variables:
  TENANT_ID (required)        tenant identifier
  AUTH_API_TOKEN              API token authentication
  AUTH_CERT_FILE + AUTH_CERT_KEY_FILE
                              certificate-based authentication
  AUTH_P12_FILE + AUTH_P12_PASSWORD
                              PKCS12 archive authentication`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.csvPath, "csv", "", "path to CSV export (required)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log actions without calling the API")
	flags.BoolVar(&opts.prune, "prune", false, "delete remote users and groups that don't exist in the CSV")
	flags.StringVar(&opts.logLevel, "log-level", "", "logging level (debug, info, warn, error)")
	flags.IntVar(&opts.maxRetries, "max-retries", 0, "max retries for API calls")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout")
	_ = rootCmd.MarkFlagRequired("csv")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperrors.IsUsage(err) {
			os.Exit(exitUsageError)
		}
		os.Exit(exitRuntimeError)
	}
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override config where set.
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.HTTP.MaxRetries = opts.maxRetries
	}
	if cmd.Flags().Changed("timeout") {
		cfg.HTTP.Timeout = opts.timeout
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger.Info("Starting sync run",
		zap.String("run_id", runID),
		zap.String("csv", opts.csvPath),
		zap.Bool("dry_run", opts.dryRun),
		zap.Bool("prune", opts.prune),
	)

	repo, err := client.New(client.Config{
		TenantID:          cfg.Tenant.ID,
		APIURL:            cfg.Tenant.APIURL,
		APIToken:          cfg.Auth.APIToken,
		CertFile:          cfg.Auth.CertFile,
		CertKeyFile:       cfg.Auth.CertKeyFile,
		P12File:           cfg.Auth.P12File,
		P12Password:       cfg.Auth.P12Password,
		Timeout:           cfg.HTTP.Timeout,
		MaxRetries:        cfg.HTTP.MaxRetries,
		BackoffMin:        cfg.HTTP.BackoffMin,
		BackoffMax:        cfg.HTTP.BackoffMax,
		BackoffMultiplier: cfg.HTTP.BackoffMultiplier,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	groupStats, err := syncGroupSection(ctx, cfg, repo, opts)
	if err != nil {
		return err
	}

	userStats, err := syncUserSection(ctx, cfg, repo, opts)
	if err != nil {
		return err
	}

	renderFinalSummary(time.Since(start), groupStats, userStats, opts.prune)
	return nil
}

func syncGroupSection(ctx context.Context, cfg *config.Config, repo *client.Client, opts *options) (service.SyncStats, error) {
	banner("GROUP SYNCHRONIZATION")

	planned, err := parser.Groups(opts.csvPath, parser.Options{DNSLabels: cfg.Sync.DNSLabels})
	if err != nil {
		return service.SyncStats{}, err
	}

	fmt.Printf("Groups planned from CSV: %d\n", len(planned))
	for _, grp := range planned {
		fmt.Printf(" - %s: %d users\n", grp.Name, len(grp.Users))
	}

	svc := service.NewGroupSyncService(repo,
		service.WithGroupNamespace(cfg.Sync.Namespace),
		service.WithProvisionRetry(retry.Policy{
			Attempts:    cfg.Sync.RetryAttempts,
			MinInterval: cfg.Sync.BackoffMin,
			MaxInterval: cfg.Sync.BackoffMax,
			Multiplier:  cfg.Sync.BackoffMultiplier,
		}),
	)

	existing, err := svc.FetchExistingGroups(ctx)
	if err != nil {
		return service.SyncStats{}, apperrors.Wrap(err, apperrors.CodeAPIRequestFailed,
			"list groups", apperrors.KindRuntime)
	}

	// Pre-validate user existence; nil means permissive mode.
	existingUsers := svc.FetchExistingUsers(ctx)

	stats := svc.SyncGroups(ctx, planned, existing, existingUsers, opts.dryRun)

	if opts.prune {
		stats.Deleted = svc.CleanupOrphanedGroups(ctx, planned, existing, opts.dryRun)
	}

	fmt.Println()
	fmt.Println(stats.Summary())

	if stats.HasErrors() {
		return stats, apperrors.Runtime(apperrors.CodeAPIRequestFailed,
			"one or more group operations failed; see logs for details")
	}
	return stats, nil
}

func syncUserSection(ctx context.Context, cfg *config.Config, repo *client.Client, opts *options) (service.UserSyncStats, error) {
	banner("USER SYNCHRONIZATION")

	result, err := parser.Users(opts.csvPath)
	if err != nil {
		return service.UserSyncStats{}, err
	}

	renderValidation(result, opts.dryRun)

	svc := service.NewUserSyncService(repo, service.WithUserNamespace(cfg.Sync.Namespace))

	existing, err := svc.FetchExistingUsers(ctx)
	if err != nil {
		return service.UserSyncStats{}, apperrors.Wrap(err, apperrors.CodeAPIRequestFailed,
			"list users", apperrors.KindRuntime)
	}
	fmt.Printf("Existing users in remote service: %d\n", len(existing))

	stats := svc.SyncUsers(ctx, result.Users, existing, opts.dryRun, opts.prune)

	fmt.Println()
	fmt.Println(stats.Summary())

	if stats.HasErrors() {
		fmt.Println("\nErrors encountered:")
		for _, detail := range stats.ErrorDetails {
			fmt.Printf(" - %s: %s failed - %s\n", detail.Email, detail.Operation, detail.Error)
		}
		return stats, apperrors.Runtime(apperrors.CodeAPIRequestFailed,
			"one or more user operations failed; see details above")
	}
	return stats, nil
}
