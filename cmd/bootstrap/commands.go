package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidassist-api/internal/config"
	"vidassist-api/internal/wire"
	"vidassist-api/pkg/logger"
)

type cfgKey struct{}

func withConfig(cmd *cobra.Command, cfg *config.Config) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cfgKey{}, cfg)
}

// configFrom 由 PersistentPreRunE 写入，子命令里一定存在
func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(cfgKey{}).(*config.Config)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bootstrap",
		Short:         "Operational bootstrap for vidassist-api",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
			cmd.SetContext(withConfig(cmd, cfg))
			return nil
		},
	}
	root.AddCommand(newMigrateCmd(), newSetPlanCmd(), newIssueTokenCmd(), newValidateCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			// 打开连接时由 provider 同步表结构
			cfg.Database.Postgres.AutoMigrate = true
			_, cleanup, err := wire.InitializePostgresOnly(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			cleanup()
			logger.Info(cmd.Context(), "schema migrated")
			return nil
		},
	}
}

func newSetPlanCmd() *cobra.Command {
	var plan string
	cmd := &cobra.Command{
		Use:     "set-plan <owner-id>",
		Short:   "Assign an entitlement plan to an owner",
		Example: "  bootstrap set-plan user_123 --plan pro",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			if _, ok := cfg.Entitlements.Plans[plan]; !ok {
				return fmt.Errorf("unknown plan %q", plan)
			}
			data, cleanup, err := wire.InitializePostgresOnly(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer cleanup()

			if err := data.OwnerRepo.SetPlan(cmd.Context(), args[0], plan); err != nil {
				return fmt.Errorf("set owner plan: %w", err)
			}
			logger.Info(cmd.Context(), "owner plan set", "owner_id", args[0], "plan", plan)
			return nil
		},
	}
	cmd.Flags().StringVar(&plan, "plan", "pro", "plan name from entitlements.plans")
	return cmd
}

func newIssueTokenCmd() *cobra.Command {
	var (
		email string
		plan  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token <owner-id>",
		Short: "Print a signed access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			token, err := wire.ProvideJWTManager(configFrom(cmd)).GenerateToken(args[0], email, plan, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			// 令牌只写 stdout，不进日志
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&plan, "plan", "", "plan claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate configuration without connecting to anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "config ok: env=%s session=%s llm=%s\n",
				cfg.App.Env, cfg.Session.Backend, cfg.LLM.DefaultProvider)
			return err
		},
	}
}
