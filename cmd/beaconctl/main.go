package main

import (
	"Beacon/internal/api/config"
	"Beacon/internal/job"
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/database"
	"Beacon/internal/pkg/logger"
	"Beacon/internal/pkg/mongo"
	"Beacon/internal/pkg/redis"
	"Beacon/internal/pkg/security"
	"Beacon/internal/service"
	"Beacon/internal/wire"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "beaconctl",
		Short:        "Beacon 运维工具",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(); err != nil {
				return err
			}
			logger.InitLogger()
			return nil
		},
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newTestConnectionCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newPurgeCacheCmd())

	return rootCmd
}

// newInitCmd 创建集合索引，可重复执行
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create MongoDB indexes for posts and post_metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := mongo.InitMongo(config.Cfg.Mongo)
			if err != nil {
				return fmt.Errorf("connect mongo: %w", err)
			}
			defer mongo.Close(db)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := mongo.EnsureIndexes(ctx, mongo.NewPostMetricsRepo(db), mongo.NewSocialPostRepo(db)); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ready")
			return nil
		},
	}
}

func newTestConnectionCmd() *cobra.Command {
	var userID uint64

	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check platform connectivity for a user (0 = global accounts)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(func(core *wire.Core) error {
				return printJSON(cmd.OutOrStdout(), core.PlatformSvc.TestConnections(cmd.Context(), userID))
			})
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	return cmd
}

// newRefreshCmd 同步执行批量刷新，与定时任务共用分布式锁
func newRefreshCmd() *cobra.Command {
	var userID uint64

	cmd := &cobra.Command{
		Use:   "refresh [post-id...]",
		Short: "Refresh analytics of the given posts, one user's posts, or every live post",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := job.RefreshTarget{PostIDs: args}
			if len(args) == 0 && userID != 0 {
				target.UserID = &userID
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withCore(func(core *wire.Core) error {
				res, err := core.RefreshJob.Execute(ctx, target)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), service.ToBulkResultDTO(res))
			})
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "refresh every live post of this user")
	return cmd
}

// newTokenCmd 本地调试用，签发一个访问 token
func newTokenCmd() *cobra.Command {
	var (
		userID uint64
		admin  bool
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			roles := []string{"USER"}
			if admin {
				roles = append(roles, consts.RoleAdmin)
			}
			token, err := security.GenerateToken(userID, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the ADMIN role")
	cmd.Flags().DurationVar(&ttl, "ttl", security.JWTExpirationTime, "token lifetime")
	return cmd
}

func newPurgeCacheCmd() *cobra.Command {
	var userIDs []uint

	cmd := &cobra.Command{
		Use:   "purge-cache",
		Short: "Drop cached analytics summaries (global plus the given users)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := redis.InitRedis(config.Cfg.Redis); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redis.Close()

			keys := []string{consts.AnalyticsGlobalSummaryKey}
			for _, id := range userIDs {
				keys = append(keys, consts.AnalyticsUserSummaryKey+strconv.FormatUint(uint64(id), 10))
			}
			if err := redis.DeleteKey(cmd.Context(), keys...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d key(s)\n", len(keys))
			return nil
		},
	}
	cmd.Flags().UintSliceVar(&userIDs, "user", nil, "user ids whose summary cache should be dropped")
	return cmd
}

// withCore 建立 MySQL、Redis、Mongo 连接并组装业务组件
func withCore(fn func(core *wire.Core) error) error {
	cfg := config.Cfg

	dbCfg := cfg.DB
	db, err := database.NewGormDB(&dbCfg)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := redis.InitRedis(cfg.Redis); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redis.Close()

	mongoDB, err := mongo.InitMongo(cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer mongo.Close(mongoDB)

	return fn(wire.BuildCore(db, mongoDB, cfg))
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
