package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/app"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/config"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "pvpadmin",
		Short:        "PVP maintenance commands",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSyncRankingsCmd(),
		newRebuildRankingCmd(),
		newSeasonsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}

// withApp 명령 하나 동안 연결 유지
func withApp(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
			if err != nil {
				return err
			}
			defer db.Close()

			return database.Migrate(db)
		},
	}
}

func newSyncRankingsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync-rankings",
		Short: "Recompute every ranking category for all players",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, timeout, func(ctx context.Context, a *app.App) error {
				synced, err := a.RankingService.SyncAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced %d players\n", synced)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline")
	return cmd
}

func newRebuildRankingCmd() *cobra.Command {
	var (
		category string
		seasonID int64
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rebuild-ranking",
		Short: "Reload a ranking index from persisted rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, timeout, func(ctx context.Context, a *app.App) error {
				cat := models.RankingCategory(category)
				season := seasonID
				if season < 0 {
					current, err := a.RankingService.SeasonFor(ctx, cat)
					if err != nil {
						return err
					}
					season = current
				}

				loaded, err := a.RankingService.Rebuild(ctx, cat, season)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s season %d: %d entries\n", cat, season, loaded)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", string(models.RankingPVPRating), "ranking category")
	// -1 이면 카테고리의 현재 시즌
	cmd.Flags().Int64Var(&seasonID, "season", -1, "season id")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline")
	return cmd
}

func newSeasonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasons",
		Short: "Inspect and switch seasons",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List seasons",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, 30*time.Second, func(ctx context.Context, a *app.App) error {
					seasons, err := a.SeasonService.List(ctx)
					if err != nil {
						return err
					}
					for _, s := range seasons {
						marker := " "
						if s.IsActive {
							marker = "*"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %d\t%s\t%s ~ %s\n", marker, s.ID, s.Name,
							s.StartAt.Format(time.DateOnly), s.EndAt.Format(time.DateOnly))
					}
					return nil
				})
			},
		},
		seasonSwitchCmd("activate", "Make a season the active one", func(ctx context.Context, a *app.App, id int64) error {
			return a.SeasonService.Activate(ctx, id)
		}),
		seasonSwitchCmd("end", "End a season", func(ctx context.Context, a *app.App, id int64) error {
			return a.SeasonService.End(ctx, id)
		}),
	)
	return cmd
}

func seasonSwitchCmd(use, short string, fn func(ctx context.Context, a *app.App, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <season-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscan(args[0], &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid season id %q", args[0])
			}
			return withApp(cmd, 30*time.Second, func(ctx context.Context, a *app.App) error {
				if err := fn(ctx, a, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "season %d: %s done\n", id, use)
				return nil
			})
		},
	}
}
