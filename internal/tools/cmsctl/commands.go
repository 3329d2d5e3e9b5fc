package cmsctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/louisbranch/folio/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/folio/internal/services/cms/api/httpapi"
	server "github.com/louisbranch/folio/internal/services/cms/app"
	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/fixtures"
	"github.com/louisbranch/folio/internal/services/cms/storage/sqlite"
)

func (c *cli) movePageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move-page FROM_ID TO_ID",
		Short: "Move a page to be the last child of another page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromID, err := parseID("FROM_ID", args[0])
			if err != nil {
				return err
			}
			toID, err := parseID("TO_ID", args[1])
			if err != nil {
				return err
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *server.Runtime) error {
				from, err := rt.Tree.Get(ctx, fromID)
				if err != nil {
					return err
				}
				to, err := rt.Tree.Get(ctx, toID)
				if err != nil {
					return err
				}
				if _, err := rt.Tree.Move(ctx, from.ID, to.ID, domain.PositionLastChild); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved page '%s' (id %d) to '%s' (id %d)\n", from.Title, from.ID, to.Title, to.ID)
				return nil
			})
		},
	}
}

func (c *cli) setURLPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url-paths",
		Short: "Reset the url_path of every page from its root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *server.Runtime) error {
				saved, err := rt.SetURLPaths(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated url paths of %d pages\n", saved)
				return nil
			})
		},
	}
}

func (c *cli) migrateCommand() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back schema migrations",
	}
	withDB := func(fn func(store *sqlite.Store) error) error {
		if dir := filepath.Dir(c.cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.OpenDB(c.cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(store)
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(store *sqlite.Store) error {
					applied, err := store.Migrate()
					if err != nil {
						return err
					}
					if len(applied) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
						return nil
					}
					for _, name := range applied {
						fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(store *sqlite.Store) error {
					status, err := store.MigrationStatus()
					if err != nil {
						return err
					}
					printMigrationStatus(cmd, status)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(store *sqlite.Store) error {
					name, err := store.RollbackMigration()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s\n", name)
					return nil
				})
			},
		},
	)
	return migrate
}

func printMigrationStatus(cmd *cobra.Command, status []sqlitemigrate.Migration) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
	for _, m := range status {
		state, at := "pending", "-"
		if m.Applied {
			state, at = "applied", m.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, state, at)
	}
	_ = w.Flush()
}

func (c *cli) loadFixtureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load-fixture FILE",
		Short: "Load users, groups, pages and workflows from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := fixtures.ParseFile(args[0])
			if err != nil {
				return err
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *server.Runtime) error {
				loader := fixtures.Loader{Tree: rt.Tree, Accounts: rt.Store, Moderation: rt.Store, Logger: c.logger}
				result, err := loader.Load(ctx, manifest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d groups, %d users, %d pages, %d workflows\n",
					result.Groups, result.Users, result.Pages, result.Workflows)
				return nil
			})
		},
	}
}

func (c *cli) issueTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token USER_ID",
		Short: "Print an admin API bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("USER_ID", args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(c.cfg.JWTSecret) == "" {
				return errSecretRequired
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *server.Runtime) error {
				user, err := rt.Store.GetUser(ctx, userID)
				if err != nil {
					return err
				}
				if !user.IsActive {
					return fmt.Errorf("user %d is not active", user.ID)
				}
				token, err := httpapi.IssueToken([]byte(c.cfg.JWTSecret), user.ID, ttl, c.opts.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func (c *cli) sendModerationNotificationCommand() *cobra.Command {
	var excludeID int64
	cmd := &cobra.Command{
		Use:   "send-moderation-notification REVISION_ID NOTIFICATION",
		Short: "Mail a moderation notification about a revision",
		Long: "Mail a moderation notification about a revision. NOTIFICATION is one of " +
			"submitted_for_moderation, approved_moderation or rejected_moderation.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("REVISION_ID", args[0])
			if err != nil {
				return err
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *server.Runtime) error {
				revision, err := rt.Store.GetRevision(ctx, revisionID)
				if err != nil {
					return err
				}
				var excluded *domain.User
				if excludeID > 0 {
					user, err := rt.Store.GetUser(ctx, excludeID)
					if err != nil {
						return err
					}
					excluded = &user
				}
				sent, err := rt.Moderation.SendModerationNotification(ctx, revision, args[1], excluded)
				if err != nil {
					return err
				}
				if sent == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No recipients for %s on revision %d\n", args[1], revision.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %s for revision %d to %d recipients\n", args[1], revision.ID, sent)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&excludeID, "exclude", 0, "user id to leave out of the recipients")
	return cmd
}
