package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/cli"
	"github.com/hyperjump/crosstab/internal/config"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/server"
	"github.com/hyperjump/crosstab/internal/watcher"
	"github.com/hyperjump/crosstab/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultServerURL = "http://localhost:8080"

// app carries the persistent flags shared by every subcommand.
type app struct {
	configPath string
	debug      bool
	format     string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "crosstab",
		Short:        "Parse, store and search banner survey workbooks",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.format, "format", "text", "output format: text or json")

	root.AddCommand(
		a.serverCmd(),
		a.parseCmd(),
		a.ingestCmd(),
		a.listCmd(),
		a.showCmd(),
		a.questionsCmd(),
		a.questionCmd(),
		a.searchCmd(),
		a.crosstabCmd(),
		a.deleteCmd(),
		a.statusCmd(),
		a.reindexCmd(),
		a.watchCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) outputFormat() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(a.format)
}

// setup loads the config and creates the logger.
func (a *app) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || a.debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, path, logger, nil
}

// withComponents runs fn against directly opened storage and index.
func (a *app) withComponents(cmd *cobra.Command, fn func(ctx context.Context, c *Components) error) error {
	cfg, _, logger, err := a.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(ctx, components)
}

func (a *app) serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server and inbox watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger.Info("config loaded", zap.String("config_path", path), zap.Bool("debug", cfg.Debug || a.debug))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			surveys := components.Surveys
			w := watcher.New(watcher.Config{
				Inboxes:    cfg.Watch.Directories,
				Extensions: cfg.Ingest.AllowedExtensions,
				Recursive:  cfg.Watch.RecursiveOrDefault(),
				OnChange: func(ctx context.Context, p string) error {
					_, err := surveys.IngestFile(ctx, p)
					return err
				},
				OnRemove: surveys.DeleteFile,
			}, watcher.WithLogger(logger))
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer w.Stop()
			go w.IngestExisting()

			srv := server.NewServer(surveys, cfg, logger, server.WithWatcher(w, path))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

func (a *app) parseCmd() *cobra.Command {
	var (
		outputPath string
		pretty     bool
		summary    bool
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "parse <file.xlsx>",
		Short: "Parse a banner workbook and print its JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if cmd.Flags().Changed("config") {
				loaded, _, err := loadConfig(a.configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = loaded
			}
			if workers > 0 {
				cfg.Parser.Workers = workers
			}
			logger, err := utils.NewLogger(a.debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res, err := newParser(cfg, logger).ParseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if summary {
				format, err := a.outputFormat()
				if err != nil {
					return err
				}
				return cli.WriteParseSummary(cmd.OutOrStdout(), res, format)
			}
			if outputPath == "" {
				return cli.WriteJSON(cmd.OutOrStdout(), res, pretty)
			}
			return writeFileAtomic(outputPath, func(w io.Writer) error {
				return cli.WriteJSON(w, res, pretty)
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	cmd.Flags().BoolVar(&summary, "summary", false, "print one line per banner instead of JSON")
	cmd.Flags().IntVar(&workers, "workers", 0, "sheets parsed in parallel (default from config)")
	return cmd
}

// writeFileAtomic writes path through a temp file in the same directory so
// that a failed write leaves any existing file untouched.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (a *app) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Store survey files and index their questions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				out := cmd.OutOrStdout()
				for _, p := range args {
					info, err := os.Stat(p)
					if err != nil {
						return err
					}
					if info.IsDir() {
						n, err := c.Surveys.IngestDirectory(ctx, p)
						fmt.Fprintf(out, "Ingested %d file(s) from %s\n", n, p)
						if err != nil {
							return err
						}
						continue
					}
					sv, err := c.Surveys.IngestFile(ctx, p)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Ingested %s (%s) from %s\n", sv.ID, sv.Kind, filepath.Base(p))
				}
				return nil
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored surveys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				list, err := c.Surveys.List(ctx, offset, limit)
				if err != nil {
					return err
				}
				return cli.WriteSurveys(cmd.OutOrStdout(), list, format)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "surveys to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum surveys to list")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show survey metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				sv, err := c.Surveys.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return cli.WriteSurvey(cmd.OutOrStdout(), sv, format)
			})
		},
	}
}

func (a *app) questionsCmd() *cobra.Command {
	var term string
	cmd := &cobra.Command{
		Use:   "questions <id>",
		Short: "List question ids of a banner survey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				if term != "" {
					matches, err := c.Surveys.SearchQuestions(ctx, args[0], term)
					if err != nil {
						return err
					}
					return cli.WriteQuestionSummaries(cmd.OutOrStdout(), matches, format)
				}
				ids, err := c.Surveys.QuestionIDs(ctx, args[0])
				if err != nil {
					return err
				}
				return cli.WriteQuestionIDs(cmd.OutOrStdout(), ids, format)
			})
		},
	}
	cmd.Flags().StringVar(&term, "search", "", "only questions whose text contains this term")
	return cmd
}

func (a *app) questionCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "question <id> <question-id>",
		Short: "Show one question with its response table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				res, err := c.Surveys.Banner(ctx, args[0])
				if err != nil {
					return err
				}
				rec, err := res.Banner(sheet)
				if err != nil {
					return err
				}
				q, err := rec.Question(args[1])
				if err != nil {
					return err
				}
				return cli.WriteQuestion(cmd.OutOrStdout(), q, columnHeadings(rec), format)
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "banner", "", "banner sheet name (default: first banner)")
	return cmd
}

// columnHeadings labels value columns by their letter and segment.
func columnHeadings(rec *banner.BannerRecord) []string {
	out := make([]string, len(rec.Demographics))
	for i, d := range rec.Demographics {
		out[i] = d.Label
		if i < len(rec.ColumnLabels) {
			out[i] = fmt.Sprintf("%s (%s)", d.Label, rec.ColumnLabels[i])
		}
	}
	return out
}

// buildSearchQuery joins positional args so multi-word queries work with or
// without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func (a *app) searchCmd() *cobra.Command {
	var (
		serverURL string
		q         models.SearchQuery
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search question text across all banner surveys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			q.Query = buildSearchQuery(args)
			if q.Query == "" {
				return models.ErrEmptyQuery
			}
			if serverURL != "" {
				resp, err := searchWithRetry(&q, newAPIClient(serverURL).search)
				if err != nil {
					return err
				}
				return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				resp, err := searchWithRetry(&q, func(q *models.SearchQuery) (*models.SearchResponse, error) {
					return c.Surveys.Search(ctx, q)
				})
				if err != nil {
					return err
				}
				return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, `server URL ("" opens storage directly)`)
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "number of results")
	cmd.Flags().StringVar(&q.SurveyID, "survey", "", "restrict to one survey id")
	cmd.Flags().BoolVar(&q.FuzzyEnabled, "fuzzy", false, "enable fuzzy matching for typo tolerance")
	return cmd
}

// searchWithRetry runs q and, when nothing matched, once more with fuzzy
// matching. The first response is kept if the retry finds nothing either,
// since it carries the spelling suggestions.
func searchWithRetry(q *models.SearchQuery, run func(*models.SearchQuery) (*models.SearchResponse, error)) (*models.SearchResponse, error) {
	resp, err := run(q)
	if err != nil || q.FuzzyEnabled || len(resp.Hits) > 0 {
		return resp, err
	}
	fuzzy := *q
	fuzzy.FuzzyEnabled = true
	retry, err := run(&fuzzy)
	if err != nil || len(retry.Hits) == 0 {
		return resp, nil
	}
	return retry, nil
}

func (a *app) crosstabCmd() *cobra.Command {
	var filters map[string]string
	cmd := &cobra.Command{
		Use:   "crosstab <id> <row-var> <col-var>",
		Short: "Cross-tabulate two columns of a tabular survey",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				ct, err := c.Surveys.CrossTab(ctx, args[0], args[1], args[2], filters)
				if err != nil {
					return err
				}
				return cli.WriteCrossTab(cmd.OutOrStdout(), ct, format)
			})
		},
	}
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "column=value filters, comma separated")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a survey, its stored files and index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				if err := c.Surveys.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Survey deleted: %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show survey, index and disk usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			if serverURL != "" {
				st, err := newAPIClient(serverURL).status()
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), st, format)
			}
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				st, err := c.Surveys.Status(ctx)
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), st, format)
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, `server URL ("" opens storage directly)`)
	return cmd
}

func (a *app) reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the question index from stored surveys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withComponents(cmd, func(ctx context.Context, c *Components) error {
				n, err := c.Surveys.Reindex(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d survey(s)\n", n)
				return nil
			})
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var serverURL string
	var noIngest bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage inbox directories of a running server",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "server URL")

	add := &cobra.Command{
		Use:   "add <dir>",
		Short: "Watch a directory and ingest files dropped into it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient(serverURL).addInbox(path, !noIngest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
			return nil
		},
	}
	add.Flags().BoolVar(&noIngest, "no-ingest", false, "do not ingest files already in the directory")

	remove := &cobra.Command{
		Use:   "remove <dir>",
		Short: "Stop watching a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient(serverURL).removeInbox(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dirs, err := newAPIClient(serverURL).inboxes()
			if err != nil {
				return err
			}
			for _, d := range dirs {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crosstab version %s\n", version)
		},
	}
}
