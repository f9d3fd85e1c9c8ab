package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/scorecard/internal/adapters/export/render"
	"github.com/evanschultz/scorecard/internal/adapters/export/xlsx"
	"github.com/evanschultz/scorecard/internal/adapters/matrix"
	serveradapter "github.com/evanschultz/scorecard/internal/adapters/server"
	servercommon "github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/evanschultz/scorecard/internal/adapters/storage/sqlite"
	"github.com/evanschultz/scorecard/internal/advice"
	"github.com/evanschultz/scorecard/internal/app"
	"github.com/evanschultz/scorecard/internal/config"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/evanschultz/scorecard/internal/platform"
	"github.com/evanschultz/scorecard/internal/tui"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree without fang styling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	step3Path  string
}

// newRootCommand builds the command tree. The bare command launches the board.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := rootOptions{appName: "scorecard", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("SCORECARD_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("SCORECARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:     "scorecard",
		Short:   "Balanced-scorecard strategy map in the terminal",
		Long:    "scorecard edits a four-lane balanced-scorecard strategy map: cards per perspective, causal connections, style, snapshots and the action-plan export.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	flags.StringVar(&opts.step3Path, "step3", "", "Step 3 result file (YAML or JSON)")

	root.AddCommand(
		newPathsCommand(&opts),
		newExportCommand(&opts, stderr),
		newRenderCommand(&opts, stderr),
		newSnapshotCommand(&opts, stderr),
		newServeCommand(&opts, stderr),
	)
	return root
}

// newPathsCommand prints the resolved runtime paths.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print config, data and export paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "export_dir: %s\n", paths.ExportDir)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// newExportCommand writes the action-plan workbook.
func newExportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var snapshot, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the three-forces/three-platforms action plan workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), *opts, "export", stderr, func(ctx context.Context, s *session) error {
				if err := s.loadNamedSnapshot(ctx, snapshot); err != nil {
					return err
				}
				plan, err := s.svc.ActionPlan()
				if err != nil {
					return fmt.Errorf("build action plan: %w", err)
				}
				if out == "-" {
					return xlsx.Write(cmd.OutOrStdout(), plan)
				}
				dir := out
				if dir == "" {
					dir = s.exportDir()
				}
				path, err := xlsx.SaveFile(dir, plan)
				if err != nil {
					return err
				}
				s.logger.Info("workbook written", "path", path, "rows", len(plan.Rows))
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "stored snapshot to export (default: the starting board)")
	cmd.Flags().StringVar(&out, "out", "", "output directory ('-' writes the workbook to stdout)")
	return cmd
}

// newRenderCommand writes the board as a PNG.
func newRenderCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var snapshot, out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the strategy map to PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), *opts, "render", stderr, func(ctx context.Context, s *session) error {
				if err := s.loadNamedSnapshot(ctx, snapshot); err != nil {
					return err
				}
				renderer, err := render.New(render.Options{
					FontPath: s.cfg.Render.FontPath,
					Scale:    s.cfg.Render.Scale,
				})
				if err != nil {
					return fmt.Errorf("configure renderer: %w", err)
				}
				scene := s.svc.Scene()
				if out == "-" {
					return renderer.Encode(cmd.OutOrStdout(), scene)
				}
				path := out
				if path == "" {
					name := "scorecard"
					if snapshot != "" {
						name = snapshot
					}
					path = filepath.Join(s.exportDir(), sanitizeLogFileStem(name)+".png")
				}
				if err := renderer.SaveFile(path, scene); err != nil {
					return err
				}
				s.logger.Info("png written", "path", path)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "stored snapshot to render (default: the starting board)")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path ('-' writes to stdout)")
	return cmd
}

// newSnapshotCommand groups the stored snapshot commands.
func newSnapshotCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, load, list and delete stored boards",
	}

	var from string
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Store a board under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), *opts, "snapshot save", stderr, func(ctx context.Context, s *session) error {
				if from != "" {
					snap, err := readSnapshotFile(from)
					if err != nil {
						return err
					}
					if err := s.svc.ImportSnapshot(snap); err != nil {
						return fmt.Errorf("import snapshot: %w", err)
					}
				}
				info, err := s.svc.SaveSnapshot(ctx, args[0])
				if err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				printSnapshotInfo(cmd.OutOrStdout(), info)
				return nil
			})
		},
	}
	save.Flags().StringVar(&from, "from", "", "snapshot JSON file to store (default: the starting board)")

	var out string
	load := &cobra.Command{
		Use:   "load NAME",
		Short: "Print a stored board as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), *opts, "snapshot load", stderr, func(ctx context.Context, s *session) error {
				if _, err := s.svc.LoadSnapshot(ctx, args[0]); err != nil {
					return fmt.Errorf("load snapshot %q: %w", args[0], err)
				}
				snap := s.svc.ExportSnapshot()
				snap.Name = args[0]
				return writeSnapshotJSON(cmd.OutOrStdout(), out, snap)
			})
		},
	}
	load.Flags().StringVar(&out, "out", "-", "output file path ('-' for stdout)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored boards, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), *opts, "snapshot list", stderr, func(ctx context.Context, s *session) error {
				infos, err := s.svc.ListSnapshots(ctx)
				if err != nil {
					return fmt.Errorf("list snapshots: %w", err)
				}
				for _, info := range infos {
					printSnapshotInfo(cmd.OutOrStdout(), info)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), *opts, "snapshot delete", stderr, func(ctx context.Context, s *session) error {
				if err := s.svc.DeleteSnapshot(ctx, args[0]); err != nil {
					return fmt.Errorf("delete snapshot %q: %w", args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(save, load, list, del)
	return cmd
}

// newServeCommand starts the HTTP API and MCP endpoints.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint, snapshot string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), *opts, "serve", stderr, func(ctx context.Context, s *session) error {
				if err := s.loadNamedSnapshot(ctx, snapshot); err != nil {
					return err
				}
				stopWatch, err := s.watchStep3(ctx)
				if err != nil {
					return err
				}
				defer stopWatch()

				adapter := servercommon.NewAppServiceAdapter(s.svc, xlsx.Write)
				return serveCommandRunner(ctx, serveradapter.Config{
					HTTPBind:      firstNonBlank(httpBind, s.cfg.Server.Bind),
					APIEndpoint:   firstNonBlank(apiEndpoint, s.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonBlank(mcpEndpoint, s.cfg.Server.MCPEndpoint),
					ServerName:    s.appName,
					ServerVersion: version,
				}, serveradapter.Dependencies{
					Board:     adapter,
					Workbooks: adapter,
					Logger:    s.logger,
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "stored snapshot to serve (default: empty board)")
	return cmd
}

// runTUI launches the interactive board.
func runTUI(ctx context.Context, opts rootOptions, stderr io.Writer) error {
	return withSession(ctx, opts, "tui", stderr, func(ctx context.Context, s *session) error {
		stopWatch, err := s.watchStep3(ctx)
		if err != nil {
			return err
		}
		defer stopWatch()

		m := tui.NewModel(
			s.svc,
			tui.WithKeyConfig(tui.KeyConfig{
				ConnectMode:  s.cfg.Keys.ConnectMode,
				Analyze:      s.cfg.Keys.Analyze,
				SaveSnapshot: s.cfg.Keys.SaveSnapshot,
				ToggleLock:   s.cfg.Keys.ToggleLock,
			}),
			tui.WithSnapshotPrefix(s.appName),
		)
		s.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			s.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// session holds everything one command flow needs.
type session struct {
	appName   string
	paths     platform.Paths
	cfg       config.Config
	step3Path string
	logger    *runtimeLogger
	repo      *sqlite.Repository
	svc       *app.Service
}

// withSession opens a session, runs fn and closes everything in reverse order.
func withSession(ctx context.Context, opts rootOptions, command string, stderr io.Writer, fn func(context.Context, *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(opts, command, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("command flow start", "command", command)
	if err := fn(ctx, s); err != nil {
		s.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	s.logger.Info("command flow complete", "command", command)
	return nil
}

// openSession resolves paths and config, then opens logging, storage and the board service.
func openSession(opts rootOptions, command string, stderr io.Writer) (*session, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SCORECARD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("SCORECARD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}

	initialNodes, err := cfg.Board.Nodes()
	if err != nil {
		_ = repo.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("initial nodes: %w", err)
	}
	svc := app.NewService(repo, time.Now, app.ServiceConfig{
		LaneHeight:   cfg.Board.InitialLaneHeight,
		InitialNodes: initialNodes,
		Keywords: app.PlatformKeywords{
			HR:      cfg.Export.HRKeywords,
			Finance: cfg.Export.FinanceKeywords,
			Digital: cfg.Export.DigitalKeywords,
		},
		Advice: advice.Settings{
			Model:       cfg.Advice.Model,
			Temperature: advice.Float(cfg.Advice.Temperature),
			MaxTokens:   cfg.Advice.MaxTokens,
		},
	})

	s := &session{
		appName:   opts.appName,
		paths:     paths,
		cfg:       cfg,
		step3Path: firstNonBlank(opts.step3Path, cfg.Step3.Path),
		logger:    logger,
		repo:      repo,
		svc:       svc,
	}
	s.loadStep3()
	return s, nil
}

// Close releases the service, the repository and the log file.
func (s *session) Close() {
	s.svc.Close()
	if err := s.repo.Close(); err != nil {
		s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", err)
	}
	if err := s.logger.Close(); err != nil && s.logger.ConsoleEnabled() {
		s.logger.Warn("close runtime log sink", "err", err)
	}
}

// loadStep3 reads the Step 3 file when one is configured. A bad file is
// logged; commands that need the matrix report it themselves.
func (s *session) loadStep3() {
	if s.step3Path == "" {
		return
	}
	data, err := matrix.Load(s.step3Path)
	if err != nil {
		s.logger.Warn("step 3 file not loaded", "path", s.step3Path, "err", err)
		return
	}
	s.svc.SetStep3(data)
	s.logger.Info("step 3 data loaded", "path", s.step3Path, "confidence", data.ConfidenceIndex)
}

// watchStep3 reloads the Step 3 file on change when step3.watch is set.
func (s *session) watchStep3(ctx context.Context) (func(), error) {
	if !s.cfg.Step3.Watch || s.step3Path == "" {
		return func() {}, nil
	}
	w, err := matrix.NewWatcher(s.step3Path, func(data *domain.Step3Data, err error) {
		if err != nil {
			s.logger.Warn("step 3 reload failed", "path", s.step3Path, "err", err)
			return
		}
		s.svc.SetStep3(data)
		s.logger.Info("step 3 data reloaded", "path", s.step3Path)
	}, matrix.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("watch step 3 file: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, fmt.Errorf("watch step 3 file: %w", err)
	}
	return func() {
		if err := w.Stop(); err != nil {
			s.logger.Warn("step 3 watcher stop failed", "err", err)
		}
	}, nil
}

// loadNamedSnapshot restores a stored board when name is set.
func (s *session) loadNamedSnapshot(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	info, err := s.svc.LoadSnapshot(ctx, name)
	if err != nil {
		return fmt.Errorf("load snapshot %q: %w", name, err)
	}
	s.logger.Info("snapshot loaded", "name", info.Name, "nodes", info.Nodes, "connections", info.Connections)
	return nil
}

// exportDir is the configured export directory or the platform default.
func (s *session) exportDir() string {
	return firstNonBlank(s.cfg.Export.Dir, s.paths.ExportDir)
}

// readSnapshotFile decodes a snapshot JSON file.
func readSnapshotFile(path string) (app.Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
	}
	return snap, nil
}

// writeSnapshotJSON writes snap to stdout or a file.
func writeSnapshotJSON(stdout io.Writer, outPath string, snap app.Snapshot) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

func printSnapshotInfo(w io.Writer, info app.SnapshotInfo) {
	_, _ = fmt.Fprintf(w, "%s\t%s\t%d cards\t%d connections\n",
		info.Name, info.SavedAt.UTC().Format(time.RFC3339), info.Nodes, info.Connections)
}

// firstNonBlank returns the first value that is not blank.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
