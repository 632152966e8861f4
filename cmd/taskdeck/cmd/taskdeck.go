// Package cmd implements the taskdeck command-line interface.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taskdeck/backend"
	"taskdeck/backend/google"
	"taskdeck/internal/cache"
	"taskdeck/internal/config"
	"taskdeck/internal/credentials"
	"taskdeck/internal/tui"
)

// Version is set at build time
var Version = "dev"

// Config holds CLI-level overrides, primarily for testing.
type Config struct {
	ConfigPath   string // Path to config file
	SnapshotPath string // Path to snapshot file
	Verbose      bool
	Remote       backend.Remote      // Injected remote (for testing)
	Keyring      credentials.Keyring // Injected keyring (for testing)
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewTaskdeck(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewTaskdeck creates the root command with injectable IO
func NewTaskdeck(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "taskdeck",
		Short:   "A task manager with offline cache and remote sync",
		Long:    "taskdeck is a terminal task manager. Edits land in a local snapshot immediately; an explicit sync reconciles them with Google Tasks.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(stderr, verbose || cfg.Verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			prog := tea.NewProgram(tui.New(engine), tea.WithAltScreen())
			_, err = prog.Run()
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringP("data", "d", "", "Path to snapshot file")

	cmd.AddCommand(newSyncCmd(stdout, cfg))
	cmd.AddCommand(newPullCmd(stdout, cfg))
	cmd.AddCommand(newListsCmd(stdout, cfg))
	cmd.AddCommand(newAuthCmd(stdout, stderr, cfg))

	return cmd
}

// setupLogging routes the global logger through a console writer.
func setupLogging(stderr io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// loadConfig resolves the application config with CLI overrides applied.
func loadConfig(cmd *cobra.Command, cfg *Config) (*config.Config, error) {
	path := cfg.ConfigPath
	if flag, _ := cmd.Flags().GetString("config"); flag != "" {
		path = flag
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	appCfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.SnapshotPath != "" {
		appCfg.SnapshotPath = cfg.SnapshotPath
	}
	if flag, _ := cmd.Flags().GetString("data"); flag != "" {
		appCfg.SnapshotPath = flag
	}
	return appCfg, nil
}

// newRemote builds the Google Tasks client from stored credentials.
// Without any credentials an offline stub is returned so cached reads
// and edits keep working; sync and pull then fail per item and retry
// after login.
func newRemote(cfg *Config, appCfg *config.Config) backend.Remote {
	if cfg.Remote != nil {
		return cfg.Remote
	}

	gcfg := google.ConfigFromEnv()
	if gcfg.AccessToken == "" {
		manager := newCredentialsManager(cfg)
		if tok, err := manager.Token(); err == nil {
			gcfg.AccessToken = tok.AccessToken
			gcfg.RefreshToken = tok.RefreshToken
		}
	}
	if gcfg.ClientID == "" {
		gcfg.ClientID = appCfg.Google.ClientID
	}
	if gcfg.ClientSecret == "" {
		gcfg.ClientSecret = appCfg.Google.ClientSecret
	}

	client, err := google.New(gcfg)
	if err != nil {
		log.Debug().Err(err).Msg("no usable credentials, remote operations disabled")
		return offlineRemote{}
	}
	return client
}

func newCredentialsManager(cfg *Config) *credentials.Manager {
	if cfg.Keyring != nil {
		return credentials.NewManager(credentials.WithKeyring(cfg.Keyring))
	}
	return credentials.NewManager()
}

// newEngine wires the cache engine over the configured store and remote.
func newEngine(ctx context.Context, cmd *cobra.Command, cfg *Config) (*cache.Engine, error) {
	appCfg, err := loadConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}
	remote := newRemote(cfg, appCfg)
	store := cache.NewFileStore(appCfg.SnapshotPath)
	return cache.New(ctx, remote, store), nil
}

// errOffline is what every remote call reports until the user logs in.
var errOffline = errors.New("not logged in, run 'taskdeck auth login'")

// offlineRemote satisfies backend.Remote when no credentials exist.
type offlineRemote struct{}

func (offlineRemote) ListLists(context.Context) ([]backend.TaskList, error) {
	return nil, errOffline
}

func (offlineRemote) ListTasks(context.Context, backend.ID) ([]backend.Task, error) {
	return nil, errOffline
}

func (offlineRemote) CreateList(context.Context, string) (*backend.TaskList, error) {
	return nil, errOffline
}

func (offlineRemote) DeleteList(context.Context, backend.ID) error { return errOffline }

func (offlineRemote) GetTask(context.Context, backend.ID, backend.ID) (*backend.Task, error) {
	return nil, errOffline
}

func (offlineRemote) CreateTask(context.Context, backend.ID, *backend.Task) (*backend.Task, error) {
	return nil, errOffline
}

func (offlineRemote) UpdateTask(context.Context, backend.ID, *backend.Task) (*backend.Task, error) {
	return nil, errOffline
}

func (offlineRemote) DeleteTask(context.Context, backend.ID, backend.ID) error { return errOffline }

// newSyncCmd creates the 'sync' subcommand
func newSyncCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes to the remote service",
		Long:  "Reconcile the local snapshot with Google Tasks. Failures are postponed, not fatal; re-run sync to retry them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			if !engine.Dirty() {
				_, _ = fmt.Fprintln(stdout, "Already in sync.")
				return nil
			}

			res := engine.Sync(cmd.Context())
			_, _ = fmt.Fprintf(stdout, "Synced: %d created, %d updated, %d deleted",
				res.Created, res.Updated, res.Deleted)
			if res.Failed > 0 {
				_, _ = fmt.Fprintf(stdout, ", %d postponed", res.Failed)
			}
			_, _ = fmt.Fprintln(stdout)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newPullCmd creates the 'pull' subcommand
func newPullCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local snapshot with the remote state",
		Long:  "Fetch all lists and tasks from Google Tasks and overwrite the local snapshot. Unsynced local changes are discarded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			if err := engine.Pull(cmd.Context()); err != nil {
				return fmt.Errorf("pull failed: %w", err)
			}

			lists := engine.Lists()
			tasks := 0
			for _, list := range lists {
				tasks += len(engine.Tasks(list.ID))
			}
			_, _ = fmt.Fprintf(stdout, "Pulled %d lists, %d tasks.\n", len(lists), tasks)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newListsCmd creates the 'lists' subcommand
func newListsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Print the cached task lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			jsonOutput, _ := cmd.Flags().GetBool("json")
			lists := engine.Lists()

			if jsonOutput {
				type listJSON struct {
					ID    backend.ID `json:"id"`
					Title string     `json:"title"`
					Tasks int        `json:"tasks"`
				}
				output := make([]listJSON, 0, len(lists))
				for _, l := range lists {
					output = append(output, listJSON{
						ID:    l.ID,
						Title: l.Title,
						Tasks: len(engine.Tasks(l.ID)),
					})
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(output)
			}

			if len(lists) == 0 {
				_, _ = fmt.Fprintln(stdout, "No lists. Run 'taskdeck pull' or create one in the TUI.")
				return nil
			}
			for _, l := range lists {
				marker := ""
				if l.ID.Provisional() {
					marker = " *"
				}
				_, _ = fmt.Fprintf(stdout, "%s (%d tasks)%s\n", l.Title, len(engine.Tasks(l.ID)), marker)
			}
			if engine.Dirty() {
				_, _ = fmt.Fprintln(stdout, "\nUnsynced changes pending; run 'taskdeck sync'.")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

// newAuthCmd creates the 'auth' subcommand for credential management
func newAuthCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google credentials",
		Long:  "Log in to Google Tasks, inspect the stored credentials, or remove them from the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	authCmd.AddCommand(newAuthLoginCmd(stdout, stderr, cfg))
	authCmd.AddCommand(newAuthStatusCmd(stdout, cfg))
	authCmd.AddCommand(newAuthLogoutCmd(stdout, cfg))

	return authCmd
}

// newAuthLoginCmd creates the 'auth login' subcommand
func newAuthLoginCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Google Tasks",
		Long:  "Run the OAuth2 authorization-code flow and store the resulting tokens in the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			clientID := appCfg.Google.ClientID
			if clientID == "" {
				if clientID, err = credentials.PromptSecret("OAuth client ID: ", in, stdout); err != nil {
					return err
				}
			}
			clientSecret := appCfg.Google.ClientSecret
			if clientSecret == "" {
				if clientSecret, err = credentials.PromptSecret("OAuth client secret: ", in, stdout); err != nil {
					return err
				}
			}

			manager := newCredentialsManager(cfg)
			if err := manager.Login(cmd.Context(), clientID, clientSecret, in, stdout); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, "Logged in; tokens stored in the system keyring.")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newAuthStatusCmd creates the 'auth status' subcommand
func newAuthStatusCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where credentials come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := newCredentialsManager(cfg)
			tok, err := manager.Token()
			if errors.Is(err, credentials.ErrNotFound) {
				_, _ = fmt.Fprintln(stdout, "Not logged in.")
				return nil
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(stdout, "Logged in (source: %s)\n", tok.Source)
			if tok.RefreshToken == "" {
				_, _ = fmt.Fprintln(stdout, "No refresh token stored; access expires without renewal.")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newAuthLogoutCmd creates the 'auth logout' subcommand
func newAuthLogoutCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials from the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := newCredentialsManager(cfg)
			if err := manager.Clear(); err != nil {
				_, _ = fmt.Fprintln(stdout, "No stored credentials.")
				return nil
			}
			_, _ = fmt.Fprintln(stdout, "Logged out.")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
