// Package cli implements slactl, the operator command line for the SLA governance store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/sla-governance/internal/config"
	"github.com/spec-kit/sla-governance/internal/governance"
	"github.com/spec-kit/sla-governance/internal/persistence"
	"github.com/spec-kit/sla-governance/internal/service"
)

// EnvPrefix namespaces environment overrides, e.g. SLACTL_STORE_DRIVER.
const EnvPrefix = "SLACTL"

// App carries resolved settings and lazily opened services for one invocation.
type App struct {
	v          *viper.Viper
	cfgFile    string
	now        func() time.Time
	bcryptCost int

	stores     *persistence.Stores
	logger     *zap.Logger
	tickets    *service.TicketService
	users      *service.UserService
	governance *service.GovernanceService
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{v: viper.New(), now: time.Now, bcryptCost: defaultBcryptCost})
}

const defaultBcryptCost = 12

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "slactl",
		Short:         "Operate the ticket SLA governance store",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Load users and tickets from a JSON snapshot into the local SQLite store
  slactl import seed.json

  # Governance summary as of now
  slactl report

  # Tickets that will breach within the risk window
  slactl evaluate --state AT_RISK

  # Work queue for technicians
  slactl queue
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("store", string(config.StoreSQLite), "store driver (memory, postgres, sqlite)")
	flags.String("sqlite-path", "data/sla.sqlite", "SQLite database file")
	flags.String("postgres-dsn", "", "Postgres connection string")
	flags.Int("risk-threshold-minutes", 120, "remaining minutes below which a ticket is at risk")
	flags.Int("flag-threshold", governance.DefaultFlagThreshold, "tickets per user and type that raise a governance flag")
	flags.Int("top-requesters", governance.DefaultTopRequesters, "frequent requesters to list (0 = all)")
	flags.StringP("output", "o", "table", "output format (table, json)")
	flags.Bool("verbose", false, "log diagnostics to stderr")

	bind := map[string]string{
		"store.driver":               "store",
		"store.sqlite_path":          "sqlite-path",
		"postgres.dsn":               "postgres-dsn",
		"sla.risk_threshold_minutes": "risk-threshold-minutes",
		"sla.flag_threshold":         "flag-threshold",
		"sla.top_requesters":         "top-requesters",
		"output":                     "output",
		"verbose":                    "verbose",
	}
	for key, flag := range bind {
		_ = app.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newEvaluateCmd(app))
	cmd.AddCommand(newQueueCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	return cmd
}

// Execute runs slactl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *App) loadConfig() error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}

	switch a.output() {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported output %q: want table or json", a.output())
	}
	switch config.StoreDriver(strings.ToLower(a.v.GetString("store.driver"))) {
	case config.StoreMemory, config.StorePostgres, config.StoreSQLite:
	default:
		return fmt.Errorf("unsupported store %q: want memory, postgres or sqlite", a.v.GetString("store.driver"))
	}
	return nil
}

func (a *App) output() string {
	return strings.ToLower(a.v.GetString("output"))
}

func (a *App) serviceConfig() config.Config {
	return config.Config{
		Postgres: config.PostgresConfig{
			DSN:           a.v.GetString("postgres.dsn"),
			MaxConns:      2,
			RunMigrations: true,
		},
		Logger: config.LoggerConfig{Level: "info"},
		Auth:   config.AuthConfig{BcryptCost: a.bcryptCost},
		SLA: config.SLAConfig{
			RiskThresholdMinutes: a.v.GetInt("sla.risk_threshold_minutes"),
			FlagThreshold:        a.v.GetInt("sla.flag_threshold"),
			TopRequesters:        a.v.GetInt("sla.top_requesters"),
		},
		Store: config.StoreConfig{
			Driver:     config.StoreDriver(strings.ToLower(a.v.GetString("store.driver"))),
			SQLitePath: a.v.GetString("store.sqlite_path"),
		},
	}
}

func (a *App) newLogger() *zap.Logger {
	if !a.v.GetBool("verbose") {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withServices opens the store for the duration of fn.
func (a *App) withServices(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	defer a.close()
	return fn(ctx)
}

func (a *App) open(ctx context.Context) error {
	if a.stores != nil {
		return nil
	}
	cfg := a.serviceConfig()
	a.logger = a.newLogger()

	stores, err := persistence.OpenStores(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	a.stores = stores
	a.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:    stores.Tickets,
		UserRepo:      stores.Users,
		Logger:        a.logger,
		RiskThreshold: cfg.SLA.RiskThreshold(),
		Now:           a.now,
	})
	a.users = service.NewUserService(service.UserDependencies{
		UserRepo:   stores.Users,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     a.logger,
		Now:        a.now,
	})
	a.governance = service.NewGovernanceService(service.GovernanceDependencies{
		TicketRepo: stores.Tickets,
		UserRepo:   stores.Users,
		Options: governance.Options{
			RiskThreshold: cfg.SLA.RiskThreshold(),
			FlagThreshold: cfg.SLA.FlagThreshold,
			TopRequesters: cfg.SLA.TopRequesters,
		},
		Logger: a.logger,
		Now:    a.now,
	})
	return nil
}

func (a *App) close() {
	if a.stores != nil {
		a.stores.Close()
		a.stores = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *App) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"data": v})
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

// Main runs slactl and returns the process exit code.
func Main() int {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
