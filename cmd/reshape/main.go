// Package main implements the reshape command-line tool: schema-evolution
// operations for partitioned tables, driven by the local metadata catalog.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reshapedb/reshape/internal/catalog"
	"github.com/reshapedb/reshape/internal/config"
	"github.com/reshapedb/reshape/internal/conversion"
	"github.com/reshapedb/reshape/internal/logutil"
	"github.com/reshapedb/reshape/internal/oplog"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootFlags are the global flags shared by every verb.
type rootFlags struct {
	configFile  string
	dataDir     string
	catalogPath string
	logLevel    string
}

func main() {
	// A .env alongside the invocation is a convenience, not a requirement.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reshape: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "reshape",
		Short:         "Online schema evolution for partitioned tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to configuration file (YAML or JSON)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "base directory for local data files")
	root.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "", "path to the metadata catalog database")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newConvertCmd(flags),
		newSubpartitionCmd(flags),
		newSplitCmd(flags),
		newMergeCmd(flags),
		newMoveCmd(flags),
		newDropCmd(flags),
		newTruncateCmd(flags),
		newExchangeCmd(flags),
		newAnalyzeCmd(flags),
		newRegisterCmd(flags),
		newOplogCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reshape version %s (commit: %s)\n", version, commit)
		},
	}
}

// loadConfig layers file, environment, and flag values, in that order.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if flags.configFile != "" {
		cfg, err = config.LoadFromFile(flags.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.catalogPath != "" {
		cfg.Catalog.Path = flags.catalogPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// toolkit bundles the opened collaborators behind one Close.
type toolkit struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.SQLiteCatalog
	sink    *oplog.SQLiteSink
	log     *oplog.Log
	orch    *conversion.Orchestrator
}

// openToolkit wires the catalog-backed executor and statistics ledger into an
// orchestrator. Deployments against a real engine swap those two
// collaborators; everything else stays the same.
func openToolkit(flags *rootFlags) (*toolkit, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, err := logutil.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	sink, err := oplog.NewSQLiteSink(cfg.OpLog.Path)
	if err != nil {
		cat.Close()
		logger.Sync()
		return nil, err
	}

	log := oplog.NewLog(sink, logger, cfg.OpLog.QueueSize)
	orch := conversion.New(cat, catalog.NewMetadataApplier(cat), catalog.NewStatsLedger(cat), log, logger)

	return &toolkit{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		sink:    sink,
		log:     log,
		orch:    orch,
	}, nil
}

func (t *toolkit) Close() {
	t.log.Close()
	t.sink.Close()
	t.catalog.Close()
	t.logger.Sync()
}

// printResult reports the terminal state of one operation on stdout.
func printResult(res *conversion.Result) {
	fmt.Printf("operation %s: %s\n", res.OperationID, res.Phase)
	if res.Statement != "" {
		fmt.Printf("statement: %s\n", res.Statement)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
