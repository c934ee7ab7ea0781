package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/robottwo/redline/internal/appupdate"
	"github.com/robottwo/redline/internal/client"
	"github.com/robottwo/redline/internal/completion"
	"github.com/robottwo/redline/internal/config"
	"github.com/robottwo/redline/internal/core"
	"github.com/robottwo/redline/internal/history"
	"github.com/robottwo/redline/internal/printer"
	"github.com/robottwo/redline/internal/styles"
	"go.uber.org/zap"
)

var BUILD_VERSION = "dev"

var hostFlag = flag.String("host", "", "server host, overrides the config file")
var portFlag = flag.Int("port", 0, "server port, overrides the config file")
var passwordFlag = flag.String("a", "", "password to authenticate with")
var configFlag = flag.String("config", "", "use a custom config file instead of the default")

var helpFlag = flag.Bool("h", false, "display help information")
var versionFlag = flag.Bool("ver", false, "display build version")

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if *helpFlag {
		fmt.Println("Usage of redline:")
		flag.PrintDefaults()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "redline: "+err.Error())
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flush any buffered log entries
	}()

	logger.Info("-------- new redline session --------", zap.Any("args", os.Args))

	if err := run(cfg, logger); err != nil {
		logger.Error("unhandled error", zap.Error(err))
		fmt.Fprintln(os.Stderr, "redline: "+err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	cli, err := client.Connect(ctx, client.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: *passwordFlag,
	}, logger)
	if err != nil {
		return err
	}
	defer cli.Close()

	overrides, err := completion.LoadOverrides(core.OverridesFile())
	if err != nil {
		logger.Warn("ignoring completion overrides", zap.Error(err))
		overrides = nil
	}

	metadata := completion.NewMetadataCache(cli, overrides, logger)
	keys := completion.NewKeyCache(cli, logger)
	refresher := completion.NewRefresher(metadata, keys, completion.RefresherOptions{
		MetadataInterval: cfg.MetadataInterval,
		KeysInterval:     cfg.KeysInterval,
		Timeout:          cfg.RefreshTimeout,
		KeyPattern:       cfg.KeyPattern,
	}, logger)
	refresher.RefreshNow(ctx)
	refresher.Start()
	defer refresher.Stop()

	engine := completion.NewCompletionEngine(metadata, keys)
	provider := completion.NewProvider(engine, logger)

	historyManager, err := history.NewManager(core.HistoryFile())
	if err != nil {
		return err
	}
	defer historyManager.Close()

	checker := appupdate.NewChecker(appupdate.GitHubUpdater{}, core.LatestVersionFile(), logger)
	checker.CheckInBackground(ctx)
	if latest, ok := checker.Available(BUILD_VERSION); ok {
		fmt.Println(styles.Notice.Render(
			fmt.Sprintf("redline %s is available (running %s), run _update to install", latest, BUILD_VERSION)))
	}

	color := isatty.IsTerminal(os.Stdout.Fd())
	repl := &core.Repl{
		Client:    cli,
		History:   historyManager,
		Provider:  provider,
		Refresher: refresher,
		Printer:   printer.New(os.Stdout, color),
		Checker:   checker,
		Logger:    logger,
	}
	return repl.Run(ctx)
}

func loadConfig() (config.Config, error) {
	path := core.ConfigFile()
	if *configFlag != "" {
		path = *configFlag
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if *hostFlag != "" {
		cfg.Host = *hostFlag
	}
	if *portFlag != 0 {
		cfg.Port = *portFlag
	}
	return cfg, nil
}

func initializeLogger(cfg config.Config) (*zap.Logger, error) {
	logLevel, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}
	return loggerConfig.Build()
}
