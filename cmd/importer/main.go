// Command importer runs one import of the connected controller from the
// command line and prints what it wrote.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/vbc-logbook/backend/internal/config"
	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/logging"
	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/report"
	"github.com/vbc-logbook/backend/internal/storage"
)

var Version = "dev"

func main() {
	kingpin.CommandLine.HelpFlag.Short('h')
	kingpin.CommandLine.Help = "Imports flight controller logs into the logbook database."
	kingpin.Version(Version)

	configPath := kingpin.Flag("config", "Path to the XML or YAML configuration file.").Short('c').Default("VBCLogbook.config").String()
	driver := kingpin.Flag("driver", "Database driver: duckdb, sqlite or pgx. Overrides the config file.").Enum(storage.DriverDuckDB, storage.DriverSQLite, storage.DriverPostgres)
	dsn := kingpin.Flag("dsn", "Database file or connection string. Overrides the config file.").String()
	verbose := kingpin.Flag("verbose", "Log at debug level.").Short('v').Bool()

	importCmd := kingpin.Command("import", "Import the connected controller.")
	importRoot := importCmd.Flag("root", "Controller root directory. Skips root discovery.").ExistingDir()
	importWorkers := importCmd.Flag("workers", "Parallel model log parsers.").Int()

	kingpin.Command("roots", "Print the controller root that an import would use.")
	kingpin.Command("seasons", "Print stored flights per year.")

	cmd := kingpin.Parse()

	cfg, err := config.LoadConfig(*configPath)
	kingpin.FatalIfError(err, "load configuration")
	applyFlags(cfg, *driver, *dsn)

	level := cfg.Advanced.LogLevel
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	kingpin.FatalIfError(err, "initialize logger")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "import":
		if *importWorkers > 0 {
			cfg.Import.ParseWorkers = *importWorkers
		}
		err = runImport(ctx, cfg, *importRoot, logger)
	case "roots":
		err = runRoots(cfg)
	case "seasons":
		err = runSeasons(ctx, cfg, logger)
	}
	kingpin.FatalIfError(err, "%s", cmd)
}

func applyFlags(cfg *config.AppConfig, driver, dsn string) {
	if driver != "" {
		cfg.Storage.Driver = driver
	}
	if dsn == "" {
		return
	}
	if cfg.Storage.Driver == storage.DriverPostgres {
		cfg.Storage.DSN = dsn
	} else {
		cfg.Storage.DatabasePath = dsn
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*storage.Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return storage.Open(ctx, cfg.StoreConfig(), logger)
}

func runImport(ctx context.Context, cfg *config.AppConfig, root string, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	imp := importer.New(importer.FromStore(store),
		importer.WithLogger(logger),
		importer.WithParseWorkers(cfg.Import.ParseWorkers),
	)

	roots := cfg.Roots()
	if root != "" {
		roots = importer.StaticRoot(root)
	}

	buffer := cfg.Import.ProgressBuffer
	if buffer <= 0 {
		buffer = 64
	}
	progress := make(chan models.ImportStatus, buffer)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printProgress(progress)
	}()

	summary, err := imp.RunFrom(ctx, roots, progress)
	close(progress)
	<-printed
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printProgress(progress <-chan models.ImportStatus) {
	var last string
	for st := range progress {
		if st.Status == last && !st.Completed {
			continue
		}
		last = st.Status
		fmt.Printf("[%5.1f%%] %s\n", st.Percent, st.Status)
	}
}

func printSummary(s *models.ImportSummary) {
	fmt.Println()
	fmt.Printf("Model log sets:   %s (%s sessions)\n", humanize.Comma(int64(s.ModelFileSets)), humanize.Comma(int64(s.Sessions)))
	fmt.Printf("Battery log sets: %s\n", humanize.Comma(int64(s.BatteryFileSets)))
	fmt.Printf("Charge cycles:    %s read, %s matched to a flight\n", humanize.Comma(int64(s.Records)), humanize.Comma(int64(s.Matched)))
	fmt.Printf("Imported:         %s new, %s already stored\n", humanize.Comma(int64(s.Imported)), humanize.Comma(int64(s.Skipped)))
	fmt.Printf("Log lines:        %s events, %s telemetry, %s gps\n",
		humanize.Comma(int64(s.EventLines)), humanize.Comma(int64(s.TelemetryLines)), humanize.Comma(int64(s.GpsLines)))
	fmt.Printf("New names:        %s batteries, %s models\n", humanize.Comma(int64(s.CreatedBatteries)), humanize.Comma(int64(s.CreatedModels)))
	fmt.Printf("Finished in %s\n", (time.Duration(s.DurationMs) * time.Millisecond).String())
}

func runRoots(cfg *config.AppConfig) error {
	root, ok := cfg.Roots()()
	if !ok {
		return fmt.Errorf("no controller found (marker %q)", cfg.Import.MarkerFile)
	}
	fmt.Println(root)
	return nil
}

func runSeasons(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	seasons, err := report.NewService(store).Seasons(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, s := range seasons {
		fmt.Printf("%s  %s\n", s.Year, humanize.Comma(int64(s.Count)))
		total += s.Count
	}
	fmt.Printf("total %s flights\n", humanize.Comma(int64(total)))
	return nil
}
