package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/detector"
	"github.com/LdDl/conveyor-inspect/inspect"
	"github.com/LdDl/conveyor-inspect/internal/config"
	"github.com/LdDl/conveyor-inspect/internal/store"
	"github.com/LdDl/conveyor-inspect/report"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON tuning file (optional)")
	dbPath := flag.String("db", "", "SQLite file to store run ledgers (optional)")
	csvDir := flag.String("csv", "", "Directory to export ledgers as CSV (optional)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	videos := flag.Args()
	if len(videos) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: conveyor-inspect [flags] video...\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		log.Fatalln(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	tuning := &config.TuningConfig{}
	if *configPath != "" {
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalln(err)
		}
		logger.Info("main: tuning loaded", "path", *configPath)
	}

	var ledgerStore *store.Store
	if *dbPath != "" {
		ledgerStore, err = store.Open(*dbPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer ledgerStore.Close()
	}
	if *csvDir != "" {
		if err := os.MkdirAll(*csvDir, 0755); err != nil {
			log.Fatalln(errors.Wrap(err, "Can't create CSV directory"))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inspector, err := inspect.NewInspector(tuning.InspectConfig(), inspect.WithLogger(logger))
	if err != nil {
		log.Fatalln(err)
	}
	exporter := &exporter{store: ledgerStore, csvDir: *csvDir, out: os.Stdout}
	params := tuning.DetectorParams()
	for _, video := range videos {
		// Each video is its own run with its own calibration
		inspector.Reset()
		source, err := detector.OpenVideo(video, params, logger)
		if err != nil {
			logger.Error("main: can't open video", "path", video, "error", err)
			continue
		}
		err = exporter.inspect(ctx, inspector, video, source)
		source.Close()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("main: interrupted", "path", video)
				return
			}
			logger.Error("main: inspection failed", "path", video, "error", err)
		}
	}
}

// exporter sends finished runs to every configured sink
type exporter struct {
	store  *store.Store
	csvDir string
	out    io.Writer
}

// inspect runs inspector over the source, then stores, exports and prints the result.
// Partial results of an interrupted run are still printed
func (exp *exporter) inspect(ctx context.Context, inspector *inspect.Inspector, name string, source inspect.DetectionSource) error {
	summary, runErr := inspector.Run(ctx, source)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := report.Build(name, summary).Write(exp.out); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if exp.store != nil {
		if err := exp.store.SaveSummary(ctx, name, summary); err != nil {
			return err
		}
	}
	if exp.csvDir != "" {
		if err := exp.writeCSV(name, summary); err != nil {
			return err
		}
	}
	return nil
}

func (exp *exporter) writeCSV(name string, summary inspect.Summary) error {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	path := filepath.Join(exp.csvDir, fmt.Sprintf("%s_%s.csv", base, summary.RunID))
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	defer file.Close()
	return store.WriteCSV(file, summary.Ledger)
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "Bad log level '%s'", name)
	}
	return level, nil
}
