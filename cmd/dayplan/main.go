package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dayplan/dateutil"
	"dayplan/ical"
	"dayplan/internal/agenda"
	"dayplan/internal/config"
	"dayplan/notify"
	"dayplan/planner"
	"dayplan/storage"
	memstore "dayplan/storage/memory"
	sqlstore "dayplan/storage/sqlite"
)

type flagConfig struct {
	configPath string
	agendaView string
	date       string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := newLogger(conf.LogLevel)
	logger.Info("dayplan starting",
		"config", flags.configPath,
		"backend", conf.Store.Backend,
		"poll", conf.Notify.Poll)

	store, err := openStore(conf)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pl := planner.New(store, logger)
	if conf.SeedICS != "" {
		if err := seedFromICS(ctx, pl, conf.SeedICS, logger); err != nil {
			logger.Error("seed calendar", "path", conf.SeedICS, "err", err)
			os.Exit(1)
		}
	}

	if flags.agendaView != "" {
		if err := printAgenda(ctx, pl, flags.agendaView, flags.date); err != nil {
			logger.Error("render agenda", "err", err)
			os.Exit(1)
		}
		return
	}

	poller := notify.NewPoller(store, conf.Location(), func(n notify.Notification) {
		fmt.Println(n.Message)
	}, logger)

	if flags.once {
		if err := poller.PollAt(ctx, time.Now()); err != nil {
			logger.Error("poll", "err", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := poller.Run(ctx, conf.Notify.Poll); err != nil {
		logger.Error("notification loop", "err", err)
		os.Exit(1)
	}
	logger.Info("dayplan exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to config file (defaults apply if missing)")
	flag.StringVar(&cfg.agendaView, "agenda", "", "Print an agenda and exit: 'week' or 'month'")
	flag.StringVar(&cfg.date, "date", "", "Anchor date for the agenda, YYYY-MM-DD (default today)")
	flag.BoolVar(&cfg.once, "once", false, "Run a single notification poll and exit")

	flag.Parse()

	return cfg
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

func openStore(conf *config.Config) (storage.Store, error) {
	switch conf.Store.Backend {
	case "sqlite":
		return sqlstore.Open(conf.Store.Path)
	default:
		return memstore.New(), nil
	}
}

// seedFromICS imports an ICS file and submits each template through the
// planner with force set, so a seed file never trips overlap warnings.
func seedFromICS(ctx context.Context, pl *planner.Planner, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	templates, err := ical.Import(f, logger)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		if _, err := pl.Create(ctx, tpl, true); err != nil {
			return fmt.Errorf("seed event %q: %w", tpl.Title, err)
		}
	}
	logger.Info("calendar seeded", "path", path, "events", len(templates))
	return nil
}

func printAgenda(ctx context.Context, pl *planner.Planner, view, dateArg string) error {
	anchor := dateutil.Today()
	if dateArg != "" {
		d, err := dateutil.ParseDate(dateArg)
		if err != nil {
			return err
		}
		anchor = d
	}

	switch view {
	case "week":
		events, err := pl.EventsForWeek(ctx, anchor)
		if err != nil {
			return err
		}
		fmt.Print(agenda.Week(anchor, events))
	case "month":
		events, err := pl.EventsForMonth(ctx, anchor)
		if err != nil {
			return err
		}
		fmt.Print(agenda.Month(anchor, events))
	default:
		return fmt.Errorf("unknown agenda view %q (want 'week' or 'month')", view)
	}
	return nil
}
