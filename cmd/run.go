package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/slotwatch/internal/application/attempt"
	"github.com/example/slotwatch/internal/application/poller"
	"github.com/example/slotwatch/internal/clock"
	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/db"
	"github.com/example/slotwatch/internal/domain/signup"
	"github.com/example/slotwatch/internal/history"
	"github.com/example/slotwatch/internal/infrastructure/browser"
	"github.com/example/slotwatch/internal/infrastructure/configstore"
	"github.com/example/slotwatch/internal/infrastructure/htmlpage"
	"github.com/example/slotwatch/internal/interfaces/web"
	"github.com/example/slotwatch/internal/logging"
	"github.com/example/slotwatch/internal/metrics"
	"github.com/example/slotwatch/internal/migrate"
	"github.com/example/slotwatch/internal/runlock"
	"github.com/example/slotwatch/internal/scheduler"
	"github.com/example/slotwatch/internal/stopsignal"
)

const (
	exitFailed  = 2
	exitExpired = 3
)

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	c := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until stopped (same as no action flag)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, opts)
		},
	}
	addRunFlags(c, opts)
	return c
}

func runService(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log, closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	store := configstore.New(cfg.ConfigPath)
	doc, err := store.Load()
	if err != nil {
		return err
	}
	if h := opts.headlessOverride(cmd); h != nil {
		if doc, err = store.Update(configstore.Patch{Headless: h}); err != nil {
			return err
		}
		log.Info().Bool("headless", *h).Msg("browser mode saved")
	}
	resolved, err := doc.Resolve(opts.overrides(cmd))
	if err != nil {
		return fmt.Errorf("configuration in %s: %w", store.Path(), err)
	}

	release, err := runlock.Acquire(cfg.LockFile, "run")
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := stopsignal.New(cfg.StopFile, log)
	if removed, err := stop.ClearStale(); err != nil {
		return err
	} else if removed {
		log.Info().Str("path", cfg.StopFile).Msg("removed stale stop file")
	}
	defer stop.NotifySignals()()
	go stop.Watch(ctx, cfg.StopPoll)

	m := metrics.New()
	board := web.NewStatusBoard(resolved.Plan.String())
	sinks := attempt.Sinks{m}
	observers := poller.Observers{m, board}

	var hist *history.Repo
	if cfg.DatabaseURL != "" {
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer d.Close()
		applied, err := migrate.Up(ctx, d)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info().Strs("migrations", applied).Msg("applied migrations")
		}
		hist = history.NewRepo(d, log)
		sinks = append(sinks, hist)
		observers = append(observers, hist)
	}

	if cfg.ControlAddr != "" {
		srv := &web.Server{
			Board:   board,
			Stop:    stop,
			Tokens:  web.NewTokenCodec(cfg.ControlHashKey, cfg.ControlBlockKey),
			Metrics: m.Handler(),
			Log:     log.With().Str("component", "control").Logger(),
		}
		go func() {
			if err := web.Start(ctx, cfg.ControlAddr, srv.Routes(), log); err != nil {
				log.Error().Err(err).Msg("control server")
			}
		}()
	}

	exec := &attempt.Executor{
		Interactor: buildInteractor(resolved.Settings, cfg, log),
		Sink:       sinks,
		Clock:      clock.Real{},
		Timeout:    cfg.AttemptTimeout,
		Log:        log,
	}

	log.Info().
		Str("schedule", resolved.Plan.String()).
		Str("url", resolved.Target.URL).
		Bool("skip_check", resolved.Target.SkipLinkDiscovery).
		Bool("stop_after_success", resolved.Settings.StopAfterSuccess).
		Msg("slotwatch starting")

	if opts.runNow {
		out, _ := exec.Attempt(attempt.WithLabels(ctx, "run-now", 1), resolved.Target)
		switch {
		case out.Kind == signup.OutcomeSuccess && (resolved.Settings.StopAfterSuccess || opts.once):
			return nil
		case opts.once && out.Kind == signup.OutcomeFatalError:
			return &exitError{code: exitFailed, msg: out.String()}
		case opts.once:
			return &exitError{code: exitExpired, msg: out.String()}
		}
	}

	loop := &poller.Loop{
		Plan:      resolved.Plan,
		Target:    resolved.Target,
		Attempter: exec,
		Stop:      stop,
		Clock:     clock.Real{},
		Observer:  observers,
		Log:       log,
		Options:   poller.Options{StopCheckInterval: cfg.StopPoll},
	}
	sched := &scheduler.Scheduler{
		Runner:            loop,
		StopAfterSuccess:  resolved.Settings.StopAfterSuccess,
		Once:              opts.once,
		Clock:             clock.Real{},
		Stop:              stop,
		StopCheckInterval: cfg.StopPoll,
		Log:               log,
		OnResult: func(ctx context.Context, res poller.Result) {
			board.Finish(res)
			m.ObserveRun(res)
			if hist != nil {
				if err := hist.FinishRun(context.WithoutCancel(ctx), res); err != nil {
					log.Warn().Err(err).Str("run_id", res.RunID).Msg("record run result")
				}
			}
		},
	}

	return exitFor(sched.Run(ctx))
}

func buildInteractor(s configstore.Settings, cfg config.Config, log zerolog.Logger) signup.PageInteractor {
	br := browser.New(browser.Options{
		Headless:    s.Headless,
		Bin:         cfg.BrowserBin,
		PageTimeout: cfg.PageTimeout,
		LinkPattern: s.LinkPattern,
	}, log.With().Str("component", "browser").Logger())
	if s.Discovery == configstore.DiscoveryHTTP {
		return signup.Interaction{
			LinkDiscoverer: htmlpage.New(cfg.PageTimeout, s.LinkPattern),
			Registrar:      br,
		}
	}
	return br
}

// exitFor maps the final run onto the process exit status.
func exitFor(res poller.Result) error {
	switch res.State {
	case poller.StateSucceeded, poller.StateCancelled:
		return nil
	case poller.StateFailed:
		return &exitError{code: exitFailed, msg: "run failed: " + res.Outcome.String()}
	case poller.StateWindowExpired:
		return &exitError{code: exitExpired, msg: "window closed without a registration"}
	}
	return fmt.Errorf("run ended in state %s", res.State)
}
