package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vclock"
	"github.com/sarchlab/vclock/config"
	"github.com/sarchlab/vclock/datarecording"
	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/instrumentation/tracing"
	"github.com/sarchlab/vclock/monitoring"
	"github.com/sarchlab/vclock/scenario"
)

type runFlags struct {
	apis    []string
	now     int64
	envFile []string
	record  string
	verbose bool
	serve   bool
	port    int
}

func newRunCommand() *cobra.Command {
	f := &runFlags{}

	c := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a timer scenario.",
		Long: `Run a timer scenario. The clock settings come from the ` +
			`scenario, then the environment (VCLOCK_APIS, VCLOCK_NOW, .env), ` +
			`then the flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, args[0], f)
		},
	}

	c.Flags().StringSliceVar(&f.apis, "apis", nil,
		"facilities to mock, e.g. setTimeout,Date")
	c.Flags().Int64Var(&f.now, "now", 0, "virtual start time in ms")
	c.Flags().StringSliceVar(&f.envFile, "env", nil, "dotenv files to load")
	c.Flags().StringVar(&f.record, "record", "",
		"record firings into this SQLite file")
	c.Flags().BoolVar(&f.serve, "serve", false,
		"after the last step, serve the clock over HTTP until interrupted")
	c.Flags().IntVar(&f.port, "port", 0, "port of the --serve server")
	c.Flags().BoolVarP(&f.verbose, "verbose", "v", false,
		"log timer activity to stderr")

	return c
}

func overrides(cmd *cobra.Command, f *runFlags) (config.Config, error) {
	env, err := config.FromEnv(f.envFile...)
	if err != nil {
		return config.Config{}, err
	}

	var flags config.Config

	if cmd.Flags().Changed("apis") {
		flags.APIs = append([]string{}, f.apis...)
	}

	if cmd.Flags().Changed("now") {
		flags.Now = &f.now
	}

	return config.Merge(env, flags), nil
}

func runScenario(cmd *cobra.Command, path string, f *runFlags) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	override, err := overrides(cmd, f)
	if err != nil {
		return err
	}

	counter := tracing.NewFireCounter()
	opts := scenario.Options{
		Out:      cmd.OutOrStdout(),
		Override: override,
		Hooks:    []hooking.Hook{counter},
	}

	logger := log.New(cmd.ErrOrStderr(), "vclock: ", 0)
	if f.verbose {
		opts.Hooks = append(opts.Hooks, tracing.NewFireLogger(logger).WithLifecycle())
	}

	var fireRecorder *tracing.FireRecorder

	if f.record != "" {
		recorder, err := datarecording.New(f.record)
		if err != nil {
			return err
		}
		defer recorder.Close()

		fireRecorder, err = tracing.NewFireRecorder(recorder)
		if err != nil {
			return err
		}

		execRecorder, err := datarecording.NewExecRecorder(recorder)
		if err != nil {
			return err
		}

		execRecorder.Start(datarecording.ExecInfo{
			Property: "Scenario",
			Value:    path,
		})
		defer func() {
			if err := execRecorder.End(); err != nil {
				logger.Printf("recording execution info: %v", err)
			}
		}()

		opts.Hooks = append(opts.Hooks, fireRecorder)
	}

	if f.serve {
		opts.Hold = func(ctx context.Context, timers *vclock.MockTimers) error {
			return serve(ctx, timers, f.port)
		}
	}

	if err := scenario.Run(cmd.Context(), sc, opts); err != nil {
		return err
	}

	if fireRecorder != nil {
		if err := fireRecorder.Flush(); err != nil {
			return fmt.Errorf("recording firings: %w", err)
		}
	}

	if f.verbose {
		total, repeating := counter.Fired()
		logger.Printf("%d timers created, %d canceled, %d firings (%d repeating)",
			counter.Created(), counter.Canceled(), total, repeating)
	}

	return nil
}

// serve exposes the clock until ctx ends or the process is interrupted.
func serve(ctx context.Context, timers *vclock.MockTimers, port int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	m := monitoring.NewMonitor()
	if port != 0 {
		m = m.WithPortNumber(port)
	}

	m.RegisterClock(timers.Clock())

	if _, err := m.StartServer(); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.Shutdown(shutdownCtx)
}
