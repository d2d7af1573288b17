package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/radbase"
	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/observability"
	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/hupe1980/radbase/sampler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGenerateCmd(v *viper.Viper, load func() (*Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the simulator over sampled scenarios and aggregate a dataset",
		Long: `generate draws repeats x samplesize scenarios, runs the simulator for each
one and aggregates the results into a single compressed dataset file.

If the destination already exists it is left untouched unless --override is
given. An interrupted run keeps its run directory; pass it to --resume-dir to
continue from the last committed block.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("out", "o", "radcal.rdb", "destination dataset file")
	f.String("oracle", "radcal", "simulator executable")
	f.Duration("timeout", oracle.DefaultTimeout, "per-sample simulator timeout (0 disables)")
	f.String("regime", "tracked", "sampling regime (tracked, full)")
	f.Uint64("seed", 0, "base seed of the per-block random streams")
	f.IntP("repeats", "r", runner.DefaultOptions.Repeats, "number of blocks")
	f.IntP("samplesize", "n", runner.DefaultOptions.SampleSize, "scenarios per block")
	f.Bool("override", false, "regenerate an existing destination")
	f.IntP("workers", "j", runner.DefaultOptions.Workers, "concurrent simulator runs")
	f.Float64("launch-rate", 0, "simulator launches per second (0 is unlimited)")
	f.String("failure-policy", runner.DefaultOptions.FailurePolicy.String(), "failed samples: skip or zero-fill")
	f.Bool("cleanup", runner.DefaultOptions.Cleanup, "remove the run directory after success")
	f.String("scratch-dir", "", "parent of fresh run directories (default system temp)")
	f.String("resume-dir", "", "resume the run directory of an interrupted run")
	f.String("compression", runner.DefaultOptions.Compression.String(), "dataset compression (none, lz4, zstd)")
	f.String("publish", "", "publish backend (local, s3, minio)")
	f.String("publish-bucket", "", "bucket receiving the dataset")
	f.String("publish-dir", "", "directory receiving the dataset for the local backend")
	f.String("publish-name", "", "published blob name (default destination base name)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.Bool("trace", false, "export OpenTelemetry spans to stderr")

	bindFlags(v, f, map[string]string{
		"out":                 "out",
		"oracle.path":         "oracle",
		"oracle.timeout":      "timeout",
		"sampling.regime":     "regime",
		"sampling.seed":       "seed",
		"sampling.repeats":    "repeats",
		"sampling.samplesize": "samplesize",
		"run.override":        "override",
		"run.workers":         "workers",
		"run.launch_rate":     "launch-rate",
		"run.failure_policy":  "failure-policy",
		"run.cleanup":         "cleanup",
		"run.scratch_dir":     "scratch-dir",
		"run.resume_dir":      "resume-dir",
		"run.compression":     "compression",
		"publish.backend":     "publish",
		"publish.bucket":      "publish-bucket",
		"publish.dir":         "publish-dir",
		"publish.name":        "publish-name",
		"metrics.addr":        "metrics-addr",
		"trace.enabled":       "trace",
	})

	return cmd
}

func runGenerate(ctx context.Context, stdout, stderr io.Writer, cfg *Config) error {
	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Trace.Enabled,
		ServiceName: "radbase",
		SampleRatio: cfg.Trace.SampleRatio,
		Writer:      stderr,
	}, logger.Logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger.Logger)

	var metrics radbase.MetricsCollector = radbase.NoopMetricsCollector{}
	if cfg.Metrics.Addr != "" {
		collector, err := observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		srv := serveMetrics(cfg.Metrics.Addr, collector, logger)
		defer shutdownServer(srv, logger)
		metrics = collector
	}

	s, err := newSampler(cfg.Sampling.Regime)
	if err != nil {
		return err
	}
	policy, err := runner.ParseFailurePolicy(cfg.Run.FailurePolicy)
	if err != nil {
		return err
	}
	compression, err := dataset.ParseCompression(cfg.Run.Compression)
	if err != nil {
		return err
	}
	store, err := newPublishStore(ctx, cfg.Publish)
	if err != nil {
		return err
	}

	res, err := radbase.Generate(ctx, cfg.Out,
		radbase.WithSampler(s),
		radbase.WithOracle(cfg.Oracle.Path, func(o *oracle.Options) {
			o.Args = cfg.Oracle.Args
			o.Timeout = cfg.Oracle.Timeout
		}),
		radbase.WithLogger(logger),
		radbase.WithMetricsCollector(metrics),
		radbase.WithRunnerOptions(func(o *runner.Options) {
			o.Repeats = cfg.Sampling.Repeats
			o.SampleSize = cfg.Sampling.SampleSize
			o.Seed = cfg.Sampling.Seed
			o.Override = cfg.Run.Override
			o.Cleanup = cfg.Run.Cleanup
			o.Workers = cfg.Run.Workers
			o.LaunchRate = cfg.Run.LaunchRate
			o.FailurePolicy = policy
			o.Deduplicate = cfg.Run.Deduplicate
			o.ScratchDir = cfg.Run.ScratchDir
			o.RunDir = cfg.Run.ResumeDir
			o.Compression = compression
			o.Publish = store
			o.PublishName = cfg.Publish.Name
			o.PublishRate = cfg.Publish.RateLimit
		}),
	)
	if err != nil {
		var re *radbase.RunError
		if errors.As(err, &re) && re.RunDir != "" {
			_, _ = fmt.Fprintf(stderr, "run directory kept at %s, continue with --resume-dir %s\n", re.RunDir, re.RunDir)
		}
		return err
	}

	if res.Skipped {
		_, _ = fmt.Fprintf(stdout, "%s exists, nothing to do (use --override to regenerate)\n", res.Dataset)
		return nil
	}

	_, _ = fmt.Fprintf(stdout, "wrote %s: %d rows from %d samples (%d failed, %d duplicates dropped) in %s\n",
		res.Dataset, len(res.Rows), res.Samples, res.Failed.GetCardinality(), res.Duplicates, res.Elapsed.Round(time.Millisecond))
	if res.Published != "" {
		_, _ = fmt.Fprintf(stdout, "published %s\n", res.Published)
	}

	return nil
}

func newSampler(regime string) (sampler.Sampler, error) {
	switch regime {
	case "", "tracked":
		return sampler.NewTracked(), nil
	case "full", "full-spectrum":
		return sampler.NewFullSpectrum(), nil
	default:
		return nil, fmt.Errorf("unknown sampling regime %q", regime)
	}
}

func serveMetrics(addr string, collector *observability.Collector, log *radbase.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server exited", "error", err)
		}
	}()

	log.Info("serving Prometheus metrics", "addr", addr)
	return srv
}

func shutdownServer(srv *http.Server, log *radbase.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("metrics server shutdown failed", "error", err)
	}
}
