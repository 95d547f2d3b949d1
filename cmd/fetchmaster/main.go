// Fetchmaster acquires media from web sources and runs each item through
// a staged pipeline: acquire, assemble, loudness-normalize, tag, and
// place into a deterministic output tree.
//
// Usage:
//
//	fetchmaster -i jobs.csv -o /srv/media [flags]
//
// The job list is a CSV file with '#' comments; see the README for the
// column layout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/fetchmaster/internal/check"
	"github.com/backmassage/fetchmaster/internal/config"
	"github.com/backmassage/fetchmaster/internal/display"
	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/joblist"
	"github.com/backmassage/fetchmaster/internal/logging"
	"github.com/backmassage/fetchmaster/internal/pipeline"
	"github.com/backmassage/fetchmaster/internal/placer"
	"github.com/backmassage/fetchmaster/internal/scheduler"
	"github.com/backmassage/fetchmaster/internal/stage"
	"github.com/backmassage/fetchmaster/internal/tools"
)

// version is set via ldflags at build time.
var version = "dev"

// errBatchFailed signals a non-zero exit after the report was printed.
var errBatchFailed = errors.New("batch finished with failures")

func main() {
	cfg := config.DefaultConfig()

	// The defaults file must be loaded before flag values land in cfg,
	// so --config is pre-scanned from the raw arguments.
	if path := configArg(os.Args[1:]); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		cfg.ConfigFile = path
	}

	var neg config.NegatedFlags

	rootCmd := &cobra.Command{
		Use:           "fetchmaster",
		Short:         "Batch media acquisition and processing pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.ApplyNegatedFlags(&cfg, &neg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(&cfg)
		},
	}

	config.BindFlags(rootCmd.Flags(), &cfg, &neg)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errBatchFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// configArg extracts the --config value from raw arguments, before cobra
// parses them.
func configArg(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return ""
}

func run(cfg *config.Config) error {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner()

	if cfg.CheckOnly {
		check.RunCheck(cfg, log)
		return nil
	}

	result, err := joblist.ParseFile(cfg.InputList, cfg.CoverDir)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		log.Warn("%s", w)
	}
	if result.Invalid != nil {
		for _, r := range result.Invalid.Rows {
			log.Error("invalid job: %s", r.Error())
		}
	}
	if len(result.Specs) == 0 {
		return errors.New("no valid jobs in list")
	}
	log.Info("%d job(s) to run", len(result.Specs))

	place := placer.New(cfg.OutputDir, cfg.Overwrite)

	if cfg.DryRun {
		printPlan(log, place, cfg, result.Specs)
		if result.Invalid != nil {
			return errBatchFailed
		}
		return nil
	}

	if err := check.CheckDeps(cfg); err != nil {
		return err
	}

	retry := stage.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.CallTimeout = cfg.StageTimeout

	registry := stage.NewRegistry()
	registry.Register(stage.Acquire, &tools.Acquirer{
		VideoContainer: cfg.VideoContainer,
		SubtitleLang:   cfg.SubtitleLang,
		Verbose:        cfg.Verbose,
	})
	registry.Register(stage.Assemble, &tools.Assembler{
		AudioCodec:     cfg.AudioCodec,
		AudioBitrate:   cfg.AudioBitrate,
		VideoContainer: cfg.VideoContainer,
		Verbose:        cfg.Verbose,
	})
	registry.Register(stage.Normalize, &tools.Normalizer{
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: cfg.AudioBitrate,
		Verbose:      cfg.Verbose,
	})
	registry.Register(stage.Tag, &tools.Tagger{Verbose: cfg.Verbose})
	registry.Register(stage.Place, place)

	driver := &pipeline.Driver{
		Registry: registry,
		Log:      log,
		Retry:    retry,
		Resume:   cfg.Resume,
		Verbose:  cfg.Verbose,
		ExpectedOutputs: func(spec job.Spec) []string {
			return expectedOutputs(place, cfg, spec)
		},
	}

	sched := scheduler.New(driver, log, cfg.WorkDir, cfg.KeepWork, scheduler.Limits{
		Acquire:   int64(cfg.AcquireLimit),
		Transcode: int64(cfg.TranscodeLimit),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := sched.Run(ctx, result.Specs)
	display.PrintReport(rep)

	if rep.ExitCode() != 0 || result.Invalid != nil {
		return errBatchFailed
	}
	return nil
}

// expectedOutputs returns the final destination paths a fully completed
// job produces, used to short-circuit re-runs of an already finished
// list.
func expectedOutputs(p *placer.Placer, cfg *config.Config, spec job.Spec) []string {
	dir := p.DestDir(spec)
	base := placer.Sanitize(spec.TrackTitle)
	var outs []string
	if spec.Kind.WantsAudio() {
		outs = append(outs, filepath.Join(dir, base+".mp3"))
	}
	if spec.Kind.WantsVideo() {
		outs = append(outs, filepath.Join(dir, base+"."+cfg.VideoContainer))
	}
	return outs
}

// printPlan is the dry-run output: every job with its stage sequence,
// working directory, and final destinations. Nothing is executed.
func printPlan(log *logging.Logger, p *placer.Placer, cfg *config.Config, specs []job.Spec) {
	log.Info("Dry run: no stage will execute")
	for _, spec := range specs {
		var ids []string
		for _, st := range stage.SequenceFor(spec.Kind) {
			ids = append(ids, st.ID)
		}
		log.Info("%2d. %s [%s]", spec.Index+1, spec.Label(), spec.Kind)
		log.Info("      stages: %s", strings.Join(ids, ", "))
		log.Info("      work:   %s", pipeline.WorkDirFor(cfg.WorkDir, spec))
		for _, out := range expectedOutputs(p, cfg, spec) {
			log.Info("      out:    %s", out)
		}
	}
}
