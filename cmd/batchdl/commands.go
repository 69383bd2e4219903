package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/batchdl"
	"github.com/adamwoolhether/batchdl/batch"
	"github.com/adamwoolhether/batchdl/client"
	"github.com/adamwoolhether/batchdl/internal/config"
	"github.com/adamwoolhether/batchdl/internal/manifest"
)

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "batchdl",
		Short:         "Sequential batch HTTP downloader",
		Long:          `batchdl fetches a list of URLs to local files one at a time, reporting progress per item and continuing past failures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/batchdl/batchdl.yaml)")
	config.RegisterFlags(root.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run <manifest|->",
		Short: "Download every item of a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readManifest(args[0], cmd.InOrStdin())
			if err != nil {
				return withCode(ExitInvalidArgs, err)
			}

			return execute(cmd, cfgFile, m.Requests())
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <url> [dest]",
		Short: "Download a single URL",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return withCode(ExitGeneralError, err)
			}

			item := batch.Request{SourceURL: args[0]}
			if len(args) == 2 {
				item.DestinationPath = args[1]
			}

			m := manifest.Manifest{Dir: wd, Items: []batch.Request{item}}
			return execute(cmd, cfgFile, m.Requests())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "batchdl %s\n", version)
		},
	}

	root.AddCommand(runCmd, getCmd, versionCmd)

	return root
}

func readManifest(arg string, stdin io.Reader) (manifest.Manifest, error) {
	if arg != "-" {
		return manifest.Load(arg)
	}

	wd, err := os.Getwd()
	if err != nil {
		return manifest.Manifest{}, err
	}
	return manifest.Parse(stdin, wd)
}

// execute runs reqs as one batch and maps the outcome to an exit code.
func execute(cmd *cobra.Command, cfgFile string, reqs []batch.Request) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return withCode(ExitInvalidArgs, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return withCode(ExitInvalidArgs, errors.Join(errs...))
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	o, err := batchdl.NewOrchestrator(clientOptions(cfg, logger),
		batch.WithLogger(logger),
		batch.WithItemTimeout(cfg.ItemTimeout),
	)
	if err != nil {
		return withCode(ExitGeneralError, err)
	}

	r := newRenderer(cmd.OutOrStdout(), len(reqs))

	err = o.Run(cmd.Context(), reqs, r)
	switch {
	case errors.Is(err, batch.ErrNoWork):
		return withCode(ExitInvalidArgs, nil)
	case errors.Is(err, batch.ErrBatchCancelled):
		return withCode(ExitCancelled, nil)
	case err != nil:
		return withCode(ExitGeneralError, nil)
	case r.failed > 0:
		return withCode(ExitItemsFailed, nil)
	}

	return nil
}

func clientOptions(cfg *config.Config, logger *slog.Logger) []client.Option {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(cfg.Timeout),
	}

	if cfg.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.UserAgent))
	}
	if cfg.Atomic {
		opts = append(opts, client.WithAtomicWrites())
	}
	if cfg.ProgressLog {
		opts = append(opts, client.WithProgressLog())
	}

	return opts
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.Level()}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
