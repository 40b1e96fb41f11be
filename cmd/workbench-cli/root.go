package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/licitaciones-workbench/internal/config"
	"github.com/bigkaa/licitaciones-workbench/internal/dataclient"
)

// clientFlags — параметры подключения к сервису данных.
// Значения по умолчанию берутся из переменных окружения WB_*.
type clientFlags struct {
	baseURL string
	token   string
	caCert  string
	timeout time.Duration
	verbose bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	timeout := 30 * time.Second
	if d, err := time.ParseDuration(os.Getenv(config.EnvPrefix + "DATA_SERVICE_TIMEOUT")); err == nil {
		timeout = d
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.baseURL, "data-url", os.Getenv(config.EnvPrefix+"DATA_SERVICE_URL"), "Base URL of the data service")
	pf.StringVar(&f.token, "token", os.Getenv(config.EnvPrefix+"DATA_SERVICE_TOKEN"), "Static bearer token")
	pf.StringVar(&f.caCert, "ca-cert", os.Getenv(config.EnvPrefix+"DATA_SERVICE_CA_CERT"), "CA certificate for TLS")
	pf.DurationVar(&f.timeout, "timeout", timeout, "Request timeout")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Log requests to stderr")
}

func (f *clientFlags) logger() *slog.Logger {
	if !f.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (f *clientFlags) client() (*dataclient.Client, error) {
	if f.baseURL == "" {
		return nil, fmt.Errorf("--data-url or %sDATA_SERVICE_URL is required", config.EnvPrefix)
	}
	return dataclient.New(f.baseURL, f.caCert, f.timeout, f.token, f.logger())
}

func newRootCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:           "workbench-cli",
		Short:         "Public tender report workbench tools",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(cmd)

	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newFacetsCmd(flags))
	cmd.AddCommand(newShowCmd(flags))
	cmd.AddCommand(newDuplicateCmd(flags))
	cmd.AddCommand(newDeleteCmd(flags))
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
