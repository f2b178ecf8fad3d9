package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/logging"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/metrics"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/tools"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/transport"
)

const serverName = "sentry-sensei-mcp"

// version is stamped by the release build.
var version = "dev"

type cliFlags struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string
	devMode    bool

	sentryHost  string
	sentryOrg   string
	sentryToken string
	jiraDomain  string
	jiraToken   string
	jiraEmail   string
}

func main() {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   serverName,
		Short: "MCP server bridging Sentry and JIRA",
		Long:  "Exposes Sentry issue search and JIRA ticket tools over the MCP protocol, on stdio by default or HTTP via the serve command.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), flags)
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: json or console")
	pf.BoolVar(&flags.devMode, "dev", false, "attach internal error detail to error responses")
	pf.StringVar(&flags.sentryHost, "sentry-host", "", "Sentry host, e.g. sentry.io")
	pf.StringVar(&flags.sentryOrg, "sentry-organization", "", "default Sentry organization slug")
	pf.StringVar(&flags.sentryToken, "sentry-token", "", "Sentry API token")
	pf.StringVar(&flags.jiraDomain, "atlassian-domain", "", "Atlassian domain, e.g. acme.atlassian.net")
	pf.StringVar(&flags.jiraToken, "jira-token", "", "JIRA API token")
	pf.StringVar(&flags.jiraEmail, "jira-email", "", "JIRA account email")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHTTP(cmd.Context(), flags)
		},
		SilenceUsage: true,
	}
	serve.Flags().StringVar(&flags.addr, "addr", "", "listen address, e.g. :8123")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serverName, version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers CLI flags over file and environment values.
func loadConfig(flags *cliFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	applyIfSet := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	applyIfSet(&cfg.Sentry.Host, flags.sentryHost)
	applyIfSet(&cfg.Sentry.Organization, flags.sentryOrg)
	applyIfSet(&cfg.Sentry.Token, flags.sentryToken)
	applyIfSet(&cfg.Jira.Domain, flags.jiraDomain)
	applyIfSet(&cfg.Jira.Token, flags.jiraToken)
	applyIfSet(&cfg.Jira.Email, flags.jiraEmail)
	applyIfSet(&cfg.Server.Addr, flags.addr)
	applyIfSet(&cfg.Log.Level, flags.logLevel)
	applyIfSet(&cfg.Log.Format, flags.logFormat)
	if flags.devMode {
		cfg.DevMode = true
	}
	return cfg, nil
}

func buildProcessor(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *protocol.Processor {
	registry := tools.New(cfg, logger)
	resolver := credentials.NewResolver(cfg)
	return protocol.NewProcessor(registry, resolver, logger, m, serverName, version, cfg.DevMode)
}

func runStdio(ctx context.Context, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	// stdout carries the protocol stream in stdio mode
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Stderr: true})
	defer func() { _ = logger.Sync() }()

	processor := buildProcessor(cfg, logger, nil)
	server := transport.NewStdioServer(processor, logger, os.Stdin, os.Stdout)
	return server.Run(ctx)
}

func runHTTP(ctx context.Context, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = logger.Sync() }()

	m := metrics.New()
	processor := buildProcessor(cfg, logger, m)
	server := transport.NewHTTPServer(cfg.Server, processor, logger, m)
	return server.ListenAndServe(ctx)
}
