package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lookupd/internal/log"
	"lookupd/internal/meta"
	"lookupd/internal/metrics"
	"lookupd/internal/network"
	"lookupd/internal/records"
	"lookupd/internal/session"

	"github.com/getsentry/raven-go"
)

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("LOOKUPD_CONFIG"),
		"path to the configuration file on disk",
	)
	recordsPath := flag.String(
		"records",
		os.Getenv("LOOKUPD_RECORDS"),
		"path to the record table on disk; overrides the Records config key",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled lookupd version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"error",
		"desired logging verbosity: one of error, warn, info, debug",
	)
	flag.Parse()

	// Report the compiled version and exit
	if *version {
		fmt.Printf("lookupd/%s\n", meta.VersionSHA)
		return
	}

	// Logging configuration; default to log.Error verbosity
	level, _ := log.ParseLevel(*verbosity)
	logger := log.NewConsoleLogger(level)
	logger.Debug("main: initialized logger: level=%v", level)

	// Parse application configuration
	logger.Debug("main: reading and parsing config: path=%s", *configPath)
	config, err := meta.ParseConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Load the record table
	if *recordsPath == "" {
		*recordsPath = config.Records
	}

	if *recordsPath == "" {
		panic(fmt.Errorf("main: no record table specified"))
	}

	logger.Debug("main: loading record table: path=%s", *recordsPath)
	table, err := records.Load(*recordsPath, logger)
	if err != nil {
		panic(err)
	}

	// Configure error reporting
	if config.Application != nil && config.Application.SentryDSN != "" {
		raven.SetDSN(config.Application.SentryDSN)
		raven.SetRelease(meta.VersionSHA)
	}

	// Configure metrics reporting
	ioHook := metrics.NewNoopDatagramIOHook()
	sessionHook := metrics.NewNoopSessionHook()

	if config.Metrics != nil && config.Metrics.Statsd != nil {
		logger.Info(
			"main: configuring statsd metrics reporting: addr=%s sample_rate=%f",
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
		)

		if ioHook, err = metrics.NewAsyncStatsdDatagramIOHook(
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
			meta.VersionSHA,
		); err != nil {
			panic(err)
		}

		if sessionHook, err = metrics.NewAsyncStatsdSessionHook(
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
			meta.VersionSHA,
		); err != nil {
			panic(err)
		}
	} else {
		logger.Warn("main: no metrics output engine specified; disabling metrics")
	}

	// Configure the session state machine and its handler
	rules := session.Rules{
		ExpectedQueries: config.Session.ExpectedQueries,
		Resolver:        table,
	}

	h := &session.Handler{
		Machine:     session.NewMachine(rules, sessionHook, logger),
		IOHook:      ioHook,
		SessionHook: sessionHook,
		Logger:      logger,
		IdleTimeout: config.Session.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"main: serving UDP listener: addr=%s records=%d expected_queries=%d read_timeout=%v",
		config.ServerAddr(),
		table.Len(),
		rules.ExpectedQueries,
		config.Session.ReadTimeout,
	)

	server := network.NewUDPServer(config.ServerAddr(), network.UDPServerOpts{
		ReadTimeout:  config.Session.ReadTimeout,
		WriteTimeout: config.Session.WriteTimeout,
	})

	if err := server.ListenAndServe(ctx, h); err != nil {
		panic(err)
	}

	logger.Info("main: shut down")
}
