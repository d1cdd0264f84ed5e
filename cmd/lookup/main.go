package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lookupd/internal/client"
	"lookupd/internal/log"
	"lookupd/internal/meta"
	"lookupd/internal/network"
)

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("LOOKUPD_CONFIG"),
		"path to the configuration file on disk",
	)
	greeting := flag.String(
		"greeting",
		"Hello from lookup",
		"text sent with the session handshake",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled lookup version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"info",
		"desired logging verbosity: one of error, warn, info, debug",
	)
	flag.Parse()

	// Report the compiled version and exit
	if *version {
		fmt.Printf("lookup/%s\n", meta.VersionSHA)
		return
	}

	level, _ := log.ParseLevel(*verbosity)
	logger := log.NewConsoleLogger(level)

	logger.Debug("main: reading and parsing config: path=%s", *configPath)
	config, err := meta.ParseConfig(*configPath)
	if err != nil {
		logger.Error("main: %v", err)
		os.Exit(1)
	}

	conn, err := network.DialUDP(
		config.ServerAddr(),
		config.ClientAddr(),
		config.Client.ReadTimeout,
		config.Client.WriteTimeout,
	)
	if err != nil {
		logger.Error("main: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger.Info("main: starting session: server=%s local=%s", conn.RemoteAddr(), conn.LocalAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := client.NewDriver(conn, logger).Run(ctx, *greeting, client.DefaultQueries)

	for _, result := range results {
		if result.Answer == nil {
			fmt.Printf("%v\terror: %s\n", result.Query, result.Error)
			continue
		}

		if rr, rrErr := result.Answer.RR(); rrErr == nil {
			fmt.Printf("%v\t%s\n", result.Query, rr)
		} else {
			fmt.Printf("%v\t%v\n", result.Query, result.Answer)
		}
	}

	if err != nil {
		logger.Error("main: session failed: err=%v", err)
		stop()
		conn.Close()
		os.Exit(1)
	}
}
