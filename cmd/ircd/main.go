/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/go-ircd/ircd"
	"github.com/go-ircd/ircd/persistence"
)

// options are the CLI flags (jessevdk/go-flags), each overriding the
// matching TOML field when set. Grounded on the teacher's
// cmd/dircd/main.go, which wired these as NewServer functional options;
// this module's Config is TOML-first, so flags apply as overrides after
// LoadConfig instead.
type options struct {
	Config          string `short:"c" long:"config" description:"path to TOML configuration file"`
	Listen          string `long:"listen" description:"override the plaintext listen address (host:port)"`
	Port            int    `long:"port" description:"override the plaintext listen port"`
	Name            string `long:"name" description:"override the server hostname"`
	Network         string `long:"network" description:"override the advertised network name"`
	DNSLookup       bool   `long:"dns-lookup" description:"enable reverse DNS lookup of connecting clients"`
	TLSCertFile     string `long:"tls-cert-file" description:"override the TLS certificate file path"`
	TLSCertKeyFile  string `long:"tls-cert-key-file" description:"override the TLS certificate key file path"`
	LogFile         string `long:"log-file" description:"also write logs to this file"`
	LogLevel        string `long:"log-level" default:"info" description:"logrus level: debug, info, warn, error"`
	GenPasswordHash bool   `long:"gen-password-hash" description:"prompt for a password, print its hash, and exit"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if opts.GenPasswordHash {
		runGenPasswordHash()
		return
	}

	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger, err := ircd.NewLogger(level, opts.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}
	log := logger.WithField("component", "main")

	cfg, err := ircd.LoadConfig(opts.Config)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}
	applyOverrides(cfg, &opts)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open persistence store: %s", err)
	}
	defer store.Close()

	ircd.Warmup(logger)
	server := ircd.NewServer(cfg, store)

	mainContext, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Listeners run for the process lifetime; none of them return on their
	// own, so this WaitGroup tracks them for panic propagation only, not
	// for a join on shutdown (main returns directly once the drain sleep
	// below elapses, taking these goroutines down with the process).
	wg := conc.NewWaitGroup()

	wg.Go(func() {
		if err := server.ListenAndServe(); err != nil {
			log.Errorf("plaintext listener stopped: %s", err)
		}
	})

	if cfg.TLSEnabled {
		wg.Go(func() {
			if err := server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != nil {
				log.Errorf("TLS listener stopped: %s", err)
			}
		})
	}

	if cfg.WebSocket.Enabled {
		wg.Go(func() {
			if err := server.ServeWebSocket(cfg.WebSocket.Address, cfg.WebSocket.Path); err != nil {
				log.Errorf("websocket listener stopped: %s", err)
			}
		})
	}

	if cfg.Metrics.Enabled {
		wg.Go(func() {
			if err := server.ServeMetrics(cfg.Metrics.Address); err != nil {
				log.Errorf("metrics listener stopped: %s", err)
			}
		})
	}

	killSignals := make(chan os.Signal, 1)
	signal.Notify(killSignals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-killSignals
		log.Infof("initiating shutdown, received signal: %s", sig)
		if err := server.Shutdown(); err != nil {
			log.Warnf("error closing listener: %s", err)
		}
		shutdown()

		sig = <-killSignals
		log.Fatalf("forcing shutdown, received signal: %s", sig)
	}()

	<-mainContext.Done()
	// Give in-flight connections a moment to drain their QUIT broadcasts
	// before the process exits out from under them.
	time.Sleep(250 * time.Millisecond)
}

// applyOverrides layers non-zero CLI flags on top of the loaded config.
func applyOverrides(cfg *ircd.Config, opts *options) {
	if opts.Listen != "" {
		cfg.ListenAddress = opts.Listen
	}
	if opts.Port != 0 {
		cfg.ListenAddress = fmt.Sprintf(":%d", opts.Port)
	}
	if opts.Name != "" {
		cfg.Hostname = opts.Name
	}
	if opts.Network != "" {
		cfg.Network = opts.Network
	}
	if opts.DNSLookup {
		cfg.DNSLookupEnabled = true
	}
	if opts.TLSCertFile != "" {
		cfg.TLSCertFile = opts.TLSCertFile
	}
	if opts.TLSCertKeyFile != "" {
		cfg.TLSKeyFile = opts.TLSCertKeyFile
	}
}

// openStore wires the configured persistence backend, falling back to the
// in-memory store when none is configured (§4.M).
func openStore(cfg *ircd.Config) (ircd.PersistenceStore, error) {
	if cfg.Persistence.Driver == "" {
		return ircd.NewMemoryStore(), nil
	}
	return persistence.Open(cfg.Persistence.Driver, cfg.Persistence.DSN)
}

// runGenPasswordHash implements the --gen-password-hash CLI mode: read a
// password from stdin and print its argon2id encoding for pasting into a
// TOML operator/user/global_password_hash field.
func runGenPasswordHash() {
	fmt.Fprint(os.Stderr, "Password: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fmt.Fprintln(os.Stderr, "no password read")
		os.Exit(1)
	}
	hash, err := ircd.HashPassword(scanner.Text())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to hash password:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
