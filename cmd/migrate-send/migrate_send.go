// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package migratesend is the "migrate-send" cobra command: the worker
// process a supervisor forks per VM migration (spec.md §4.7). It reads
// one startup message from stdin, replies on stdout, then serves the
// control-plane listener until a sync completes or it is told to stop.
package migratesend

import (
	"context"
	"fmt"
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/rodent-migrate-send/config"
	"github.com/stratastor/rodent-migrate-send/internal/constants"
	"github.com/stratastor/rodent-migrate-send/internal/worker"
	"github.com/stratastor/rodent-migrate-send/pkg/lifecycle"
	"github.com/stratastor/rodent-migrate-send/pkg/server"
)

var detached bool

func NewMigrateSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-send",
		Short: "Run a migration-sender worker, driven by a supervisor over stdin/stdout",
		Run:   run,
	}

	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	return cmd
}

func run(cmd *cobra.Command, args []string) {
	rc := config.GetConfig()
	pidFile := constants.RodentPIDFilePath
	if err := lifecycle.EnsureSingleInstance(pidFile); err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}

	if detached {
		dctx := &daemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0644,
			LogFileName: rc.Logs.Path,
			LogFilePerm: 0640,
			WorkDir:     "/",
			Umask:       027,
			Args:        []string{"rodent-migrate-send", "migrate-send"},
		}

		d, err := dctx.Reborn()
		if err != nil {
			fmt.Printf("Failed to start daemon: %v\n", err)
			os.Exit(1)
		}

		if d != nil {
			fmt.Println("rodent-migrate-send worker running as a daemon")
			return
		}
		defer dctx.Release()
	}

	runWorker()
}

func runWorker() {
	cfg := config.GetConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle.RegisterContextCanceller(cancel)
	lifecycle.RegisterShutdownHook(func() {
		fmt.Println("Shutting down migrate-send worker")
		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Error during diagnostic server shutdown: %v\n", err)
		}
	})

	go lifecycle.HandleSignals(ctx)

	w := worker.New()
	go func() {
		if err := server.Start(ctx, cfg.Server.DebugPort, w); err != nil {
			fmt.Printf("diagnostic server stopped: %v\n", err)
		}
	}()

	if err := worker.RunWith(ctx, os.Stdin, os.Stdout, w); err != nil {
		fmt.Printf("worker exited: %v\n", err)
		os.Exit(1)
	}
}
