package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/ieptracker/apps/api/echo"
	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/roster"
	logsvc "github.com/trezcool/ieptracker/services/logger"
	"github.com/trezcool/ieptracker/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Env == "PROD" {
		rbLogger := logsvc.NewRollbarLogger(std, conf)
		rbLogger.Enable(conf.RollbarToken != "")
		logger = rbLogger
	} else {
		logger = logsvc.NewConsoleLogger(std, "debug")
	}

	ctx := context.Background()
	storeSvc, backend, err := storage.NewService(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = backend.Close(); err != nil {
			logger.Error("Failed to close storage", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// the roster is read from the device only: the drive needs the user's credential
	loaded := storeSvc.Load(ctx, "")
	state := roster.NewState(nil)
	state.Reset(loaded.Students)
	logger.Info(fmt.Sprintf("Loaded %d students", len(loaded.Students)))

	saver := roster.NewAutosaver(storeSvc, conf.Autosave.Delay, logger)
	state.OnChange(saver.Hook())

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:   conf.Server.Address,
		AppName:   conf.AppName,
		Debug:     conf.Debug,
		TestMode:  conf.TestMode,
		Logger:    logger,
		Store:     storeSvc,
		Roster:    state,
		Autosaver: saver,
		SignalShutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err = server.Stop(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}

	// persist the last edits before exiting
	if err = saver.Flush(ctx); err != nil {
		logger.Error("saving pending changes failed", err)
	}
}
