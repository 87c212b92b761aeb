package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/ieptracker/core"
	logsvc "github.com/trezcool/ieptracker/services/logger"
	"github.com/trezcool/ieptracker/storage"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up storage
	svc, backend, err := storage.NewService(context.Background(), core.Conf, logsvc.NewConsoleLogger(logger, "warn"))
	errAndDie(err)

	// start CLI
	cli := commandLine{
		svc:   svc,
		out:   os.Stdout,
		token: os.Getenv(tokenEnv),
	}
	err = cli.run(os.Args)
	_ = backend.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
