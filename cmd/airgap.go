package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aceeric/airgap/cmd/subcmd"
	"github.com/aceeric/airgap/impl/config"
	"github.com/aceeric/airgap/impl/globals"
)

var (
	buildVer string
	buildDtm string
)

func main() {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile())

	// an interrupt fails the in-flight store calls, every image still gets an
	// outcome and the summary is still written
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "pull":
		err = subcmd.Pull(ctx, os.Stdout)
	case "version":
		subcmd.Version(os.Stdout, buildVer, buildDtm)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
