package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmcallan/marketstate/internal/app"
	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/services/report"
)

func main() {
	// Interrupt abandons the in-flight provider attempt; the run still
	// emits a document.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	doc, code := app.Run(ctx, os.Getenv("MARKETSTATE_CONFIG"), os.Args[1:])
	stop()

	if err := report.Write(os.Stdout, doc); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		if code == common.ExitOK {
			code = common.ExitComputation
		}
	}
	os.Exit(code)
}
