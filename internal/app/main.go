package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/gdcfetch/internal/config"
)

// Main runs gdcfetch with args (without the program name) and returns the
// exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(stderr)
		return ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "gdcfetch: %v\n", err)
		return ExitFatal
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	initSignalHandler(cancelFunc)

	opts = append([]Option{WithOutput(stdout, stderr), WithBinary(binaryName())}, opts...)
	app := NewApp(cfg, opts...)

	sum, err := app.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "gdcfetch: %v\n", err)
	}
	return ExitCode(sum, err)
}

func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		signal.Stop(sigs)
		cancelFunc()
	}()
}

func binaryName() string {
	if len(os.Args) == 0 {
		return "gdcfetch"
	}
	return filepath.Base(os.Args[0])
}
