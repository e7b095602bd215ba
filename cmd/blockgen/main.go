// Command blockgen composes analog blocks into designs and validates them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/blockgen/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		// stdout carries the command's own report; stderr gets the reason
		// for the exit code.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
