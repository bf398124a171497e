package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bingwamta/databot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "databot:", err)
		os.Exit(1)
	}
}
