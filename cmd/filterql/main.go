package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nlstn/go-filterql/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		if !errors.Is(err, cli.ErrReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
