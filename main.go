package main

import (
	"context"
	"fmt"
	"os"

	"bias-tracker/bootstrap"
)

func main() {
	ctx := context.Background()

	if err := bootstrap.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bias-tracker failed to start: %v\n", err)
		os.Exit(1)
	}
}
