package main

import (
	"context"
	"fmt"
	"os"

	"cumgpa/internal/commands"
	"cumgpa/internal/errors"
	"cumgpa/internal/infrastructure"
)

func main() {
	root := commands.NewRootCmd(commands.DefaultDeps())

	ctx := context.Background()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.NewErrorHandler(infrastructure.GetLogger()).HandleError(ctx, err))
	}
}
