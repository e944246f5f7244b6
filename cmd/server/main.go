// Command server runs the GophAuth HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "gophauth: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		return err
	}
	app.Run(ctx)
	return nil
}
