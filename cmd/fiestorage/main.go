// cmd/fiestorage/main.go
package main

import (
	"context"
	"os"

	"github.com/fie-storage/fiestorage/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		// Error already logged by WAFFLE
		os.Exit(1)
	}
}
