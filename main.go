package main

import (
	"context"
	"os"

	"tubewatch/cmd"
	"tubewatch/logging"
)

func main() {
	app := cmd.NewApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		logging.New(os.Stderr, logging.Options{}).Fatalf("application error: %v", err)
	}
}
