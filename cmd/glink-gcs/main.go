package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/groundlink-io/groundlink/cmd/glink-gcs/app"
)

func main() {
	if err := app.NewApp().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
