package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/danmaku/pkg/app"
)

//go:embed stages
var embeddedStages embed.FS

func main() {
	application := app.New(embeddedStages)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
