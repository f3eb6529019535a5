// Package main is the imagefilter command itself.
package main

import (
	"os"

	"github.com/pterm/pterm"

	"go.viam.com/imagefilter/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		pterm.Fprintln(os.Stderr, pterm.Error.Sprint(err))
		os.Exit(1)
	}
}
