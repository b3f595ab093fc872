package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/idilsaglam/simpletodo/internal/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	group := flag.Bool("group", false, "split output into active/done sections")
	theme := flag.String("theme", "classic", "output theme: classic, neon or mono")
	color := flag.Bool("color", false, "force colored output")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	code := cli.Run(args, cli.Options{
		Group:   *group,
		Theme:   *theme,
		Color:   *color,
		NoColor: *noColor || os.Getenv("NO_COLOR") != "",
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
