// Command odataquery parses OData query options against a YAML model and
// prints the translated query AST as JSON.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

// Context represents the global context for commands
type Context struct {
	Model   string
	Verbose bool
	Stdout  io.Writer
	Logger  *slog.Logger
}

// CLI represents the command-line interface
type CLI struct {
	Model   string     `help:"YAML model file" short:"m" required:"" type:"existingfile"`
	Verbose bool       `help:"Log parse calls to stderr" short:"v"`
	Filter  FilterCmd  `cmd:"" help:"Translate a $filter expression"`
	OrderBy OrderByCmd `cmd:"" name:"orderby" help:"Translate a $orderby expression"`
	Search  SearchCmd  `cmd:"" help:"Translate a $search expression"`
	Apply   ApplyCmd   `cmd:"" help:"Translate a $apply pipeline"`
	Sets    SetsCmd    `cmd:"" help:"List the entity sets of the model"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("odataquery"),
		kong.Description("Parse OData v4 query options and print the query AST as JSON."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	appCtx := &Context{
		Model:   cli.Model,
		Verbose: cli.Verbose,
		Stdout:  stdout,
		Logger:  slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}

	if err := kctx.Run(appCtx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprint(w, "Error: ")
	_, _ = fmt.Fprintln(w, err)
}
