package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	odata "github.com/nlstn/go-odata-query"
)

// TargetFlags select what an option is evaluated against.
type TargetFlags struct {
	Type      string            `help:"Entity type or entity set" short:"t"`
	Alias     map[string]string `help:"Parameter alias as name=value, without '@'" short:"a"`
	CrossJoin []string          `help:"Entity sets of a cross join" name:"crossjoin"`
}

func (f TargetFlags) target() (odata.Target, error) {
	if f.Type == "" && len(f.CrossJoin) == 0 {
		return odata.Target{}, errMissingTarget
	}
	aliases := make(map[string]string, len(f.Alias))
	for name, value := range f.Alias {
		aliases[strings.TrimPrefix(name, "@")] = value
	}
	return odata.Target{Type: f.Type, Aliases: aliases, CrossJoin: f.CrossJoin}, nil
}

// FilterCmd represents the filter command
type FilterCmd struct {
	Target TargetFlags `embed:""`
	Expr   string      `arg:"" help:"The $filter value"`
}

// Run executes the filter command
func (cmd *FilterCmd) Run(ctx *Context) error {
	parser, target, err := prepare(ctx, cmd.Target)
	if err != nil {
		return err
	}
	result, err := parser.Filter(context.Background(), target, cmd.Expr)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{"where": result.Where})
}

// OrderByCmd represents the orderby command
type OrderByCmd struct {
	Target TargetFlags `embed:""`
	Expr   string      `arg:"" help:"The $orderby value"`
}

// Run executes the orderby command
func (cmd *OrderByCmd) Run(ctx *Context) error {
	parser, target, err := prepare(ctx, cmd.Target)
	if err != nil {
		return err
	}
	result, err := parser.OrderBy(context.Background(), target, cmd.Expr)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{"orderBy": result.OrderBy})
}

// SearchCmd represents the search command
type SearchCmd struct {
	Type string `help:"Entity type or entity set whose searchable properties are listed" short:"t"`
	Expr string `arg:"" help:"The $search value"`
}

// Run executes the search command
func (cmd *SearchCmd) Run(ctx *Context) error {
	parser, err := loadParser(ctx)
	if err != nil {
		return err
	}
	result, err := parser.Search(context.Background(), odata.Target{Type: cmd.Type}, cmd.Expr)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"search": result.Search}
	if cmd.Type != "" {
		out["properties"] = result.Properties
	}
	return printJSON(ctx, out)
}

// ApplyCmd represents the apply command
type ApplyCmd struct {
	Target TargetFlags `embed:""`
	Expr   string      `arg:"" help:"The $apply value"`
}

// Run executes the apply command
func (cmd *ApplyCmd) Run(ctx *Context) error {
	parser, target, err := prepare(ctx, cmd.Target)
	if err != nil {
		return err
	}
	result, err := parser.Apply(context.Background(), target, cmd.Expr)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{
		"query":      result.Query,
		"properties": result.Type.PropertyNames(),
	})
}

// SetsCmd represents the sets command
type SetsCmd struct{}

// Run executes the sets command
func (cmd *SetsCmd) Run(ctx *Context) error {
	parser, err := loadParser(ctx)
	if err != nil {
		return err
	}
	name := color.New(color.FgCyan)
	for _, set := range parser.Model().EntitySets() {
		_, _ = name.Fprint(ctx.Stdout, set.Name)
		_, _ = fmt.Fprintf(ctx.Stdout, "\t%s\n", set.EntityType)
	}
	return nil
}

func loadParser(ctx *Context) (*odata.Parser, error) {
	model, err := odata.LoadModel(ctx.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return odata.NewParser(model, odata.WithLogger(ctx.Logger)), nil
}

func prepare(ctx *Context, flags TargetFlags) (*odata.Parser, odata.Target, error) {
	target, err := flags.target()
	if err != nil {
		return nil, odata.Target{}, err
	}
	parser, err := loadParser(ctx)
	if err != nil {
		return nil, odata.Target{}, err
	}
	return parser, target, nil
}

func printJSON(ctx *Context, v interface{}) error {
	enc := json.NewEncoder(ctx.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
