package main

import (
	"github.com/alecthomas/kong"
)

// Globals are shared by every command.
type Globals struct {
	EnvFile string `name:"env-file" default:".env" help:"Environment file loaded before reading configuration."`
}

var root struct {
	Globals `embed:""`

	Serve   serveCmd   `cmd:"" help:"Run the HTTP API and the aggregation engine."`
	Add     addCmd     `cmd:"" help:"Record a transaction."`
	List    listCmd    `cmd:"" help:"List transactions, newest first."`
	Delete  deleteCmd  `cmd:"" help:"Delete a transaction by id."`
	Summary summaryCmd `cmd:"" help:"Print totals and category breakdowns."`
	Export  exportCmd  `cmd:"" help:"Write the business report workbook."`
}

func main() {
	ctx := kong.Parse(&root,
		kong.Name("finboard"),
		kong.Description("Income and expense tracking with business reports."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&root.Globals)
	ctx.FatalIfErrorf(err)
}
