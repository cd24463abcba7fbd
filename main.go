// Pocket-forms builds prompts from templates whose [Label: option, option]
// tokens become form fields.
//
// Usage:
//
//	pocket-forms                 # interactive editor
//	pocket-forms generate <template> --set field=option
//	pocket-forms serve           # HTTP API
//	pocket-forms mcp             # MCP tools over stdio
//
// See 'pocket-forms --help' for all commands.
package main

import (
	"os"

	"github.com/dpshade/pocket-forms/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
