/*
stepgen generates staged builders for Go types.

Usage:

	stepgen <command> [flags] [packages]

Commands:

	stepgen generate   Generate the builders of packages and spec files
	stepgen describe   Print the stage chains of builders
	stepgen watch      Regenerate builders whenever their sources change
	stepgen version    Print version information

Typical use is a go:generate directive next to the owner type:

	//go:generate go run github.com/syssam/stepgen/cmd/stepgen generate .

See 'stepgen help <command>' for more information on a specific command.
*/
package main

import (
	"os"

	"github.com/syssam/stepgen/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
