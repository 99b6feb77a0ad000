package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "optask help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  optask                                     Start an interactive session
  optask shell [common flags] [--watch=false]
  optask list [common flags]
  optask add [common flags] <title...>
  optask create [common flags] <title...>
  optask toggle [common flags] <id>...
  optask done [common flags] <id>...
  optask rm [common flags] <id>...
  optask delete [common flags] <id>...
  optask login [common flags]
  optask logout [common flags]
  optask help
  optask version

Common flags:
  --config <dir>      Override config directory
  --backend <name>    Store backend: mock or google
  --quiet             Suppress informational output
  --debug             Print debug logs to stderr
`
