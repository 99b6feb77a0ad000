package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/output"
	"optask/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct{}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List items" }
func (c *ListCmd) Usage() string     { return "optask list [common flags]" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	ctrl, code := loadController(ctx, store, errOut)
	if code != exitcode.Success {
		return code
	}
	defer ctrl.Close()

	output.FormatSnapshot(out, ctrl.Snapshot())
	return exitcode.Success
}
