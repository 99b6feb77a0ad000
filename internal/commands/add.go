package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/optimistic"
	"optask/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command (alias: create).
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Add an item" }
func (c *AddCmd) Usage() string     { return "optask add [common flags] <title...>" }
func (c *AddCmd) NeedsStore() bool  { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	ctrl, code := loadController(ctx, store, errOut)
	if code != exitcode.Success {
		return code
	}
	defer ctrl.Close()

	_, err := ctrl.Create(ctx, title)
	return report(ctx, cfg.Quiet, ctrl, optimistic.KindCreate, []string{fmt.Sprintf("%q", title)}, []error{err}, out, errOut)
}
