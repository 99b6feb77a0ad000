package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/optimistic"
	"optask/internal/service"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command (alias: done).
// Several items may be toggled at once; the store calls run concurrently.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Flip the done state of items" }
func (c *ToggleCmd) Usage() string     { return "optask toggle [common flags] <id>..." }
func (c *ToggleCmd) NeedsStore() bool  { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	return mutateEach(ctx, cfg, store, args, optimistic.KindToggle, out, errOut,
		func(ctrl *optimistic.Controller, id int64) error {
			return ctrl.Toggle(ctx, id)
		})
}

// mutateEach parses item refs, loads the collection and applies fn to every
// referenced item concurrently.
func mutateEach(ctx context.Context, cfg *config.Config, store service.Store, args []string, kind string, out, errOut io.Writer, fn func(*optimistic.Controller, int64) error) int {
	ids, err := ParseItemRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctrl, code := loadController(ctx, store, errOut)
	if code != exitcode.Success {
		return code
	}
	defer ctrl.Close()

	errs := runConcurrently(ids, func(id int64) error {
		return fn(ctrl, id)
	})
	targets := make([]string, len(ids))
	for i, id := range ids {
		targets[i] = fmt.Sprint(id)
	}
	return report(ctx, cfg.Quiet, ctrl, kind, targets, errs, out, errOut)
}
