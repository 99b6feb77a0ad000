package commands

import (
	"context"
	"flag"
	"io"

	"optask/internal/config"
	"optask/internal/optimistic"
	"optask/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command (alias: delete).
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete items" }
func (c *RmCmd) Usage() string     { return "optask rm [common flags] <id>..." }
func (c *RmCmd) NeedsStore() bool  { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	return mutateEach(ctx, cfg, store, args, optimistic.KindDelete, out, errOut,
		func(ctrl *optimistic.Controller, id int64) error {
			return ctrl.Delete(ctx, id)
		})
}
