package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"optask/internal/backend/googletasks"
	"optask/internal/exitcode"
	"optask/internal/optimistic"
	"optask/internal/output"
	"optask/internal/service"
)

// MetricsRegistry collects the controller metrics of this process.
var MetricsRegistry = prometheus.NewRegistry()

var controllerMetrics = sync.OnceValue(func() *optimistic.Metrics {
	return optimistic.NewMetrics(optimistic.WithRegistry(MetricsRegistry))
})

func newController(store service.Store) *optimistic.Controller {
	return optimistic.New(store,
		optimistic.WithLogger(log.Logger),
		optimistic.WithMetrics(controllerMetrics()),
	)
}

// loadController builds a controller over store and loads it.
// On failure it prints the error and returns the exit code to use.
func loadController(ctx context.Context, store service.Store, errOut io.Writer) (*optimistic.Controller, int) {
	ctrl := newController(store)
	if err := ctrl.Load(ctx); err != nil {
		ctrl.Close()
		fmt.Fprintf(errOut, "error: load failed: %v\n", err)
		return nil, exitCodeFor(err)
	}
	if ctx.Err() != nil {
		ctrl.Close()
		fmt.Fprintln(errOut, "error: cancelled")
		return nil, exitcode.UserError
	}
	return ctrl, exitcode.Success
}

// exitCodeFor maps controller and backend errors onto exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, googletasks.ErrAuth):
		return exitcode.AuthError
	case errors.Is(err, optimistic.ErrEmptyTitle),
		errors.Is(err, optimistic.ErrNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, optimistic.ErrBusy),
		errors.Is(err, optimistic.ErrLoading):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// failureMessage renders a failed operation for the user.
func failureMessage(kind, target string, err error) string {
	switch {
	case errors.Is(err, optimistic.ErrEmptyTitle):
		return "error: title required"
	case errors.Is(err, optimistic.ErrNotFound), errors.Is(err, service.ErrNotFound):
		return fmt.Sprintf("error: item not found: %s", target)
	case errors.Is(err, optimistic.ErrBusy):
		return fmt.Sprintf("error: item busy: %s", target)
	case errors.Is(err, optimistic.ErrLoading):
		return "error: still loading"
	default:
		return fmt.Sprintf("error: could not %s %s: %v", kind, target, err)
	}
}

// runConcurrently runs fn for every id at once and returns the errors in
// id order.
func runConcurrently(ids []int64, fn func(id int64) error) []error {
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(id)
		}()
	}
	wg.Wait()
	return errs
}

// report prints the failures in errs, then the resulting collection unless
// quiet, and returns the exit code of the first failure.
func report(ctx context.Context, quiet bool, ctrl *optimistic.Controller, kind string, targets []string, errs []error, out, errOut io.Writer) int {
	code := exitcode.Success
	for i, err := range errs {
		if err == nil {
			continue
		}
		fmt.Fprintln(errOut, failureMessage(kind, targets[i], err))
		if code == exitcode.Success {
			code = exitCodeFor(err)
		}
	}
	if code == exitcode.Success && ctx.Err() != nil {
		fmt.Fprintln(errOut, "error: cancelled")
		code = exitcode.UserError
	}
	if !quiet {
		output.FormatSnapshot(out, ctrl.Snapshot())
	}
	return code
}
