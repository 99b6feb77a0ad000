package commands

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"optask/internal/config"
	"optask/internal/exitcode"
	"optask/internal/optimistic"
	"optask/internal/output"
	"optask/internal/service"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd implements the interactive session. Mutations run in the
// background, so further commands can be typed while the store catches up.
type ShellCmd struct {
	// Input is read for commands. Defaults to os.Stdin.
	Input io.Reader

	watch bool
}

func (c *ShellCmd) Name() string      { return "shell" }
func (c *ShellCmd) Aliases() []string { return nil }
func (c *ShellCmd) Synopsis() string  { return "Interactive session" }
func (c *ShellCmd) Usage() string     { return "optask shell [common flags] [--watch=false]" }
func (c *ShellCmd) NeedsStore() bool  { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.watch, "watch", true, "")
}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, store service.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	in := c.Input
	if in == nil {
		in = os.Stdin
	}

	sh := &shell{
		ctrl:   newController(store),
		out:    &syncWriter{w: out},
		errOut: &syncWriter{w: errOut},
		quiet:  cfg.Quiet,
		watch:  c.watch,
	}
	if sh.watch {
		unsubscribe := sh.ctrl.Subscribe(sh.render)
		defer unsubscribe()
	}

	if err := sh.ctrl.Load(ctx); err == nil && !sh.watch && !sh.quiet {
		sh.render(sh.ctrl.Snapshot())
	} else if err != nil && !sh.watch {
		sh.errOut.printf("%s\n", failureMessage(optimistic.KindLoad, "items", err))
	}

	stop := make(chan struct{})
	code := sh.loop(ctx, readLines(stop, in))
	close(stop)
	sh.ctrl.Close()
	sh.wg.Wait()
	return code
}

const shellHelp = `Commands:
  add <title...>    Add an item (alias: a)
  toggle <id>...    Flip the done state (alias: t)
  rm <id>...        Delete items (alias: delete)
  retry             Retry a failed load
  ls                Print the items
  wait              Wait for pending operations
  metrics           Print operation counters
  quit              Leave, cancelling pending operations (alias: exit)
`

type shell struct {
	ctrl   *optimistic.Controller
	out    *syncWriter
	errOut *syncWriter
	quiet  bool
	watch  bool

	wg sync.WaitGroup
}

// loop runs commands until quit, end of input or cancellation.
func (s *shell) loop(ctx context.Context, lines <-chan string) int {
	for {
		var line string
		select {
		case <-ctx.Done():
			s.errOut.printf("error: cancelled\n")
			return exitcode.UserError
		case l, ok := <-lines:
			if !ok {
				s.wg.Wait()
				if !s.watch && !s.quiet {
					s.render(s.ctrl.Snapshot())
				}
				return exitcode.Success
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if quit := s.exec(ctx, fields[0], fields[1:]); quit {
			return exitcode.Success
		}
	}
}

func (s *shell) exec(ctx context.Context, name string, args []string) (quit bool) {
	switch name {
	case "add", "a":
		title := strings.Join(args, " ")
		if title == "" {
			s.errOut.printf("error: title required\n")
			return false
		}
		s.launch(optimistic.KindCreate, fmt.Sprintf("%q", title), func() error {
			_, err := s.ctrl.Create(ctx, title)
			return err
		})
	case "toggle", "t":
		s.each(args, optimistic.KindToggle, func(id int64) error {
			return s.ctrl.Toggle(ctx, id)
		})
	case "rm", "delete":
		s.each(args, optimistic.KindDelete, func(id int64) error {
			return s.ctrl.Delete(ctx, id)
		})
	case "retry":
		s.launch(optimistic.KindLoad, "items", func() error {
			return s.ctrl.RetryLoad(ctx)
		})
	case "ls":
		s.render(s.ctrl.Snapshot())
	case "wait":
		s.wg.Wait()
	case "metrics":
		if err := writeMetrics(s.out, MetricsRegistry); err != nil {
			s.errOut.printf("error: %v\n", err)
		}
	case "help", "?":
		s.out.printf("%s", shellHelp)
	case "quit", "exit":
		return true
	default:
		s.errOut.printf("error: unknown command: %s\n", name)
	}
	return false
}

func (s *shell) each(args []string, kind string, fn func(int64) error) {
	ids, err := ParseItemRefs(args)
	if err != nil {
		s.errOut.printf("error: %v\n", err)
		return
	}
	for _, id := range ids {
		s.launch(kind, fmt.Sprint(id), func() error { return fn(id) })
	}
}

// launch runs fn in the background and reports its failure, if any.
func (s *shell) launch(kind, target string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.errOut.printf("%s\n", failureMessage(kind, target, err))
		}
	}()
}

func (s *shell) render(snap optimistic.Snapshot) {
	var buf bytes.Buffer
	output.FormatSnapshot(&buf, snap)
	s.out.write(buf.Bytes())
}

// readLines delivers the lines of r until EOF, a read error or stop.
// A read already blocked in r is not interrupted by stop.
func readLines(stop <-chan struct{}, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines
}

// writeMetrics prints every gathered family in the text exposition format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("format metrics: %w", err)
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// syncWriter serializes writes from concurrent operations.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) write(p []byte) {
	_, _ = s.Write(p)
}

func (s *syncWriter) printf(format string, args ...any) {
	s.write(fmt.Appendf(nil, format, args...))
}
