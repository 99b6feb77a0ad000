package commands

import (
	"strings"
	"testing"
	"time"
)

func TestReadLines_StopsWhenSessionEnds(t *testing.T) {
	stop := make(chan struct{})
	lines := readLines(stop, strings.NewReader("ls\nwait\nquit\nls\n"))

	if got := <-lines; got != "ls" {
		t.Fatalf("expected first line, got %q", got)
	}
	close(stop)
	// Nobody receives now, so the reader can only take the stop branch.
	time.Sleep(20 * time.Millisecond)

	select {
	case l, ok := <-lines:
		if ok {
			t.Errorf("reader kept delivering after stop: %q", l)
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not exit after stop")
	}
}

func TestReadLines_ClosesAtEOF(t *testing.T) {
	lines := readLines(make(chan struct{}), strings.NewReader("add milk\nls"))

	var got []string
	for l := range lines {
		got = append(got, l)
	}
	if strings.Join(got, "|") != "add milk|ls" {
		t.Errorf("unexpected lines %q", got)
	}
}
