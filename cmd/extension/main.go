// Command extension demonstrates building a richer event out of the
// kernel's built-in Updating/Updated pair: a cancellable, undoable custom
// "change" event, synthesized entirely from host code with no kernel
// changes. The kernel only ever sees ordinary updates; the undo behaviour
// lives up here.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/konall/korhah/core/reactive"
	"github.com/konall/korhah/core/reactive/script"
	"github.com/konall/korhah/internal/config"
	"github.com/konall/korhah/internal/telemetry"
)

type item struct {
	n int
}

// change is the custom, host-defined event layered on top of Updating and
// Updated: it carries the before/after values and can be cancelled like
// any other vote-tallied event, even though the kernel has no idea it
// exists.
type change struct {
	prev item
	next item
}

func main() {
	configPath := flag.String("config", "", "path to a korhah.yaml config file (optional)")
	rulePath := flag.String("rule", "", "path to a JS file exporting a shouldCancel(inputs) predicate (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	must(err)

	opts := []reactive.Option{reactive.WithMode(cfg.ReactiveMode()), reactive.WithNamespace(cfg.Namespace)}
	if cfg.Metrics.Enabled {
		providers, shutdown, err := telemetry.Init(context.Background(), cfg.Metrics.Endpoint, cfg.Metrics.ExportName)
		must(err)
		defer shutdown(context.Background())
		opts = append(opts, reactive.WithMetrics(telemetry.NewRecorder(providers.MeterProvider)))
	}

	var rule *script.Program
	if *rulePath != "" {
		source, err := os.ReadFile(*rulePath)
		must(err)
		rule, err = script.Compile(*rulePath, "shouldCancel", string(source))
		must(err)
	}

	sys := reactive.NewSystem(opts...)

	prevValues, err := reactive.Create(sys, func(_ *reactive.System, _ map[reactive.ID]item, _ bool) map[reactive.ID]item {
		return make(map[reactive.ID]item)
	})
	must(err)

	undoing, err := reactive.Create(sys, func(_ *reactive.System, _ bool, _ bool) bool { return false })
	must(err)

	shouldCancel, err := reactive.Create(sys, func(_ *reactive.System, _ bool, _ bool) bool { return false })
	must(err)

	// Hook every Item variable's creation to wire up the undo machinery
	// for that one target.
	reactive.Listen[reactive.Created[item]](sys, nil, func(s *reactive.System, e *reactive.Created[item], _ *reactive.Vote, _ *bool) {
		target := e.Source
		untyped := target.Untyped()

		reactive.Listen[reactive.Updating](s, &untyped, func(s *reactive.System, _ *reactive.Updating, _ *reactive.Vote, _ *bool) {
			isUndoing, _, _ := reactive.Read(s, undoing, identity)
			if isUndoing {
				return
			}
			prev, _, _ := reactive.Read(s, target, identity)
			_, _, _ = reactive.Update(s, prevValues, func(m map[reactive.ID]item) (map[reactive.ID]item, struct{}) {
				m[target.ID()] = prev
				return m, struct{}{}
			})
		})

		reactive.Listen[reactive.Updated](s, &untyped, func(s *reactive.System, _ *reactive.Updated, _ *reactive.Vote, _ *bool) {
			isUndoing, _, _ := reactive.Read(s, undoing, identity)
			if isUndoing {
				// The undo itself just finished; reset the flag for next time.
				_, _, _ = reactive.Update(s, undoing, func(bool) (bool, struct{}) { return false, struct{}{} })
				return
			}

			prev, _, _ := reactive.Read(s, prevValues, func(m map[reactive.ID]item) item { return m[target.ID()] })
			next, _, _ := reactive.Read(s, target, identity)
			_, _, _ = reactive.Update(s, prevValues, func(m map[reactive.ID]item) (map[reactive.ID]item, struct{}) {
				delete(m, target.ID())
				return m, struct{}{}
			})

			votes, aborted := reactive.Emit(s, &untyped, change{prev: prev, next: next})
			undo := aborted || votes.Cancel > votes.Proceed
			if undo {
				_, _, _ = reactive.Update(s, undoing, func(bool) (bool, struct{}) { return true, struct{}{} })
				_, _, _ = reactive.Update(s, target, func(item) (item, struct{}) { return prev, struct{}{} })
			}
		})

		reactive.Listen[change](s, &untyped, func(s *reactive.System, e *change, vote *reactive.Vote, _ *bool) {
			cancel, _, _ := reactive.Read(s, shouldCancel, identity)
			if !cancel && rule != nil {
				inputs := map[string]any{"prev": e.prev.n, "next": e.next.n}
				if scripted, err := script.Run[bool](rule, inputs); err == nil {
					cancel = scripted
				}
			}
			if cancel {
				*vote = reactive.VoteCancel
				fmt.Printf("-> prevented change: %d => %d\n", e.prev.n, e.next.n)
			} else {
				fmt.Printf("-> made change: %d => %d\n", e.prev.n, e.next.n)
			}
		})
	})

	x, err := reactive.Create(sys, func(_ *reactive.System, _ item, _ bool) item { return item{} })
	must(err)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "@exit":
			fmt.Println("Exiting...")
			return
		case "@toggle":
			_, _, _ = reactive.Update(sys, shouldCancel, func(v bool) (bool, struct{}) { return !v, struct{}{} })
		case "@val":
			v, _, _ := reactive.Read(sys, x, identity)
			fmt.Printf("-> x = %d\n", v.n)
		default:
			n := len([]rune(line))
			_, _, _ = reactive.Update(sys, x, func(item) (item, struct{}) { return item{n: n}, struct{}{} })
		}
	}
}

func identity[T any](v T) T { return v }

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
