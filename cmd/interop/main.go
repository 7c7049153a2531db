// Command interop shows the two ways to get a foreign, non-copyable
// resource into the kernel: guarding it externally with a mutex and
// capturing it by reference, or creating an empty placeholder variable
// and initializing it once inside an Update callback (which, unlike a
// recipe, is guaranteed to run exactly once).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/konall/korhah/core/reactive"
)

// resource is a demo type that needs mutable access and, in approach #1,
// lives entirely outside the kernel.
type resource struct {
	id      uuid.UUID
	counter int
}

func (r *resource) modify() { r.counter++ }

type options struct {
	initial int
}

type inputEvent struct{}

func main() {
	sys := reactive.NewSystem()

	// Approach #1: Arc<Mutex<_>> equivalent — a *sync.Mutex-guarded
	// resource captured by reference in a closure. The kernel never knows
	// this resource exists; it's not a variable at all.
	opts1 := options{initial: 1}
	var mu sync.Mutex
	res1 := &resource{id: uuid.New(), counter: opts1.initial}

	reactive.Listen[inputEvent](sys, nil, func(*reactive.System, *inputEvent, *reactive.Vote, *bool) {
		mu.Lock()
		res1.modify()
		fmt.Printf("-> approach #1 - %d\n", res1.counter)
		mu.Unlock()
	})

	// Approach #2: within the kernel. A recipe must be safely re-runnable
	// (the kernel may recompute it whenever a dependency changes), so it
	// cannot consume a non-reusable construction argument. Instead the
	// variable starts empty and is populated exactly once from an Update
	// callback, which runs once per call and is free to consume opts2.
	opts2 := options{initial: 10}
	resource2, err := reactive.Create(sys, func(_ *reactive.System, _ *resource, _ bool) *resource { return nil })
	must(err)

	_, _, _ = reactive.Update(sys, resource2, func(*resource) (*resource, struct{}) {
		return &resource{id: uuid.New(), counter: opts2.initial}, struct{}{}
	})

	reactive.Listen[inputEvent](sys, nil, func(s *reactive.System, _ *inputEvent, _ *reactive.Vote, _ *bool) {
		_, _, _ = reactive.Update(s, resource2, func(r *resource) (*resource, struct{}) {
			if r != nil {
				r.modify()
			}
			return r, struct{}{}
		})
		r, _, _ := reactive.Read(s, resource2, identity)
		if r != nil {
			fmt.Printf("-> approach #2 - %d\n", r.counter)
		}
	})

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "@exit" {
			fmt.Println("Exiting...")
			return
		}
		_, _ = reactive.Emit(sys, nil, inputEvent{})
	}
}

func identity[T any](v T) T { return v }

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
