// Command dom hosts a tiny reactive DOM on top of the kernel: elements are
// variables, parent/child wiring is established automatically by a
// Created[element] listener, and each element creation and each input
// event delivered to the input element is broadcast as a JSON snapshot to
// any websocket client connected to the local HTTP server; focus changes
// and `$clear` are not broadcast.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/konall/korhah/core/reactive"
	"github.com/konall/korhah/lib/async"
)

type element struct {
	parent   *reactive.Variable[element]
	children []reactive.Variable[element]
	text     *string
}

type state struct {
	focused *reactive.Variable[element]
}

type inputEvent struct {
	text string
}

// elementSnapshot is the wire shape broadcast to websocket clients: plain
// uint64 ids instead of the kernel's opaque handles, since the kernel's
// handle types have no exported fields to encode.
type elementSnapshot struct {
	ID       uint64   `json:"id"`
	Parent   *uint64  `json:"parent,omitempty"`
	Children []uint64 `json:"children,omitempty"`
	Text     string   `json:"text,omitempty"`
}

func main() {
	sys := reactive.NewSystem()

	hub := newHub()
	go hub.serve(":8077")

	dom := domIDs{}

	stateVar, err := reactive.Create(sys, func(_ *reactive.System, _ state, _ bool) state { return state{} })
	must(err)

	reactive.Listen[reactive.Created[element]](sys, nil, func(s *reactive.System, e *reactive.Created[element], _ *reactive.Vote, _ *bool) {
		if parent, ok, err := reactive.Read(s, e.Source, func(el element) *reactive.Variable[element] { return el.parent }); err == nil && ok && parent != nil {
			_, _, _ = reactive.Update(s, *parent, func(el element) (element, struct{}) {
				el.children = append(el.children, e.Source)
				return el, struct{}{}
			})
		}
		dom.track(e.Source)
		hub.broadcast(snapshot(s, dom.all()))
	})

	body, err := reactive.Create(sys, func(_ *reactive.System, _ element, _ bool) element { return element{} })
	must(err)

	emptyText := ""
	input, err := reactive.Create(sys, func(_ *reactive.System, _ element, _ bool) element {
		return element{parent: &body, text: &emptyText}
	})
	must(err)

	inputTarget := input.Untyped()
	reactive.Listen[inputEvent](sys, &inputTarget, func(s *reactive.System, e *inputEvent, _ *reactive.Vote, _ *bool) {
		_, _, _ = reactive.Update(s, input, func(el element) (element, struct{}) {
			joined := ""
			if el.text != nil {
				joined = *el.text
			}
			joined += e.text
			el.text = &joined
			return el, struct{}{}
		})
		hub.broadcast(snapshot(s, dom.all()))
	})

	p, err := reactive.Create(sys, func(s *reactive.System, _ element, _ bool) element {
		text, _, _ := reactive.Read(s, input, func(el element) *string { return el.text })
		return element{parent: &body, text: text}
	})
	must(err)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "exit":
			fmt.Println("Exiting...")
			return
		case "@":
			fmt.Println("-> removing focus")
			_, _, _ = reactive.Update(sys, stateVar, func(v state) (state, struct{}) { v.focused = nil; return v, struct{}{} })
		case "@body":
			fmt.Println("-> focus `body`")
			_, _, _ = reactive.Update(sys, stateVar, func(v state) (state, struct{}) { v.focused = &body; return v, struct{}{} })
		case "@input":
			fmt.Println("-> focus `input`")
			_, _, _ = reactive.Update(sys, stateVar, func(v state) (state, struct{}) { v.focused = &input; return v, struct{}{} })
		case "@p":
			fmt.Println("-> focus `p`")
			_, _, _ = reactive.Update(sys, stateVar, func(v state) (state, struct{}) { v.focused = &p; return v, struct{}{} })
		case "#state":
			v, _, _ := reactive.Read(sys, stateVar, identity)
			fmt.Printf("STATE: focused=%v\n", v.focused)
		case "#dom":
			printElement(sys, "BODY", body)
			printElement(sys, "INPUT", input)
			printElement(sys, "P", p)
		case "#body":
			printElement(sys, "BODY", body)
		case "#input":
			printElement(sys, "INPUT", input)
		case "#p":
			printElement(sys, "P", p)
		case "$clear":
			fmt.Println("-> clearing `input`")
			_, _, _ = reactive.Update(sys, input, func(el element) (element, struct{}) { el.text = nil; return el, struct{}{} })
		default:
			v, _, _ := reactive.Read(sys, stateVar, identity)
			if v.focused == nil {
				fmt.Println("-> no element has focus")
				continue
			}
			fmt.Printf("-> emitting %q\n", line)
			target := v.focused.Untyped()
			_, _ = reactive.Emit(sys, &target, inputEvent{text: line})
		}
	}
}

func printElement(sys *reactive.System, label string, v reactive.Variable[element]) {
	el, _, _ := reactive.Read(sys, v, identity)
	text := "<none>"
	if el.text != nil {
		text = *el.text
	}
	fmt.Printf("%s: text=%q children=%d\n", label, text, len(el.children))
}

func snapshot(sys *reactive.System, ids []reactive.Variable[element]) []elementSnapshot {
	out := make([]elementSnapshot, 0, len(ids))
	for _, v := range ids {
		el, ok, _ := reactive.Read(sys, v, identity)
		if !ok {
			continue
		}
		s := elementSnapshot{ID: uint64(v.ID())}
		if el.parent != nil {
			pid := uint64(el.parent.ID())
			s.Parent = &pid
		}
		for _, c := range el.children {
			s.Children = append(s.Children, uint64(c.ID()))
		}
		if el.text != nil {
			s.Text = *el.text
		}
		out = append(out, s)
	}
	return out
}

// domIDs tracks every element variable created so far, purely for the
// broadcaster's benefit; the kernel itself keeps no such registry.
type domIDs struct {
	mu  sync.Mutex
	ids []reactive.Variable[element]
}

func (d *domIDs) track(v reactive.Variable[element]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, v)
}

func (d *domIDs) all() []reactive.Variable[element] {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]reactive.Variable[element], len(d.ids))
	copy(out, d.ids)
	return out
}

// hub fans a DOM snapshot out to every connected websocket client using a
// bounded worker pool, so one slow client can't stall the broadcast of
// the others.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	pool  *async.Pool
}

func newHub() *hub {
	pool, _ := async.NewPool(8, 64)
	return &hub{conns: make(map[*websocket.Conn]struct{}), pool: pool}
}

func (h *hub) serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dom", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conns[conn] = struct{}{}
		h.mu.Unlock()
	})
	log.Printf("dom websocket listening on %s/dom", addr)
	_ = http.ListenAndServe(addr, mux)
}

func (h *hub) broadcast(snap []elementSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c := c
		_ = h.pool.Submit(context.Background(), func(ctx context.Context) error {
			if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
				h.mu.Lock()
				delete(h.conns, c)
				h.mu.Unlock()
			}
			return nil
		})
	}
}

func identity[T any](v T) T { return v }

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
