// Package script lets a host define reactive recipes and event handlers as
// JavaScript, for callers that want to accept small snippets of
// configuration-time logic (e.g. a derived counter's formula) without
// shipping a Go recompile. Each invocation runs in a fresh goja runtime:
// scripts are treated as stateless expressions over their declared inputs,
// matching the kernel's requirement that recipes be safely re-runnable.
package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/konall/korhah/errs"
)

// Program is a compiled script, ready to be evaluated repeatedly without
// re-parsing.
type Program struct {
	name    string
	program *goja.Program
	entry   string
}

// Compile parses source and returns a Program that, on Run, calls the
// function named entry with the supplied inputs. Compilation failures are
// reported with the goja parse error attached as the cause.
func Compile(name, entry, source string) (*Program, error) {
	prog, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, errs.New("script.Compile", errs.CodeInvalid, errs.WithMessage("compiling "+name), errs.WithCause(err))
	}
	return &Program{name: name, program: prog, entry: entry}, nil
}

// Run evaluates the program in a fresh runtime, passing inputs as the
// single argument to the entry function (exposed to the script as a plain
// object keyed by the map's keys), and decodes the function's return value
// into a value of type T.
//
// A fresh runtime per call keeps scripts honest about the re-runnability
// the kernel demands of recipes: there is no way for one invocation to
// leak mutable state into the next, short of the host capturing it
// outside the script entirely.
func Run[T any](p *Program, inputs map[string]any) (T, error) {
	var zero T

	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	rt.Set("console", buildConsole(rt))

	if _, err := rt.RunProgram(p.program); err != nil {
		return zero, errs.New("script.Run", errs.CodeInvalid, errs.WithMessage("executing "+p.name), errs.WithCause(err))
	}

	entryVal := rt.Get(p.entry)
	entryFn, ok := goja.AssertFunction(entryVal)
	if !ok {
		return zero, errs.New("script.Run", errs.CodeInvalid, errs.WithMessage(fmt.Sprintf("%s: %q is not a function", p.name, p.entry)))
	}

	result, err := entryFn(goja.Undefined(), rt.ToValue(inputs))
	if err != nil {
		return zero, errs.New("script.Run", errs.CodeInvalid, errs.WithMessage("calling "+p.entry), errs.WithCause(err))
	}

	if err := rt.ExportTo(result, &zero); err != nil {
		return zero, errs.New("script.Run", errs.CodeInvalid, errs.WithMessage("decoding result of "+p.entry), errs.WithCause(err))
	}
	return zero, nil
}

func buildConsole(rt *goja.Runtime) *goja.Object {
	console := rt.NewObject()
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	console.Set("log", noop)
	console.Set("warn", noop)
	console.Set("error", noop)
	return console
}
