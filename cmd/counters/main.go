// Command counters is a host program built on the reactive kernel: it
// tracks the number of lines and characters read from stdin as two
// independent variables, and derives a third, "average characters per
// line", that the kernel recomputes automatically whenever either input
// changes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/konall/korhah/core/reactive"
	"github.com/konall/korhah/internal/observability"
)

// inputEvent carries one line read from stdin into the kernel, same shape
// as the reference host's InputEvent.
type inputEvent struct {
	line string
}

// stdoutLogger is the simplest possible observability.Logger: every field
// gets printed inline, no structured sink behind it.
type stdoutLogger struct{}

func (stdoutLogger) Debug(msg string, fields ...observability.Field) { logFields("DEBUG", msg, fields) }
func (stdoutLogger) Info(msg string, fields ...observability.Field)  { logFields("INFO", msg, fields) }
func (stdoutLogger) Error(msg string, fields ...observability.Field) { logFields("ERROR", msg, fields) }

func logFields(level, msg string, fields []observability.Field) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	fmt.Fprintf(os.Stderr, "[%s] %s %s\n", level, msg, strings.Join(parts, " "))
}

// kernelLoggerAdapter forwards the kernel's own Debug/Error diagnostics
// (cascade fan-out, cancelled/aborted dispatches) into the same
// observability.Logger the rest of the host uses, so both sets of log
// lines end up in one stream.
type kernelLoggerAdapter struct{}

func (kernelLoggerAdapter) Debug(msg string, fields ...any) { kernelLogFields("DEBUG", msg, fields) }
func (kernelLoggerAdapter) Error(msg string, fields ...any) { kernelLogFields("ERROR", msg, fields) }

func kernelLogFields(level, msg string, fields []any) {
	converted := make([]observability.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		converted = append(converted, observability.Field{Key: key, Value: fields[i+1]})
	}
	logFields(level, msg, converted)
}

func main() {
	observability.SetLogger(stdoutLogger{})
	metrics := observability.NewRuntimeMetrics()

	bus := observability.NewInMemoryTelemetryBus(16)
	defer bus.Close()
	events, _ := bus.Subscribe(context.Background())
	go func() {
		for evt := range events {
			observability.Log().Info("telemetry", observability.Field{Key: "type", Value: evt.Type}, observability.Field{Key: "trace_id", Value: evt.TraceID})
		}
	}()

	sys := reactive.NewSystem(reactive.WithLogger(kernelLoggerAdapter{}))

	lines, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	must(err)
	metrics.IncCreates()
	_ = bus.Publish(context.Background(), observability.TelemetryEvent{
		Type: observability.TelemetryEventVariableCreated, Severity: observability.TelemetrySeverityInfo,
		TraceID: sys.CorrelationID().String(),
	})

	reactive.Listen[inputEvent](sys, nil, func(s *reactive.System, e *inputEvent, _ *reactive.Vote, _ *bool) {
		_, _, _ = reactive.Update(s, lines, func(v int) (int, struct{}) { return v + 1, struct{}{} })
		metrics.IncUpdates()
	})

	chars, err := reactive.Create(sys, func(_ *reactive.System, _ int, _ bool) int { return 0 })
	must(err)
	metrics.IncCreates()

	reactive.Listen[inputEvent](sys, nil, func(s *reactive.System, e *inputEvent, _ *reactive.Vote, _ *bool) {
		count := utf8.RuneCountInString(e.line)
		_, _, _ = reactive.Update(s, chars, func(v int) (int, struct{}) { return v + count, struct{}{} })
		metrics.IncUpdates()
	})

	average, err := reactive.Create(sys, func(s *reactive.System, _ decimal.Decimal, _ bool) decimal.Decimal {
		l, _, _ := reactive.Read(s, lines, identity)
		c, _, _ := reactive.Read(s, chars, identity)
		if l == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(c)).Div(decimal.NewFromInt(int64(l)))
	})
	must(err)
	metrics.IncCreates()
	metrics.SetLiveVariables(3)

	// Nothing in the kernel schedules anything (no timers, no background
	// goroutines it owns): the rate limit on how fast InputEvents are
	// dispatched is entirely this host's own responsibility.
	limiter := rate.NewLimiter(rate.Limit(50), 5)
	ctx := context.Background()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "@exit":
			fmt.Println("Exiting...")
			return
		case "@lines":
			v, _, _ := reactive.Read(sys, lines, identity)
			metrics.IncReads()
			fmt.Printf("-> %d lines read\n", v)
		case "@chars":
			v, _, _ := reactive.Read(sys, chars, identity)
			metrics.IncReads()
			fmt.Printf("-> %d characters read\n", v)
		case "@avg":
			v, _, _ := reactive.Read(sys, average, identity)
			metrics.IncReads()
			fmt.Printf("-> average of %s characters read per line\n", v.StringFixed(2))
		case "@metrics":
			out, _ := json.MarshalIndent(metrics.Snapshot(), "", "  ")
			fmt.Println(string(out))
		default:
			if err := limiter.Wait(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "rate limiter:", err)
				continue
			}
			_, _ = reactive.Emit(sys, nil, inputEvent{line: line})
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
