package tracereg_test

import (
	"context"
	"fmt"
	"time"

	"github.com/deklarative/tracereg"
	"github.com/zoobzio/clockz"
)

func Example() {
	reg := tracereg.New(
		tracereg.WithClock(clockz.NewFakeClockAt(time.Unix(0, 0))),
		tracereg.WithIDGenerator(tracereg.DeterministicIDGenerator(1234)),
	)
	defer reg.Shutdown(context.Background())

	rec := tracereg.NewSpanRecorder()
	reg.AddSpanProcessor(rec)

	tr := reg.Get("worker", "v1.0.0")
	ctx, span := tr.Start(context.Background(), "process")
	_, child := tr.Start(ctx, "step")
	child.End()
	span.End()

	for _, s := range rec.Ended() {
		fmt.Println(s.Scope, s.Name, s.Parent.IsValid())
	}
	// Output:
	// worker@v1.0.0 step true
	// worker@v1.0.0 process false
}

func ExampleRegistry_SetForcedParent() {
	reg := tracereg.New(tracereg.WithInterception())
	rec := tracereg.NewSpanRecorder()
	reg.AddSpanProcessor(rec)

	// Collect everything under one synthetic root, e.g. for a test harness.
	_, root := reg.Get("harness", "").SpanBuilder("root").Start(context.Background())
	reg.SetForcedParent(root.SpanContext())

	_, span := reg.Get("worker", "").SpanBuilder("op").Start(context.Background())
	span.End()

	snap := rec.Ended()[0]
	fmt.Println(snap.Name, snap.Parent.SpanID() == root.SpanContext().SpanID())
	// Output:
	// op true
}
