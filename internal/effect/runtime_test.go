package effect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) sink(a string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("effect did not finish")
	}
}

// blocking returns a Run effect that produces value once release is closed,
// or nothing useful when cancelled.
func blocking(release <-chan struct{}, value string) Effect[string] {
	return Run(func(ctx context.Context) string {
		select {
		case <-release:
			return value
		case <-ctx.Done():
			return "cancelled:" + value
		}
	})
}

func TestRunDeliversExactlyOneAction(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}

	sent, done := rt.Execute(Run(func(context.Context) string { return "done" }), rec.sink)
	assert.Empty(t, sent)
	waitDone(t, done)
	assert.Equal(t, []string{"done"}, rec.actions())
}

func TestSendIsReturnedSynchronously(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}

	sent, done := rt.Execute(Merge(Send("a"), None[string](), Send("b")), rec.sink)
	waitDone(t, done)
	assert.Equal(t, []string{"a", "b"}, sent)
	assert.Empty(t, rec.actions())
}

func TestCancelDropsResult(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	release := make(chan struct{})

	_, done := rt.Execute(blocking(release, "first").Cancellable("visits"), rec.sink)
	require.Equal(t, 1, rt.Outstanding("visits"))

	rt.Execute(Cancel[string]("visits"), rec.sink)
	assert.Equal(t, 0, rt.Outstanding("visits"))
	waitDone(t, done)
	close(release)
	assert.Empty(t, rec.actions(), "a cancelled run feeds nothing back")
}

func TestCancelWithNothingOutstandingIsNoop(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	sent, done := rt.Execute(Cancel[string]("nothing"), (&recorder{}).sink)
	assert.Empty(t, sent)
	waitDone(t, done)
}

func TestSameIDDoesNotCancelImplicitly(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	release := make(chan struct{})

	_, d1 := rt.Execute(blocking(release, "one").Cancellable("signin"), rec.sink)
	_, d2 := rt.Execute(blocking(release, "two").Cancellable("signin"), rec.sink)
	assert.Equal(t, 2, rt.Outstanding("signin"))

	close(release)
	waitDone(t, d1)
	waitDone(t, d2)
	assert.ElementsMatch(t, []string{"one", "two"}, rec.actions())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		if json.Unmarshal(sc.Bytes(), &rec) == nil {
			out = append(out, rec)
		}
	}
	return out
}

func TestCancelLogsNumberOfCancelledOperations(t *testing.T) {
	logs := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	release := make(chan struct{})
	defer close(release)

	_, d1 := rt.Execute(blocking(release, "one").Cancellable("history"), rec.sink)
	_, d2 := rt.Execute(blocking(release, "two").Cancellable("history"), rec.sink)
	rt.Execute(Cancel[string]("history"), rec.sink)
	waitDone(t, d1)
	waitDone(t, d2)

	var counts []float64
	for _, line := range logs.lines() {
		if line["msg"] == "Runtime.cancelID: cancelled" {
			counts = append(counts, line["count"].(float64))
		}
	}
	assert.Equal(t, []float64{2}, counts)
}

func TestCancelThenRunKeepsOnlySecond(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	first := make(chan struct{})
	second := make(chan struct{})

	_, d1 := rt.Execute(blocking(first, "first").Cancellable("visits"), rec.sink)
	_, d2 := rt.Execute(Concatenate(Cancel[string]("visits"), blocking(second, "second").Cancellable("visits")), rec.sink)
	assert.Equal(t, 1, rt.Outstanding("visits"))

	close(first)
	close(second)
	waitDone(t, d1)
	waitDone(t, d2)
	assert.Equal(t, []string{"second"}, rec.actions())
}

func TestConcatenateRunsInSequence(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	release := make(chan struct{})

	sent, done := rt.Execute(Concatenate(
		Send("sync"),
		blocking(release, "a"),
		Run(func(context.Context) string { return "b" }),
		Send("late"),
	), rec.sink)
	assert.Equal(t, []string{"sync"}, sent)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.actions(), "b must wait for a")

	close(release)
	waitDone(t, done)
	assert.Equal(t, []string{"a", "b", "late"}, rec.actions())
}

func TestMergeRunsConcurrently(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	release := make(chan struct{})

	_, done := rt.Execute(Merge(
		blocking(release, "slow"),
		Run(func(context.Context) string { return "fast" }),
	), rec.sink)

	require.Eventually(t, func() bool { return len(rec.actions()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"fast"}, rec.actions())
	close(release)
	waitDone(t, done)
	assert.Equal(t, []string{"fast", "slow"}, rec.actions())
}

func TestStreamStopsOnCancel(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	ticks := make(chan string)

	_, done := rt.Execute(Stream(func(ctx context.Context, send func(string)) {
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-ticks:
				send(v)
			}
		}
	}).Cancellable("timer"), rec.sink)

	ticks <- "t1"
	ticks <- "t2"
	require.Eventually(t, func() bool { return len(rec.actions()) == 2 }, time.Second, 5*time.Millisecond)

	rt.Execute(Cancel[string]("timer"), rec.sink)
	waitDone(t, done)
	assert.Equal(t, []string{"t1", "t2"}, rec.actions())
}

func TestFireAndForgetDiscardsOutcome(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	defer rt.Close()
	rec := &recorder{}
	var called sync.WaitGroup
	called.Add(1)

	_, done := rt.Execute(FireAndForget[string](func(context.Context) { called.Done() }), rec.sink)
	called.Wait()
	waitDone(t, done)
	assert.Empty(t, rec.actions())
}

func TestCloseCancelsEverything(t *testing.T) {
	rt := NewRuntime[string](context.Background())
	rec := &recorder{}
	release := make(chan struct{})
	defer close(release)

	_, done := rt.Execute(Merge(
		blocking(release, "a").Cancellable("a"),
		Stream(func(ctx context.Context, send func(string)) { <-ctx.Done() }),
	), rec.sink)
	rt.Close()
	waitDone(t, done)
	assert.Empty(t, rec.actions())

	_, after := rt.Execute(Run(func(context.Context) string { return "x" }), rec.sink)
	waitDone(t, after)
	assert.Empty(t, rec.actions(), "a closed runtime starts nothing")
}

func TestMapAndInspect(t *testing.T) {
	e := Concatenate(
		Cancel[int]("visits"),
		Run(func(context.Context) int { return 2 }).Cancellable("visits"),
		Send(3),
	)
	mapped := Map(e, func(i int) string { return string(rune('a' + i)) })

	assert.Equal(t, []Step{
		{Kind: KindCancel, ID: "visits"},
		{Kind: KindRun, ID: "visits"},
		{Kind: KindSend},
	}, mapped.Steps())
	assert.True(t, mapped.Has(KindRun, "visits"))
	assert.Equal(t, []string{"d"}, mapped.Sent())
	assert.Equal(t, []string{"c", "d"}, Perform(context.Background(), mapped))
	assert.True(t, Merge[int]().IsNone())
	assert.Equal(t, "fire_and_forget", KindFireAndForget.String())
}
