package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurrent-agent/internal/chunker"
	"recurrent-agent/internal/provider"
	"recurrent-agent/internal/schema"
)

// fakeGateway scripts one outcome per call and records what it saw.
type fakeGateway struct {
	script      []func() (provider.Response, error)
	calls       int
	userPrompts []string
	chunks      []string
	onCall      func(call int)
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Generate(_ context.Context, _, userPrompt, chunk string) (provider.Response, error) {
	f.calls++
	f.userPrompts = append(f.userPrompts, userPrompt)
	f.chunks = append(f.chunks, chunk)
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	idx := f.calls - 1
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	return f.script[idx]()
}

func succeed(resp provider.Response) func() (provider.Response, error) {
	return func() (provider.Response, error) { return resp, nil }
}

func failProvider() (provider.Response, error) {
	return nil, fmt.Errorf("%w: connection refused", provider.ErrProvider)
}

func failMalformed() (provider.Response, error) {
	return nil, fmt.Errorf("%w: not json", provider.ErrMalformedResponse)
}

func noSchema(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.New(nil)
	require.NoError(t, err)
	return v
}

// fakeSleep records backoff waits instead of sleeping.
type fakeSleep struct {
	waits []time.Duration
	err   error
}

func (s *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func testChunk() chunker.Chunk {
	return chunker.Chunk{Text: "some text", Index: 0, Start: 0, End: 9}
}

func TestProcessRetryThenSucceed(t *testing.T) {
	// fails exactly max_retries times, then succeeds on the next attempt
	gw := &fakeGateway{script: []func() (provider.Response, error){
		failProvider,
		failProvider,
		succeed(map[string]any{"ok": true}),
	}}
	sl := &fakeSleep{}
	p := NewProcessor(gw, noSchema(t), 2, 0)
	p.sleep = sl.sleep

	resp, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"ok": true}, resp)
	assert.Equal(t, 3, gw.calls)
	// exponential schedule: 2^0, 2^1 seconds
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sl.waits)
}

func TestProcessProviderErrorExhausted(t *testing.T) {
	gw := &fakeGateway{script: []func() (provider.Response, error){
		failProvider, failProvider, failProvider,
	}}
	sl := &fakeSleep{}
	p := NewProcessor(gw, noSchema(t), 2, 0)
	p.sleep = sl.sleep

	_, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	assert.False(t, ok)
	assert.Equal(t, 3, gw.calls)
	assert.Len(t, sl.waits, 2)
}

func TestProcessMalformedRetriesWithoutBackoff(t *testing.T) {
	gw := &fakeGateway{script: []func() (provider.Response, error){
		failMalformed,
		succeed([]any{"fine"}),
	}}
	sl := &fakeSleep{}
	p := NewProcessor(gw, noSchema(t), 2, 0)
	p.sleep = sl.sleep

	resp, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	require.True(t, ok)
	assert.Equal(t, []any{"fine"}, resp)
	assert.Empty(t, sl.waits)
}

func TestProcessValidationFailureExhausted(t *testing.T) {
	v, err := schema.New(map[string]any{
		"type":     "object",
		"required": []any{"name"},
	})
	require.NoError(t, err)

	// valid JSON that never matches the schema: max_retries+1 attempts
	gw := &fakeGateway{script: []func() (provider.Response, error){
		succeed(map[string]any{"wrong": 1}),
		succeed(map[string]any{"wrong": 2}),
		succeed(map[string]any{"wrong": 3}),
	}}
	sl := &fakeSleep{}
	p := NewProcessor(gw, v, 2, 0)
	p.sleep = sl.sleep

	_, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	assert.False(t, ok)
	assert.Equal(t, 3, gw.calls)
	// validation retries never sleep
	assert.Empty(t, sl.waits)
}

func TestProcessValidationRetryThenConform(t *testing.T) {
	v, err := schema.New(map[string]any{
		"type":     "object",
		"required": []any{"name"},
	})
	require.NoError(t, err)

	gw := &fakeGateway{script: []func() (provider.Response, error){
		succeed(map[string]any{"wrong": 1}),
		succeed(map[string]any{"name": "Ada"}),
	}}
	p := NewProcessor(gw, v, 2, 0)
	p.sleep = (&fakeSleep{}).sleep

	resp, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "Ada"}, resp)
}

func TestProcessZeroRetries(t *testing.T) {
	gw := &fakeGateway{script: []func() (provider.Response, error){failProvider}}
	sl := &fakeSleep{}
	p := NewProcessor(gw, noSchema(t), 0, 0)
	p.sleep = sl.sleep

	_, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	assert.False(t, ok)
	assert.Equal(t, 1, gw.calls)
	assert.Empty(t, sl.waits)
}

// unresponsiveGateway blocks until the call context expires, like a backend
// that accepted the connection and never answers.
type unresponsiveGateway struct {
	calls int
}

func (g *unresponsiveGateway) Name() string { return "unresponsive" }

func (g *unresponsiveGateway) Generate(ctx context.Context, _, _, _ string) (provider.Response, error) {
	g.calls++
	if g.calls == 1 {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", provider.ErrProvider, ctx.Err())
	}
	return map[string]any{"ok": true}, nil
}

func TestProcessCallTimeoutEntersRetryPath(t *testing.T) {
	// first call hangs until the per-call deadline fires; the timeout must
	// be treated as a provider error, backed off, and retried
	gw := &unresponsiveGateway{}
	sl := &fakeSleep{}
	p := NewProcessor(gw, noSchema(t), 1, 20*time.Millisecond)
	p.sleep = sl.sleep

	done := make(chan struct{})
	var resp provider.Response
	var ok bool
	go func() {
		resp, ok = p.Process(context.Background(), testChunk(), "sys", "user")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Process never returned: gateway call is unbounded")
	}

	require.True(t, ok)
	assert.Equal(t, map[string]any{"ok": true}, resp)
	assert.Equal(t, 2, gw.calls)
	assert.Equal(t, []time.Duration{1 * time.Second}, sl.waits)
}

func TestProcessCallTimeoutDoesNotCancelParent(t *testing.T) {
	// the deadline is per call: the parent context must stay live for the
	// retry after a timed-out attempt
	gw := &unresponsiveGateway{}
	p := NewProcessor(gw, noSchema(t), 1, 10*time.Millisecond)
	p.sleep = (&fakeSleep{}).sleep

	ctx := context.Background()
	_, ok := p.Process(ctx, testChunk(), "sys", "user")
	require.True(t, ok)
	assert.NoError(t, ctx.Err())
}

func TestProcessCancelledDuringBackoff(t *testing.T) {
	gw := &fakeGateway{script: []func() (provider.Response, error){
		failProvider, failProvider, failProvider,
	}}
	sl := &fakeSleep{err: context.Canceled}
	p := NewProcessor(gw, noSchema(t), 2, 0)
	p.sleep = sl.sleep

	_, ok := p.Process(context.Background(), testChunk(), "sys", "user")
	assert.False(t, ok)
	// gave up after the first aborted wait
	assert.Equal(t, 1, gw.calls)
}
