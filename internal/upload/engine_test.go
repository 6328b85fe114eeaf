package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/models"
)

// fakeTransport scripts the transport side of an upload.
type fakeTransport struct {
	run func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error)
}

func (f *fakeTransport) UploadCSV(ctx context.Context, target api.UploadTarget, paths []string, onProgress func(sent, total int64)) ([]byte, error) {
	return f.run(ctx, onProgress)
}

func stagedFiles() []models.StagedFile {
	return []models.StagedFile{
		{ID: "f1", Name: "catalog.csv", Path: "/tmp/catalog.csv", SizeBytes: 100},
		{ID: "f2", Name: "extra.csv", Path: "/tmp/extra.csv", SizeBytes: 100},
	}
}

func waitOutcome(t *testing.T, h *Handle) Outcome {
	t.Helper()
	select {
	case o := <-h.Outcome():
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for outcome")
		return Outcome{}
	}
}

// drainProgress collects overall percentages until the channel stalls.
func drainProgress(ch <-chan events.Event) []int {
	var got []int
	for {
		select {
		case ev := <-ch:
			if pe, ok := ev.(*events.UploadProgressEvent); ok {
				got = append(got, pe.Overall)
			}
		case <-time.After(100 * time.Millisecond):
			return got
		}
	}
}

func TestEngine_RealSuccess(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			for _, sent := range []int64{25, 60, 100} {
				onProgress(sent, 100)
			}
			return []byte(`{"recommendations":[{"product_id":"P1","name":"Thing","overall_score":0.9}]}`), nil
		},
	}

	bus := events.NewBus(64)
	defer bus.Close()
	progressCh := bus.Subscribe(events.EventUploadProgress)

	engine := NewEngine(transport, bus)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("Expected success, got %s (%s)", outcome.Kind, outcome.Message)
	}
	if len(outcome.Envelope.Recommendations) != 1 {
		t.Errorf("Expected 1 recommendation in the envelope, got %d", len(outcome.Envelope.Recommendations))
	}
	if h.Session().State() != StateSucceeded {
		t.Errorf("Expected state %s, got %s", StateSucceeded, h.Session().State())
	}

	got := drainProgress(progressCh)
	want := []int{0, 25, 60, 100, 100}
	if len(got) != len(want) {
		t.Fatalf("Expected progress %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected progress %v, got %v", want, got)
		}
	}
}

func TestEngine_RealSuccessUndecodableBody(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			return []byte(`{"message":"uploaded 3 products"}`), nil
		},
	}

	engine := NewEngine(transport, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("A 2xx response without recommendations is still a success, got %s", outcome.Kind)
	}
	if len(outcome.Envelope.Recommendations) != 0 {
		t.Errorf("Expected empty envelope, got %d entries", len(outcome.Envelope.Recommendations))
	}
}

func TestEngine_ServerErrorOutcome(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			return nil, &api.Error{StatusCode: 422, Message: "value is not a valid float"}
		},
	}

	engine := NewEngine(transport, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeServerError {
		t.Fatalf("Expected server error, got %s", outcome.Kind)
	}
	if outcome.StatusCode != 422 {
		t.Errorf("Expected status 422, got %d", outcome.StatusCode)
	}
	if outcome.Message != "value is not a valid float" {
		t.Errorf("Expected the server's message, got %q", outcome.Message)
	}
	if h.Session().State() != StateFailed {
		t.Errorf("Expected state %s, got %s", StateFailed, h.Session().State())
	}
}

func TestEngine_NetworkErrorOutcome(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	engine := NewEngine(transport, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeNetworkError {
		t.Fatalf("Expected network error, got %s", outcome.Kind)
	}
}

func TestEngine_CancelAbortsAndResetsProgress(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			onProgress(50, 100)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	engine := NewEngine(transport, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	h.Cancel()

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeAborted {
		t.Fatalf("Expected aborted, got %s", outcome.Kind)
	}
	if h.Session().State() != StateAborted {
		t.Errorf("Expected state %s, got %s", StateAborted, h.Session().State())
	}

	overall, perFile := h.Session().Progress()
	if overall != 0 {
		t.Errorf("Expected progress reset to 0 after abort, got %d", overall)
	}
	for id, pct := range perFile {
		if pct != 0 {
			t.Errorf("File %s: expected 0 after abort, got %d", id, pct)
		}
	}
}

func TestEngine_ExactlyOneOutcome(t *testing.T) {
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			return []byte(`{}`), nil
		},
	}

	engine := NewEngine(transport, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	first := waitOutcome(t, h)
	if first.Kind != OutcomeSuccess {
		t.Fatalf("Expected success, got %s", first.Kind)
	}

	// Cancel after the terminal outcome must not produce a second one or
	// change the state.
	h.Cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case second := <-h.Outcome():
		t.Fatalf("Received a second outcome: %s", second.Kind)
	default:
	}
	if h.Session().State() != StateSucceeded {
		t.Errorf("Cancel after completion must not change state, got %s", h.Session().State())
	}
}

func TestEngine_SingleSessionInFlight(t *testing.T) {
	release := make(chan struct{})
	transport := &fakeTransport{
		run: func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
			<-release
			return []byte(`{}`), nil
		},
	}

	engine := NewEngine(transport, nil)
	h1, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("Expected ErrUploadInFlight, got %v", err)
	}

	close(release)
	waitOutcome(t, h1)

	// After the first session resolves, a new one may begin.
	transport.run = func(ctx context.Context, onProgress func(sent, total int64)) ([]byte, error) {
		return []byte(`{}`), nil
	}
	h2, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeReal)
	if err != nil {
		t.Fatalf("Begin after a terminal session failed: %v", err)
	}
	waitOutcome(t, h2)
}

func TestEngine_MockTicks(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()
	progressCh := bus.Subscribe(events.EventUploadProgress)

	engine := NewEngine(nil, bus)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeMock)
	if err != nil {
		t.Fatal(err)
	}

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("Expected success, got %s", outcome.Kind)
	}
	if len(outcome.Envelope.Recommendations) == 0 {
		t.Error("Expected the canned envelope to carry recommendations")
	}
	if outcome.Envelope.Explanation == "" {
		t.Error("Expected the canned envelope to carry an explanation")
	}

	got := drainProgress(progressCh)
	if len(got) != 11 {
		t.Fatalf("Expected 11 ticks (0..100 by 10), got %v", got)
	}
	for i, pct := range got {
		if pct != i*10 {
			t.Fatalf("Tick %d: expected %d, got %d", i, i*10, pct)
		}
	}
}

func TestEngine_MockCancelBeforeCompletion(t *testing.T) {
	engine := NewEngine(nil, nil)
	h, err := engine.Begin(context.Background(), stagedFiles(), api.TargetProducts, ModeMock)
	if err != nil {
		t.Fatal(err)
	}

	h.Cancel()

	outcome := waitOutcome(t, h)
	if outcome.Kind != OutcomeAborted {
		t.Fatalf("Expected aborted, got %s", outcome.Kind)
	}

	overall, _ := h.Session().Progress()
	if overall != 0 {
		t.Errorf("Expected progress reset after cancel, got %d", overall)
	}
}
