package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/models"
)

// Mode selects real or simulated transport.
type Mode string

const (
	ModeReal Mode = "real"
	ModeMock Mode = "mock"
)

// OutcomeKind classifies the terminal outcome of an upload session.
type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeServerError  OutcomeKind = "server_error"
	OutcomeNetworkError OutcomeKind = "network_error"
	OutcomeAborted      OutcomeKind = "aborted"
)

// Outcome is the single terminal result of an upload session.
type Outcome struct {
	Kind       OutcomeKind
	Envelope   models.RecommendationSet // populated on success
	StatusCode int                      // populated on server error
	Message    string
}

// ErrUploadInFlight is returned when Begin is called while a session is
// active. Callers prevent this by disabling the initiating control, not by
// queuing.
var ErrUploadInFlight = errors.New("an upload session is already in flight")

const mockTickDelay = 50 * time.Millisecond

// Transport is the slice of the API client the engine needs.
type Transport interface {
	UploadCSV(ctx context.Context, target api.UploadTarget, paths []string, onProgress func(sent, total int64)) ([]byte, error)
}

// Engine sends staged files to the server, emitting progress on the event
// bus and exactly one terminal outcome per handle.
type Engine struct {
	transport Transport
	bus       *events.Bus

	mu     sync.Mutex
	active *Handle
}

// NewEngine creates a transport engine publishing on bus.
func NewEngine(transport Transport, bus *events.Bus) *Engine {
	return &Engine{transport: transport, bus: bus}
}

// Handle identifies one upload session. Progress arrives on the event bus;
// the terminal outcome is read from Outcome().
type Handle struct {
	session *Session
	fileIDs []string

	cancel context.CancelFunc

	once    sync.Once
	outcome chan Outcome
}

// Session returns the session this handle drives.
func (h *Handle) Session() *Session { return h.session }

// Outcome returns the channel carrying the session's single terminal
// outcome. It is buffered; the outcome is never lost to a slow reader.
func (h *Handle) Outcome() <-chan Outcome { return h.outcome }

// Cancel aborts the session. Valid at any point before resolution: the
// underlying transport is stopped, progress resets to zero, and exactly one
// Aborted outcome is delivered. After a terminal outcome it is a no-op.
func (h *Handle) Cancel() {
	h.cancel()
}

// Begin starts an upload session for the staged files. Only one session may
// be in flight per engine; a second Begin returns ErrUploadInFlight.
//
// The returned handle's outcome is exactly one of Success, ServerError,
// NetworkError, or Aborted, always delivered after the session's last
// progress event.
func (e *Engine) Begin(ctx context.Context, files []models.StagedFile, target api.UploadTarget, mode Mode) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil && !e.active.session.Terminal() {
		return nil, ErrUploadInFlight
	}

	session := NewSession()
	if err := session.Transition(StateStaging); err != nil {
		return nil, err
	}
	if err := session.Transition(StateInFlight); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	fileIDs := make([]string, len(files))
	paths := make([]string, len(files))
	for i, f := range files {
		fileIDs[i] = f.ID
		paths[i] = f.Path
	}

	h := &Handle{
		session: session,
		fileIDs: fileIDs,
		cancel:  cancel,
		outcome: make(chan Outcome, 1),
	}
	e.active = h

	session.resetProgress(fileIDs)

	switch mode {
	case ModeMock:
		go e.runMock(runCtx, h)
	default:
		go e.runReal(runCtx, h, target, paths)
	}

	return h, nil
}

// runReal performs the single multipart transfer. Progress comes from
// transport-level byte counters and is broadcast identically to every file;
// the transport does not expose true per-file granularity.
func (e *Engine) runReal(ctx context.Context, h *Handle, target api.UploadTarget, paths []string) {
	e.emitProgress(h, 0)

	body, err := e.transport.UploadCSV(ctx, target, paths, func(sent, total int64) {
		if total <= 0 {
			return
		}
		e.emitProgress(h, int(sent*100/total))
	})

	if err != nil {
		e.resolveError(ctx, h, err)
		return
	}

	e.emitProgress(h, 100)
	env, err := envelope.Recommendations(body, "")
	if err != nil {
		// 2xx with an undecodable body still succeeded; surface an empty
		// envelope rather than a phantom failure.
		env = models.RecommendationSet{}
	}
	e.resolve(h, StateSucceeded, Outcome{Kind: OutcomeSuccess, Envelope: env})
}

// runMock simulates a fixed cadence of ticks and resolves with the canned
// envelope. Same shapes, same monotonicity, so callers are mode-agnostic.
func (e *Engine) runMock(ctx context.Context, h *Handle) {
	for pct := 0; pct <= 100; pct += 10 {
		if ctx.Err() != nil {
			e.resolveError(ctx, h, ctx.Err())
			return
		}
		e.emitProgress(h, pct)

		if pct < 100 {
			select {
			case <-ctx.Done():
				e.resolveError(ctx, h, ctx.Err())
				return
			case <-time.After(mockTickDelay):
			}
		}
	}

	e.resolve(h, StateSucceeded, Outcome{Kind: OutcomeSuccess, Envelope: CannedEnvelope()})
}

func (e *Engine) emitProgress(h *Handle, percent int) {
	applied := h.session.setProgress(percent, h.fileIDs)
	_, perFile := h.session.Progress()

	if e.bus != nil {
		e.bus.Publish(&events.UploadProgressEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventUploadProgress, Time: time.Now()},
			SessionID: h.session.ID(),
			Overall:   applied,
			PerFile:   perFile,
		})
	}
}

// resolveError maps a transport failure to its terminal outcome:
// cancellation wins over everything, then server responses, then network.
func (e *Engine) resolveError(ctx context.Context, h *Handle, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		h.session.resetProgress(h.fileIDs)
		e.resolve(h, StateAborted, Outcome{Kind: OutcomeAborted, Message: "upload cancelled"})
		return
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		e.resolve(h, StateFailed, Outcome{
			Kind:       OutcomeServerError,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		})
		return
	}

	e.resolve(h, StateFailed, Outcome{Kind: OutcomeNetworkError, Message: err.Error()})
}

// resolve delivers the terminal outcome exactly once. A cancellation racing
// a completed transfer loses: whichever resolves first is the session's one
// terminal outcome, and the other becomes a no-op.
func (e *Engine) resolve(h *Handle, state State, outcome Outcome) {
	h.once.Do(func() {
		_ = h.session.Transition(state)
		h.outcome <- outcome

		if e.bus != nil {
			e.bus.Publish(&events.UploadOutcomeEvent{
				BaseEvent: events.BaseEvent{EventType: events.EventUploadOutcome, Time: time.Now()},
				SessionID: h.session.ID(),
				Kind:      string(outcome.Kind),
				Message:   outcome.Message,
			})
		}
	})
}
