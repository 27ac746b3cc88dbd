package fridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Stage labels set by the Generator itself. Stages reported by the server
// replace them as they arrive.
const (
	stageConnecting = "連線中"
	stageFinalizing = "整理食譜中"
	stageCompleted  = "完成"
	stageNoRecipes  = "沒有產生可用的食譜"
)

// Generator is the stream state machine. It owns exactly one State and runs
// at most one generation at a time: Start while a generation is active
// cancels it first.
//
// Events from the transport are applied strictly in arrival order by a
// single goroutine per generation. Every generation carries a token; once
// Cancel, Reset or a new Start bumps the token, the old goroutine can no
// longer mutate State even if its transport keeps delivering events.
type Generator struct {
	transport Transport
	validator Validator
	finalizer *Finalizer
	logger    *slog.Logger
	observers []func(State)

	mu     sync.Mutex
	state  State
	token  uint64
	cancel context.CancelFunc
	stream Stream
	done   chan struct{}
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithFinalizer sets the finalizer invoked on the done event.
func WithFinalizer(f *Finalizer) GeneratorOption {
	return func(g *Generator) { g.finalizer = f }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithObserver registers a callback receiving a snapshot after every state
// change. Observers run on the goroutine that caused the change and must not
// block.
func WithObserver(fn func(State)) GeneratorOption {
	return func(g *Generator) { g.observers = append(g.observers, fn) }
}

// NewGenerator creates an idle [Generator].
func NewGenerator(transport Transport, validator Validator, opts ...GeneratorOption) *Generator {
	g := &Generator{
		transport: transport,
		validator: validator,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(g)
	}
	if g.finalizer == nil {
		g.finalizer = NewFinalizer(WithFinalizerLogger(g.logger))
	}
	return g
}

// State returns a snapshot of the current state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

// Start validates the request and begins a new generation in the
// background. A rejected prompt returns a *PromptError, sends nothing and
// leaves the current state untouched. An empty prompt is replaced with
// DefaultPrompt when ingredients were supplied.
func (g *Generator) Start(ctx context.Context, req Request) error {
	req, err := g.prepare(req)
	if err != nil {
		return err
	}

	g.mu.Lock()
	stale := g.abortLocked()
	token := g.token
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	done := make(chan struct{})
	g.done = done
	g.state = State{Phase: PhaseConnecting, Stage: stageConnecting}
	snap := g.state.Clone()
	g.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
	g.logger.Debug("generation started", "group_id", req.GroupID, "ingredients", len(req.Ingredients))
	g.publish(snap)

	go g.run(runCtx, token, req, done)
	return nil
}

// Wait blocks until the current generation stops running, then returns the
// resulting state.
func (g *Generator) Wait(ctx context.Context) (State, error) {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done == nil {
		return g.State(), ErrNotStarted
	}
	select {
	case <-done:
		return g.State(), nil
	case <-ctx.Done():
		return g.State(), ctx.Err()
	}
}

// Generate starts a generation and waits for it to settle or be cancelled.
func (g *Generator) Generate(ctx context.Context, req Request) (State, error) {
	if err := g.Start(ctx, req); err != nil {
		return g.State(), err
	}
	return g.Wait(ctx)
}

// Cancel aborts the active generation and returns to PhaseIdle. The partial
// text stays visible until Reset or the next Start. Calling Cancel with no
// active generation does nothing.
func (g *Generator) Cancel() {
	g.mu.Lock()
	wasActive := g.state.Phase.Active()
	stream := g.abortLocked()
	if wasActive {
		g.state.Phase = PhaseIdle
	}
	snap := g.state.Clone()
	g.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if wasActive {
		g.logger.Debug("generation cancelled")
		g.publish(snap)
	}
}

// Reset cancels any active generation and discards the state. Observers are
// notified only when there was something to discard.
func (g *Generator) Reset() {
	g.mu.Lock()
	stream := g.abortLocked()
	changed := !g.state.IsZero()
	g.state = State{}
	g.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if changed {
		g.publish(State{})
	}
}

// abortLocked invalidates the current token and cancels its context. It
// returns the open stream, which the caller closes after unlocking.
func (g *Generator) abortLocked() Stream {
	g.token++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	s := g.stream
	g.stream = nil
	return s
}

func (g *Generator) prepare(req Request) (Request, error) {
	ingredients := g.validator.CleanIngredients(req.Ingredients)
	verdict := g.validator.ValidatePrompt(req.Prompt)
	prompt := verdict.Sanitized
	if !verdict.Valid {
		if verdict.Reason != PromptEmpty || len(ingredients) == 0 {
			g.logger.Info("prompt rejected", "reason", verdict.Reason)
			return Request{}, &PromptError{Reason: verdict.Reason}
		}
		prompt = DefaultPrompt
	}
	req.Prompt = prompt
	req.Ingredients = ingredients
	return req, nil
}

// run consumes one generation's stream until it settles, is cancelled, or
// the connection ends. Events read after ctx is done are dropped; release
// then returns the generation to PhaseIdle.
func (g *Generator) run(ctx context.Context, token uint64, req Request, done chan struct{}) {
	defer close(done)
	defer g.release(token)

	stream, err := g.transport.Open(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			g.apply(ctx, token, req, EventError{Code: CodeNetwork, Message: err.Error()})
		}
		return
	}
	defer stream.Close()
	if !g.attach(token, stream) {
		return
	}
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	for {
		evt, err := stream.Next()
		if ctx.Err() != nil {
			return
		}
		switch {
		case err == nil:
			if g.apply(ctx, token, req, evt) {
				return
			}
		case errors.Is(err, io.EOF):
			g.apply(ctx, token, req, EventError{Code: CodeStreamInterrupted})
			return
		case errors.Is(err, ErrStreamClosed):
			return
		default:
			g.apply(ctx, token, req, EventError{Code: CodeNetwork, Message: err.Error()})
			return
		}
	}
}

// attach records the open stream so Cancel can close it.
func (g *Generator) attach(token uint64, s Stream) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.token {
		return false
	}
	g.stream = s
	return true
}

// release drops the per-generation resources once its goroutine exits. A
// generation still current and active at that point was stopped by its
// context, so it ends in PhaseIdle the way Cancel leaves it.
func (g *Generator) release(token uint64) {
	g.mu.Lock()
	if token != g.token {
		g.mu.Unlock()
		return
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.stream = nil
	stopped := g.state.Phase.Active()
	if stopped {
		g.state.Phase = PhaseIdle
	}
	snap := g.state.Clone()
	g.mu.Unlock()

	if stopped {
		g.logger.Debug("generation stopped by context")
		g.publish(snap)
	}
}

// apply advances the state machine by one event. It returns true when the
// consumer should stop reading: the generation settled or went stale.
func (g *Generator) apply(ctx context.Context, token uint64, req Request, evt Event) bool {
	if done, ok := evt.(EventDone); ok {
		g.finalize(ctx, token, req, done)
		return true
	}

	g.mu.Lock()
	if token != g.token || !g.state.Phase.Active() {
		g.mu.Unlock()
		return true
	}
	changed, terminal := g.applyLocked(evt)
	snap := g.state.Clone()
	g.mu.Unlock()

	if changed {
		g.publish(snap)
	}
	return terminal
}

func (g *Generator) applyLocked(evt Event) (changed, terminal bool) {
	s := &g.state
	switch e := evt.(type) {
	case EventStart:
		if s.Phase != PhaseConnecting {
			g.logger.Debug("ignoring repeated start event", "phase", s.Phase)
			return false, false
		}
		s.Phase = PhaseStreaming
		s.Fragments = nil
		s.Progress = 0
		s.Stage = ""
		return true, false

	case EventChunk:
		g.promoteLocked()
		if !e.Narrative() {
			return false, false
		}
		text := g.validator.SanitizeText(e.Text)
		if text == "" {
			return false, false
		}
		s.Fragments = append(s.Fragments, text)
		return true, false

	case EventProgress:
		g.promoteLocked()
		pct := clampPercent(e.Percent)
		if pct < s.Progress {
			g.logger.Warn("progress went backwards", "from", s.Progress, "to", pct)
		}
		s.Progress = pct
		if stage := g.validator.SanitizeText(e.Stage); stage != "" {
			s.Stage = stage
		}
		return true, false

	case EventError:
		s.Phase = PhaseFailed
		s.ErrorCode = e.Code
		s.ErrorMessage = ErrorMessage(e.Code, e.Message)
		s.Recipes = nil
		if e.RemainingQueries != nil {
			q := *e.RemainingQueries
			s.RemainingQuota = &q
		}
		g.logger.Info("generation failed", "code", e.Code, "message", e.Message)
		return true, true

	default:
		return false, false
	}
}

// promoteLocked moves a generation whose server skipped the start event
// into PhaseStreaming.
func (g *Generator) promoteLocked() {
	if g.state.Phase == PhaseConnecting {
		g.state.Phase = PhaseStreaming
	}
}

// finalize validates the done payload, runs the Finalizer outside the lock,
// and settles the generation if it is still current.
func (g *Generator) finalize(ctx context.Context, token uint64, req Request, done EventDone) {
	g.mu.Lock()
	if token != g.token || !g.state.Phase.Active() {
		g.mu.Unlock()
		return
	}
	g.state.Phase = PhaseFinalizing
	g.state.Stage = stageFinalizing
	snap := g.state.Clone()
	g.mu.Unlock()
	g.publish(snap)

	recipes := g.validator.ValidateRecipes(done.Recipes)
	if dropped := len(done.Recipes) - len(recipes); dropped > 0 {
		g.logger.Info("dropped invalid recipes", "received", len(done.Recipes), "dropped", dropped)
	}
	final, report := g.finalizer.Finalize(ctx, recipes, FinalizeContext{
		Prompt:  req.Prompt,
		GroupID: req.GroupID,
		UserID:  req.UserID,
	})

	g.mu.Lock()
	if token != g.token || g.state.Phase != PhaseFinalizing {
		g.mu.Unlock()
		return
	}
	s := &g.state
	s.Phase = PhaseCompleted
	s.Recipes = final
	s.Report = report
	s.Progress = 100
	s.Stage = stageCompleted
	if len(final) == 0 && len(s.Fragments) == 0 {
		s.Stage = stageNoRecipes
	}
	if done.RemainingQueries != nil {
		q := *done.RemainingQueries
		s.RemainingQuota = &q
	}
	snap = s.Clone()
	g.mu.Unlock()

	g.logger.Debug("generation completed", "recipes", len(final), "saved", report.Saved, "failed", report.Failed)
	g.publish(snap)
}

func (g *Generator) publish(s State) {
	for _, fn := range g.observers {
		fn(s)
	}
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
