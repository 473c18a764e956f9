package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
)

// ErrUnknownHandler is reported when an envelope names no registered handler
var ErrUnknownHandler = errors.New("unknown handler")

// HandlerFunc applies a decoded command for a player inside the current tick
type HandlerFunc func(player core.PlayerID, cmd Command) error

// Outbox accepts locally issued envelopes for ordered delivery to every replica
type Outbox interface {
	Submit(env Envelope)
}

// Option configures handler registration.
type Option func(*handlerConfig)

type handlerConfig struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *handlerConfig) {
		c.logged = true
	}
}

// Dispatcher turns local commands into envelopes and routes delivered
// envelopes to the select/move handlers.
type Dispatcher struct {
	handlers map[HandlerID]HandlerFunc
	session  *core.Session
	outbox   Outbox
	log      *zap.SugaredLogger

	sent    metric.Int64Counter
	applied metric.Int64Counter
	dropped metric.Int64Counter
}

// NewDispatcher creates a dispatcher issuing commands as the session's local
// player. Uses the global OTel meter for metrics (no-op if not configured).
func NewDispatcher(session *core.Session, outbox Outbox, log *zap.SugaredLogger) (*Dispatcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	d := &Dispatcher{
		handlers: make(map[HandlerID]HandlerFunc),
		session:  session,
		outbox:   outbox,
		log:      log,
	}

	m := meter()
	var err error
	d.sent, err = m.Int64Counter("dispatch.commands.sent",
		metric.WithDescription("Local commands handed to the outbox"))
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	d.applied, err = m.Int64Counter("dispatch.commands.applied",
		metric.WithDescription("Delivered commands applied by a handler"))
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}
	d.dropped, err = m.Int64Counter("dispatch.commands.dropped",
		metric.WithDescription("Delivered commands dropped without effect"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return d, nil
}

// Register adds a handler for the given id with optional configuration.
func (d *Dispatcher) Register(id HandlerID, h HandlerFunc, opts ...Option) {
	cfg := &handlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logged {
		h = d.withLogging(id, h)
	}
	d.handlers[id] = h
}

// HasHandler returns true if a handler is registered for the id.
func (d *Dispatcher) HasHandler(id HandlerID) bool {
	_, ok := d.handlers[id]
	return ok
}

// Emit encodes a locally produced command and submits it for delivery. It
// never applies the command directly; the local replica applies it when the
// envelope comes back through Deliver.
func (d *Dispatcher) Emit(c Command) {
	if d.session == nil || d.outbox == nil {
		d.log.Warnw("emit on a receive-only dispatcher", "command", c)
		return
	}
	payload, err := Encode(c)
	if err != nil {
		d.log.Errorw("dropping unencodable command", "error", err)
		return
	}
	env := Envelope{
		PlayerID: d.session.LocalPlayer(),
		Handler:  HandlerFor(c),
		Payload:  payload,
	}
	d.outbox.Submit(env)
	d.sent.Add(context.Background(), 1, metric.WithAttributes(handlerAttr(env.Handler)))
}

// Deliver decodes an envelope and runs its handler synchronously. Malformed
// payloads, unknown handlers and handler errors are logged and dropped;
// the return value reports whether the command was applied.
func (d *Dispatcher) Deliver(env Envelope) bool {
	if err := d.deliver(env); err != nil {
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(handlerAttr(env.Handler)))
		if errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrUnknownHandler) {
			d.log.Warnw("dropping command", "tick", env.Tick, "player", env.PlayerID, "handler", env.Handler, "error", err)
		} else {
			d.log.Debugw("command dropped", "tick", env.Tick, "player", env.PlayerID, "handler", env.Handler, "error", err)
		}
		return false
	}
	d.applied.Add(context.Background(), 1, metric.WithAttributes(handlerAttr(env.Handler)))
	return true
}

func (d *Dispatcher) deliver(env Envelope) error {
	h, ok := d.handlers[env.Handler]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandler, env.Handler)
	}
	cmd, err := Decode(env.Payload)
	if err != nil {
		return err
	}
	if HandlerFor(cmd) != env.Handler {
		return fmt.Errorf("%w: %T sent to %s", ErrMalformedPayload, cmd, env.Handler)
	}
	return h(env.PlayerID, cmd)
}

func (d *Dispatcher) withLogging(id HandlerID, h HandlerFunc) HandlerFunc {
	return func(player core.PlayerID, cmd Command) error {
		start := time.Now()
		d.log.Debugw("handling command", "handler", id, "player", player, "command", cmd)

		err := h(player, cmd)

		if err != nil {
			d.log.Debugw("command failed", "handler", id, "duration", time.Since(start), "error", err)
		} else {
			d.log.Debugw("command complete", "handler", id, "duration", time.Since(start))
		}
		return err
	}
}

func handlerAttr(id HandlerID) attribute.KeyValue {
	return attribute.String("handler", id.String())
}
