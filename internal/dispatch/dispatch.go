// Package dispatch implements the agent's receive loop: it decodes one
// frame at a time, routes the payload to a registered handler running on
// its own goroutine, and serializes every response write through a single
// writer goroutine so frames never interleave.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/framing"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/transport"
)

// Handler processes one decoded request and returns the payload to send
// back. A nil return means "no response": the dispatcher sends nothing
// for that request.
type Handler func(ctx context.Context, req protocol.Message) protocol.Payload

// Dispatcher owns the receive loop, the handler registry, and the single
// writer goroutine.
type Dispatcher struct {
	conn transport.Duplex
	log  *logrus.Entry

	handlersMu sync.RWMutex
	handlers   map[protocol.Kind]Handler

	writeCh chan protocol.Message

	wg       sync.WaitGroup
	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc

	// ShutdownGrace bounds how long in-flight handlers are given to finish
	// once Shutdown is called.
	ShutdownGrace time.Duration
}

// New constructs a Dispatcher bound to conn. Call Register for each
// payload kind the agent supports before Run.
func New(conn transport.Duplex, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		conn:          conn,
		log:           log.WithField("subsystem", "dispatch"),
		handlers:      make(map[protocol.Kind]Handler),
		writeCh:       make(chan protocol.Message, 32),
		cancels:       make(map[string]context.CancelFunc),
		ShutdownGrace: 15 * time.Second,
	}
}

// Register binds a Handler to a payload kind.
func (d *Dispatcher) Register(kind protocol.Kind, h Handler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[kind] = h
}

func (d *Dispatcher) handlerFor(kind protocol.Kind) (Handler, bool) {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()
	h, ok := d.handlers[kind]
	return h, ok
}

// Run drives the receive loop until ctx is cancelled or the transport
// closes. It starts the writer goroutine internally and blocks until both
// the reader and the writer have stopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		d.runWriter(ctx)
	}()

	err := d.runReader(ctx)

	cancel() // transport loss or shutdown cancels every in-flight handler
	d.wg.Wait()
	<-writerDone

	return err
}

func (d *Dispatcher) runReader(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := framing.ReadFrame(d.conn)
		if err != nil {
			if err == framing.ErrStreamClosed {
				d.log.Info("transport closed, stopping receive loop")
				return nil
			}
			d.log.WithError(err).Warn("frame read failed, stopping receive loop")
			return err
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			d.log.WithError(err).Warn("dropping undecodable frame")
			continue
		}

		d.dispatch(ctx, msg)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg protocol.Message) {
	if msg.Payload == nil {
		d.log.Warn("dropping message with no payload")
		return
	}

	handler, ok := d.handlerFor(msg.Payload.Kind())
	if !ok {
		d.log.WithField("message_id", msg.MessageID).Warn("dropping unroutable payload variant")
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	d.cancelMu.Lock()
	d.cancels[msg.MessageID] = cancel
	d.cancelMu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.cancelMu.Lock()
			delete(d.cancels, msg.MessageID)
			d.cancelMu.Unlock()
			cancel()
		}()

		resp := handler(reqCtx, msg)
		if resp == nil {
			return
		}

		select {
		case d.writeCh <- protocol.Reply(msg, resp):
		case <-ctx.Done():
		}
	}()
}

// runWriter is the single task responsible for all response frame writes,
// guaranteeing frames never interleave.
func (d *Dispatcher) runWriter(ctx context.Context) {
	for {
		select {
		case msg := <-d.writeCh:
			if err := framing.WriteFrame(d.conn, msg.Encode()); err != nil {
				d.log.WithError(err).Error("failed to write response frame")
			}
		case <-ctx.Done():
			// Drain anything already queued before the context was
			// cancelled so a response racing shutdown is not lost.
			for {
				select {
				case msg := <-d.writeCh:
					_ = framing.WriteFrame(d.conn, msg.Encode())
				default:
					return
				}
			}
		}
	}
}

// EmitEvent sends an unsolicited agent-originated message (Telemetry,
// AgentReady, ClipboardChanged, Error) through the same serialized writer
// used for responses.
func (d *Dispatcher) EmitEvent(ctx context.Context, payload protocol.Payload) error {
	msg := protocol.NewMessage(payload)
	select {
	case d.writeCh <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: emit event: %w", ctx.Err())
	}
}

// Shutdown cancels every in-flight handler's context after waiting up to
// ShutdownGrace for them to finish on their own.
func (d *Dispatcher) Shutdown() {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.ShutdownGrace):
		d.log.Warn("shutdown grace period elapsed, force-cancelling in-flight handlers")
		d.cancelMu.Lock()
		for _, cancel := range d.cancels {
			cancel()
		}
		d.cancelMu.Unlock()
	}
}
