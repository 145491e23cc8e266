package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const messageTypeTelemetry = "telemetry"

// bridgeMessage is the envelope the shared-memory bridge wraps every frame
// in: a type discriminator plus an arbitrary body.
type bridgeMessage struct {
	MessageType string          `json:"type"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// BridgeSource reads telemetry frames from the game's websocket bridge.
// A background pump keeps the most recent frame; Poll serves that frame as
// long as it is fresh. The pump reconnects with backoff on any read error,
// so a game restart shows up as a transient gap rather than a dead source.
type BridgeSource struct {
	url       string
	freshness time.Duration

	mu     sync.Mutex
	latest *Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}

func NewBridgeSource(url string, freshness time.Duration) *BridgeSource {
	return &BridgeSource{
		url:       url,
		freshness: freshness,
		done:      make(chan struct{}),
	}
}

// Start launches the read pump. Call Close to stop it.
func (b *BridgeSource) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	go b.pump(ctx)
}

func (b *BridgeSource) Close() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
}

func (b *BridgeSource) pump(ctx context.Context) {
	defer close(b.done)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err != nil {
			log.Printf("bridge dial %s: %v (retrying in %v)", b.url, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 10*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		log.Printf("bridge connected: %s", b.url)

		b.readLoop(ctx, conn)
		conn.Close()
	}
}

func (b *BridgeSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("bridge read: %v", err)
			}
			return
		}

		var msg bridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("bridge: malformed message: %v", err)
			continue
		}
		if msg.MessageType != messageTypeTelemetry {
			continue
		}

		snap := &Snapshot{}
		if err := json.Unmarshal(msg.Body, snap); err != nil {
			log.Printf("bridge: malformed telemetry body: %v", err)
			continue
		}
		snap.CapturedAt = time.Now()

		b.mu.Lock()
		b.latest = snap
		b.mu.Unlock()
	}
}

// Poll returns the most recent frame if it is younger than the freshness
// window, otherwise ErrUnavailable. The caller's deadline is honoured but
// Poll never waits for a new frame; the pump fills in the background.
func (b *BridgeSource) Poll(ctx context.Context) (*Snapshot, error) {
	if ctx.Err() != nil {
		return nil, errors.Wrap(ErrUnavailable, "poll context done")
	}

	b.mu.Lock()
	snap := b.latest
	b.mu.Unlock()

	if snap == nil {
		return nil, ErrUnavailable
	}
	if b.freshness > 0 && time.Since(snap.CapturedAt) > b.freshness {
		return nil, errors.Wrapf(ErrUnavailable, "frame is %v old", time.Since(snap.CapturedAt).Round(time.Millisecond))
	}
	return snap, nil
}
