package bridge

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/display"
	"github.com/capoverlay/capsync/internal/session"
	"github.com/capoverlay/capsync/internal/timesync"
	"github.com/capoverlay/capsync/pkg/log"
)

// ControllerFactory builds a session controller around the capability
// ports of one attached playback surface.
type ControllerFactory func(probe timesync.SurfaceProbe, fetcher session.Fetcher, target display.RenderTarget) *session.Controller

// Bridge accepts websocket connections from page-side scripts, one per
// playback surface, and runs a dedicated session controller for each.
// Controller state lives and dies with its connection.
type Bridge struct {
	factory ControllerFactory

	mu          sync.Mutex
	controllers map[*session.Controller]struct{}
}

func NewBridge(factory ControllerFactory) *Bridge {
	return &Bridge{
		factory:     factory,
		controllers: make(map[*session.Controller]struct{}),
	}
}

// Handler returns the websocket upgrade endpoint.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The page-side script connects from arbitrary video hosts.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Warn("Websocket accept failed: %v", err)
			return
		}
		b.serve(r.Context(), conn)
	})
}

func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) {
	p := newPeer(conn)
	ctrl := b.factory(p, p, p)

	b.mu.Lock()
	b.controllers[ctrl] = struct{}{}
	b.mu.Unlock()

	log.Info("Playback surface attached")
	defer func() {
		b.mu.Lock()
		delete(b.controllers, ctrl)
		b.mu.Unlock()
		ctrl.Close()
		conn.Close(websocket.StatusNormalClosure, "surface detached")
		log.Info("Playback surface detached")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("Dropping undecodable surface message: %v", err)
			continue
		}
		b.dispatch(p, ctrl, msg)
	}
}

func (b *Bridge) dispatch(p *peer, ctrl *session.Controller, msg inboundMessage) {
	switch msg.Type {
	case "source":
		sessionID := p.currentSessionID(msg.SessionID)
		url := msg.URL
		// The fetch round-trips through this connection's read loop, so
		// ingestion must not run on it.
		go func() {
			if err := ctrl.HandleSourceDiscovered(sessionID, url); err != nil {
				log.Error("Failed to ingest caption source for session %s: %v", sessionID, err)
			}
		}()
	case "position":
		ctrl.HandleNativePosition(msg.Seconds)
	case "scrubber":
		duration := math.NaN()
		if msg.Duration != nil {
			duration = *msg.Duration
		}
		ctrl.HandleScrubber(msg.Value, msg.Max, duration)
	case "surface_changed":
		p.resetSession()
		ctrl.HandleSurfaceChanged()
	case "probe_result":
		p.resolveProbe(msg.RequestID, msg.Found)
	case "fetch_result":
		p.resolveFetch(msg.RequestID, fetchResult{body: msg.Body, err: msg.Error})
	default:
		log.Debug("Ignoring unknown surface message type %q", msg.Type)
	}
}

// ApplyRuntimeSettings fans a live settings change out to every attached
// controller.
func (b *Bridge) ApplyRuntimeSettings(next config.RuntimeSettings) error {
	b.mu.Lock()
	controllers := make([]*session.Controller, 0, len(b.controllers))
	for ctrl := range b.controllers {
		controllers = append(controllers, ctrl)
	}
	b.mu.Unlock()

	for _, ctrl := range controllers {
		if err := ctrl.ApplyRuntimeSettings(next); err != nil {
			return err
		}
	}
	return nil
}

// Statuses snapshots every attached controller for the control API.
func (b *Bridge) Statuses() []session.Status {
	b.mu.Lock()
	controllers := make([]*session.Controller, 0, len(b.controllers))
	for ctrl := range b.controllers {
		controllers = append(controllers, ctrl)
	}
	b.mu.Unlock()

	statuses := make([]session.Status, 0, len(controllers))
	for _, ctrl := range controllers {
		statuses = append(statuses, ctrl.Status())
	}
	return statuses
}

// Sweep evicts stale sessions across all attached controllers and
// returns the total evicted.
func (b *Bridge) Sweep() int {
	b.mu.Lock()
	controllers := make([]*session.Controller, 0, len(b.controllers))
	for ctrl := range b.controllers {
		controllers = append(controllers, ctrl)
	}
	b.mu.Unlock()

	total := 0
	for _, ctrl := range controllers {
		total += ctrl.Sweep()
	}
	return total
}
