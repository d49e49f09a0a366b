package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/capoverlay/capsync/internal/display"
)

const (
	probeTimeout = 5 * time.Second
	fetchTimeout = 20 * time.Second
	writeTimeout = 5 * time.Second
)

type fetchResult struct {
	body string
	err  string
}

// peer wraps one websocket connection to a page-side script. It
// implements the playback-surface capability ports the pipeline needs:
// scrubber probing, caption fetching and the render target. Replies to
// outstanding requests are routed back by request id from the read loop.
type peer struct {
	conn *websocket.Conn

	mu        sync.Mutex
	sessionID string
	probes    map[string]chan bool
	fetches   map[string]chan fetchResult
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{
		conn:    conn,
		probes:  make(map[string]chan bool),
		fetches: make(map[string]chan fetchResult),
	}
}

// currentSessionID returns the announced session id, minting one when
// the surface never supplied any.
func (p *peer) currentSessionID(announced string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if announced != "" {
		p.sessionID = announced
		return announced
	}
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	return p.sessionID
}

// resetSession forgets the minted session id so the next announcement
// starts a fresh session.
func (p *peer) resetSession() {
	p.mu.Lock()
	p.sessionID = ""
	p.mu.Unlock()
}

func (p *peer) write(msg outboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return p.conn.Write(ctx, websocket.MessageText, data)
}

// ProbeScrubber asks the surface whether a scrubber-like control exists.
func (p *peer) ProbeScrubber(ctx context.Context) (bool, error) {
	id := uuid.NewString()
	ch := make(chan bool, 1)

	p.mu.Lock()
	p.probes[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.probes, id)
		p.mu.Unlock()
	}()

	if err := p.write(outboundMessage{Type: "probe_scrubber", RequestID: id}); err != nil {
		return false, err
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(probeTimeout):
		return false, fmt.Errorf("scrubber probe timed out")
	case found := <-ch:
		return found, nil
	}
}

// FetchCaptions asks the page to fetch the caption source URL. The fetch
// happens on the page side so host cookies and CORS rules apply there.
func (p *peer) FetchCaptions(ctx context.Context, url string) (string, error) {
	id := uuid.NewString()
	ch := make(chan fetchResult, 1)

	p.mu.Lock()
	p.fetches[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.fetches, id)
		p.mu.Unlock()
	}()

	if err := p.write(outboundMessage{Type: "fetch", RequestID: id, URL: url}); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(fetchTimeout):
		return "", fmt.Errorf("caption fetch timed out")
	case res := <-ch:
		if res.err != "" {
			return "", fmt.Errorf("caption fetch failed: %s", res.err)
		}
		return res.body, nil
	}
}

// SetText writes caption text into a named overlay slot on the page.
func (p *peer) SetText(slot display.Slot, text string) error {
	return p.write(outboundMessage{Type: "render", Slot: string(slot), Text: text})
}

// resolveProbe routes a probe reply to its waiter, if still registered.
func (p *peer) resolveProbe(requestID string, found bool) {
	p.mu.Lock()
	ch, ok := p.probes[requestID]
	p.mu.Unlock()
	if ok {
		select {
		case ch <- found:
		default:
		}
	}
}

// resolveFetch routes a fetch reply to its waiter, if still registered.
func (p *peer) resolveFetch(requestID string, res fetchResult) {
	p.mu.Lock()
	ch, ok := p.fetches[requestID]
	p.mu.Unlock()
	if ok {
		select {
		case ch <- res:
		default:
		}
	}
}
