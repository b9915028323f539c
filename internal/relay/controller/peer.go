package controller

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamhive/watchparty/pkg/wsrouter"
)

const writeWait = 10 * time.Second

// peer serializes writes to one websocket connection.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{conn: conn}
}

func (p *peer) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(wsrouter.Envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to write %s: %w", event, err)
	}

	return nil
}

func (p *peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn.Close()
}
