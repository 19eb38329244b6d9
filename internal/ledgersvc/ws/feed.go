package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

type subscriber struct {
	conn *websocket.Conn
	game string // empty follows every game
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// offer queues data without blocking; false means the subscriber is gone or
// its buffer is full.
func (s *subscriber) offer(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Feed fans committed observations out to websocket subscribers. A
// subscriber that falls sendBuffer messages behind is dropped.
type Feed struct {
	connMap sync.Map // socketId -> *subscriber
}

func NewFeed() *Feed {
	return &Feed{}
}

// Serve registers conn and pumps observations to it until it closes.
func (f *Feed) Serve(socketId, game string, conn *websocket.Conn) {
	s := &subscriber{conn: conn, game: game, send: make(chan []byte, sendBuffer)}
	f.connMap.Store(socketId, s)
	log.Infof("observation feed subscriber connected: %s game=%q", socketId, game)

	go f.writeLoop(socketId, s)
	f.readLoop(socketId, s)
}

// readLoop only watches for the peer going away.
func (f *Feed) readLoop(socketId string, s *subscriber) {
	defer f.HandleDisconnect(socketId)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("observation feed %s closed unexpectedly: %v", socketId, err)
			}
			return
		}
	}
}

func (f *Feed) writeLoop(socketId string, s *subscriber) {
	defer s.conn.Close()
	for data := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Errorf("observation feed write to %s: %v", socketId, err)
			f.HandleDisconnect(socketId)
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (f *Feed) HandleDisconnect(socketId string) {
	v, ok := f.connMap.LoadAndDelete(socketId)
	if !ok {
		return
	}
	v.(*subscriber).stop()
	log.Infof("observation feed subscriber gone: %s", socketId)
}

// Record implements ledger.Recorder.
func (f *Feed) Record(_ context.Context, o ledger.Observation) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	f.connMap.Range(func(key, value interface{}) bool {
		s := value.(*subscriber)
		if s.game != "" && s.game != o.Game {
			return true
		}
		if !s.offer(data) {
			log.Warnf("observation feed %s is too slow, dropping", key)
			f.HandleDisconnect(key.(string))
		}
		return true
	})
	return nil
}

func (f *Feed) Count() int {
	n := 0
	f.connMap.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
