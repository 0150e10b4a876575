package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/victorivanov/huddle/internal/auth"
)

const replayBufferSize = 100

// Manager tracks identified connections, one per user, and keeps a short
// per-user replay buffer so a client that drops can RESUME without losing
// pushes.
type Manager struct {
	mu          sync.RWMutex
	connections map[int64]*Connection  // userID → connection
	sessions    map[string]*Connection // sessionID → connection

	replayMu     sync.Mutex
	replayBuffer map[int64]*ringBuffer // userID → recent events

	tokens *auth.TokenService
}

func NewManager(tokens *auth.TokenService) *Manager {
	return &Manager{
		connections:  make(map[int64]*Connection),
		sessions:     make(map[string]*Connection),
		replayBuffer: make(map[int64]*ringBuffer),
		tokens:       tokens,
	}
}

// register adds a connection, displacing any older one for the same user.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.connections[c.UserID]; ok && old != c {
		old.SendPayload(GatewayPayload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID)
	}

	m.connections[c.UserID] = c
	m.sessions[c.SessionID] = c
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.UserID]; ok && existing == c {
		delete(m.connections, c.UserID)
	}
	delete(m.sessions, c.SessionID)
}

// DispatchToUser records the event in the user's replay buffer and sends it
// if the user is connected.
func (m *Manager) DispatchToUser(userID int64, event string, data any) {
	seq := m.storeReplayEvent(userID, Event{Name: event, Data: data})

	m.mu.RLock()
	c, ok := m.connections[userID]
	m.mu.RUnlock()

	if ok {
		c.SendEvent(event, data, seq)
	}
}

func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Error("invalid identify data", "error", err)
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(identify.Token)
	if err != nil {
		slog.Warn("invalid token in identify", "error", err)
		c.Close()
		return
	}

	c.UserID = claims.UserID
	c.SessionID = uuid.NewString()
	m.register(c)

	seq := m.lastSequence(c.UserID)
	c.SendEvent(EventReady, ReadyData{
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Sequence:  seq,
	}, seq)
}

func (m *Manager) handleResume(c *Connection, data json.RawMessage) {
	var resume ResumeData
	if err := json.Unmarshal(data, &resume); err != nil {
		slog.Error("invalid resume data", "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(resume.Token)
	if err != nil {
		slog.Warn("invalid token in resume", "error", err)
		c.Close()
		return
	}

	c.UserID = claims.UserID
	c.SessionID = resume.SessionID
	m.register(c)

	m.replayMu.Lock()
	var missed []sequencedEvent
	if rb, ok := m.replayBuffer[c.UserID]; ok {
		missed = rb.since(resume.Sequence)
	}
	m.replayMu.Unlock()

	for _, ev := range missed {
		c.SendEvent(ev.Name, ev.Data, ev.Sequence)
	}
}

// storeReplayEvent appends to the user's ring buffer and returns the event's sequence.
func (m *Manager) storeReplayEvent(userID int64, event Event) int64 {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()

	rb, ok := m.replayBuffer[userID]
	if !ok {
		rb = newRingBuffer(replayBufferSize)
		m.replayBuffer[userID] = rb
	}
	return rb.add(event)
}

func (m *Manager) lastSequence(userID int64) int64 {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()
	if rb, ok := m.replayBuffer[userID]; ok {
		return rb.seq
	}
	return 0
}

type sequencedEvent struct {
	Sequence int64
	Event
}

// ringBuffer is a fixed-size circular buffer of recent events.
type ringBuffer struct {
	events []sequencedEvent
	size   int
	pos    int
	seq    int64
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(event Event) int64 {
	rb.seq++
	rb.events[rb.pos] = sequencedEvent{Sequence: rb.seq, Event: event}
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
	return rb.seq
}

// since returns buffered events with sequence > afterSeq, oldest first.
func (rb *ringBuffer) since(afterSeq int64) []sequencedEvent {
	var result []sequencedEvent
	count := rb.size
	if !rb.full {
		count = rb.pos
	}

	start := 0
	if rb.full {
		start = rb.pos
	}

	for i := 0; i < count; i++ {
		idx := (start + i) % rb.size
		if rb.events[idx].Sequence > afterSeq {
			result = append(result, rb.events[idx])
		}
	}
	return result
}
