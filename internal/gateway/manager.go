package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ewittman/quad/internal/auth"
	"github.com/ewittman/quad/internal/database"
	"github.com/ewittman/quad/internal/metrics"
	"github.com/ewittman/quad/internal/models"
	"github.com/ewittman/quad/internal/redis"
)

const (
	replayBufferSize = 100
)

// Manager owns all active WebSocket connections and routes change events by
// topic. It also carries in-process subscriptions (Subscribe) so other parts
// of the process can observe the same event stream the clients see.
type Manager struct {
	mu            sync.RWMutex
	connections   map[int64]*Connection          // userID → connection
	subscriptions map[Topic]map[int64]bool       // topic → set of userIDs
	subscribers   map[Topic]map[*Subscription]bool
	sessions      map[string]*Connection // sessionID → connection

	// Per-topic dispatch locks: events for one topic are delivered in
	// dispatch order; topics never block each other.
	topicMu map[Topic]*sync.Mutex

	// Ring buffer per topic for session resume replay. Events across all
	// topics share one dispatch sequence: the `s` a client last saw is a
	// cursor valid against every buffer.
	dispatchSeq  atomic.Int64
	replayMu     sync.RWMutex
	replayBuffer map[Topic]*ringBuffer

	tokens      *auth.TokenService
	communities database.CommunityRepository
	channels    database.ChannelRepository
	dms         database.DMConversationRepository
	readCursors database.ReadCursorRepository
	redis       *redis.Client
}

// NewManager creates a gateway Manager.
func NewManager(
	tokens *auth.TokenService,
	communities database.CommunityRepository,
	channels database.ChannelRepository,
	dms database.DMConversationRepository,
	readCursors database.ReadCursorRepository,
	redisClient *redis.Client,
) *Manager {
	return &Manager{
		connections:   make(map[int64]*Connection),
		subscriptions: make(map[Topic]map[int64]bool),
		subscribers:   make(map[Topic]map[*Subscription]bool),
		sessions:      make(map[string]*Connection),
		topicMu:       make(map[Topic]*sync.Mutex),
		replayBuffer:  make(map[Topic]*ringBuffer),
		tokens:        tokens,
		communities:   communities,
		channels:      channels,
		dms:           dms,
		readCursors:   readCursors,
		redis:         redisClient,
	}
}

// Subscription is an in-process subscription to one topic. Cancel is
// idempotent and guarantees no delivery after it returns.
type Subscription struct {
	topic   Topic
	handler func(event string, change Change)
	manager *Manager

	mu       sync.Mutex
	canceled bool
}

// Cancel stops delivery and releases the subscription. Safe to call more
// than once and safe to call while an event is in flight: the handler is
// never invoked after Cancel returns.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()

	s.manager.mu.Lock()
	if subs, ok := s.manager.subscribers[s.topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.manager.subscribers, s.topic)
		}
	}
	s.manager.mu.Unlock()
}

// deliver invokes the handler unless the subscription is canceled. Holding
// s.mu across the call is what makes Cancel a hard barrier.
func (s *Subscription) deliver(event string, change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.handler(event, change)
}

// Subscribe registers an in-process handler for a topic's events.
func (m *Manager) Subscribe(topic Topic, handler func(event string, change Change)) *Subscription {
	sub := &Subscription{topic: topic, handler: handler, manager: m}

	m.mu.Lock()
	if m.subscribers[topic] == nil {
		m.subscribers[topic] = make(map[*Subscription]bool)
	}
	m.subscribers[topic][sub] = true
	m.mu.Unlock()

	return sub
}

// register adds a connection to the manager.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Disconnect existing connection for this user.
	if old, ok := m.connections[c.UserID]; ok {
		old.SendPayload(GatewayPayload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID)
	}

	m.connections[c.UserID] = c
	m.sessions[c.SessionID] = c
}

// unregister removes a connection from the manager and cleans up subscriptions.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.UserID]; ok && existing == c {
		delete(m.connections, c.UserID)

		for topic, members := range m.subscriptions {
			delete(members, c.UserID)
			if len(members) == 0 {
				delete(m.subscriptions, topic)
			}
		}

		// Clear presence with grace period.
		go m.clearPresenceWithGrace(c.UserID)
	}

	delete(m.sessions, c.SessionID)
}

// clearPresenceWithGrace waits before setting offline, allowing reconnection.
func (m *Manager) clearPresenceWithGrace(userID int64) {
	time.Sleep(10 * time.Second)

	m.mu.RLock()
	_, stillConnected := m.connections[userID]
	m.mu.RUnlock()

	if stillConnected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.redis.SetPresence(ctx, userID, "offline"); err != nil {
		slog.Error("failed to clear presence", "userID", userID, "error", err)
	}

	m.broadcastPresence(userID, "offline")
}

// SubscribeUser routes a topic's events to the user's connection.
func (m *Manager) SubscribeUser(userID int64, topic Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[topic] == nil {
		m.subscriptions[topic] = make(map[int64]bool)
	}
	m.subscriptions[topic][userID] = true
}

// UnsubscribeUser stops routing a topic's events to the user.
func (m *Manager) UnsubscribeUser(userID int64, topic Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.subscriptions[topic]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.subscriptions, topic)
		}
	}
}

// lockTopic returns the held dispatch lock for a topic.
func (m *Manager) lockTopic(topic Topic) *sync.Mutex {
	m.mu.Lock()
	l, ok := m.topicMu[topic]
	if !ok {
		l = &sync.Mutex{}
		m.topicMu[topic] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l
}

// DispatchToUser sends a dispatch event to a specific connected user.
func (m *Manager) DispatchToUser(userID int64, event string, change Change) {
	topic := UserTopic(userID)
	l := m.lockTopic(topic)
	defer l.Unlock()

	m.mu.RLock()
	c, ok := m.connections[userID]
	subs := make([]*Subscription, 0, len(m.subscribers[topic]))
	for sub := range m.subscribers[topic] {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	seq := m.dispatchSeq.Add(1)
	if ok {
		c.SendEvent(event, change, seq)
	}
	for _, sub := range subs {
		sub.deliver(event, change)
	}

	metrics.EventsDispatched.WithLabelValues(event).Inc()
	m.storeReplayEvent(topic, Event{Name: event, Change: change}, seq)
}

// Dispatch sends a dispatch event to all subscribers of a topic.
func (m *Manager) Dispatch(topic Topic, event string, change Change) {
	m.dispatch(topic, -1, event, change)
}

// DispatchExcept sends a dispatch event to all topic subscribers except one user.
func (m *Manager) DispatchExcept(topic Topic, exceptUserID int64, event string, change Change) {
	m.dispatch(topic, exceptUserID, event, change)
}

func (m *Manager) dispatch(topic Topic, exceptUserID int64, event string, change Change) {
	l := m.lockTopic(topic)
	defer l.Unlock()

	m.mu.RLock()
	members := m.subscriptions[topic]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if userID == exceptUserID {
			continue
		}
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	subs := make([]*Subscription, 0, len(m.subscribers[topic]))
	for sub := range m.subscribers[topic] {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	seq := m.dispatchSeq.Add(1)
	for _, c := range conns {
		c.SendEvent(event, change, seq)
	}
	for _, sub := range subs {
		sub.deliver(event, change)
	}

	metrics.EventsDispatched.WithLabelValues(event).Inc()
	m.storeReplayEvent(topic, Event{Name: event, Change: change}, seq)
}

// handleIdentify processes an IDENTIFY payload from a client.
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channelIDs, dmIDs, err := m.userTopics(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to resolve topics for user", "userID", c.UserID, "error", err)
		c.Close()
		return
	}

	m.register(c)

	m.SubscribeUser(c.UserID, UserTopic(c.UserID))
	for _, id := range channelIDs {
		m.SubscribeUser(c.UserID, ChannelTopic(id))
	}
	for _, id := range dmIDs {
		m.SubscribeUser(c.UserID, DMTopic(id))
	}

	// Set presence to online.
	if err := m.redis.SetPresence(ctx, c.UserID, "online"); err != nil {
		slog.Error("failed to set presence", "userID", c.UserID, "error", err)
	}

	// Fetch read cursors for READY payload.
	var cursors []models.ReadCursor
	if m.readCursors != nil {
		rc, err := m.readCursors.GetByUser(ctx, c.UserID)
		if err != nil {
			slog.Error("failed to get read cursors", "userID", c.UserID, "error", err)
		} else {
			cursors = rc
		}
	}

	// READY carries the current dispatch watermark: resuming from it replays
	// exactly the events dispatched after this point.
	c.SendEvent(EventReady, Inserted(ReadyData{
		SessionID:   c.SessionID,
		UserID:      c.UserID,
		Channels:    channelIDs,
		DMs:         dmIDs,
		ReadCursors: cursors,
	}), m.dispatchSeq.Load())

	m.broadcastPresence(c.UserID, "online")
}

// handleResume processes a RESUME payload to replay missed events. Replay is
// best-effort from a bounded buffer: events older than the buffer are gone
// and the client re-fetches to reconcile.
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channelIDs, dmIDs, err := m.userTopics(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to resolve topics on resume", "userID", c.UserID, "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	m.register(c)

	topics := make([]Topic, 0, len(channelIDs)+len(dmIDs)+1)
	topics = append(topics, UserTopic(c.UserID))
	for _, id := range channelIDs {
		topics = append(topics, ChannelTopic(id))
	}
	for _, id := range dmIDs {
		topics = append(topics, DMTopic(id))
	}

	for _, topic := range topics {
		m.SubscribeUser(c.UserID, topic)

		m.replayMu.RLock()
		rb, ok := m.replayBuffer[topic]
		m.replayMu.RUnlock()

		if ok {
			for _, ev := range rb.since(resume.Sequence) {
				c.SendEvent(ev.Name, ev.Change, ev.Sequence)
			}
		}
	}
}

// userTopics resolves the channel and DM conversations a user belongs to.
func (m *Manager) userTopics(ctx context.Context, userID int64) (channelIDs, dmIDs []int64, err error) {
	communities, err := m.communities.GetByMember(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, community := range communities {
		chs, err := m.channels.GetByCommunityID(ctx, community.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, ch := range chs {
			channelIDs = append(channelIDs, ch.ID)
		}
	}

	dms, err := m.dms.GetByParticipant(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, dm := range dms {
		dmIDs = append(dmIDs, dm.ID)
	}
	return channelIDs, dmIDs, nil
}

// handlePresenceUpdate processes a client presence update.
func (m *Manager) handlePresenceUpdate(c *Connection, data json.RawMessage) {
	var update ClientPresenceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}

	switch update.Status {
	case "online", "idle", "dnd", "invisible":
		// valid
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := update.Status
	if status == "invisible" {
		status = "offline"
	}
	if err := m.redis.SetPresence(ctx, c.UserID, status); err != nil {
		slog.Error("failed to update presence", "userID", c.UserID, "error", err)
		return
	}

	m.broadcastPresence(c.UserID, status)
}

// broadcastPresence sends a PRESENCE_UPDATE to every conversation topic the
// user is subscribed to.
func (m *Manager) broadcastPresence(userID int64, status string) {
	change := Updated(nil, PresenceData{UserID: userID, Status: status})

	m.mu.RLock()
	var topics []Topic
	for topic, members := range m.subscriptions {
		if topic.Kind == TopicUser {
			continue
		}
		if members[userID] {
			topics = append(topics, topic)
		}
	}
	m.mu.RUnlock()

	for _, topic := range topics {
		m.Dispatch(topic, EventPresenceUpdate, change)
	}
}

// storeReplayEvent adds an event to the topic's replay ring buffer under the
// manager-wide dispatch sequence number it was sent with.
func (m *Manager) storeReplayEvent(topic Topic, event Event, seq int64) {
	m.replayMu.Lock()
	rb, ok := m.replayBuffer[topic]
	if !ok {
		rb = newRingBuffer(replayBufferSize)
		m.replayBuffer[topic] = rb
	}
	m.replayMu.Unlock()

	rb.add(event, seq)
}

// sequencedEvent pairs an event with its dispatch sequence for replay.
type sequencedEvent struct {
	Sequence int64
	Event
}

// ringBuffer is a fixed-size circular buffer for replay events. It carries
// its own lock: writers run under dispatch while readers run on resume, and
// the two must not interleave.
type ringBuffer struct {
	mu     sync.Mutex
	events []sequencedEvent
	size   int
	pos    int
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(event Event, seq int64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.events[rb.pos] = sequencedEvent{Sequence: seq, Event: event}
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns all events with sequence > afterSeq, oldest first.
func (rb *ringBuffer) since(afterSeq int64) []sequencedEvent {
	rb.mu.Lock()
	defer rb.mu.Unlock()

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
