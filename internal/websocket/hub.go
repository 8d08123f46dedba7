package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub WebSocket 연결, 채널 멤버십, 전송 관리
type Hub struct {
	// 플레이어별 연결 (playerID -> *Client)
	clients map[string]*Client
	// 채널 멤버십 (channel -> playerID set). 연결이 없어도 유지된다
	channels map[string]map[string]struct{}
	mu       sync.RWMutex

	outbound chan *Message

	register   chan *Client
	unregister chan *Client

	dispatcher Dispatcher
	logger     *zap.Logger
	done       chan struct{}
}

// Message 서버 -> 클라이언트 메시지 (이벤트 또는 요청 응답)
type Message struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Payload interface{}   `json:"payload,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`

	playerID string
	channel  string
	// 응답은 요청을 보낸 연결에만
	client *Client
}

// ErrorPayload 응답 에러 (kind는 service.ErrorKind)
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Request 클라이언트 -> 서버 요청
type Request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher 인바운드 요청 처리. 요청마다 응답 하나
type Dispatcher interface {
	Dispatch(ctx context.Context, playerID, msgType string, payload json.RawMessage) (interface{}, error)
}

// MessageTypeReply 요청 응답 타입
const MessageTypeReply = "reply"

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]struct{}),
		outbound:   make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetDispatcher 서비스 연결 후 주입 (서비스가 Hub를 게이트웨이로 쓰므로 순환)
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatcher = d
}

func (h *Hub) currentDispatcher() Dispatcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatcher
}

// Run ctx가 끝날 때까지 Hub 실행
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.outbound:
			h.deliver(message)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 기존 연결이 있으면 닫기
	if oldClient, exists := h.clients[client.playerID]; exists {
		close(oldClient.send)
		h.logger.Info("Replaced existing WebSocket connection",
			zap.String("playerId", client.playerID))
	}

	h.clients[client.playerID] = client
	h.logger.Info("WebSocket client registered",
		zap.String("playerId", client.playerID),
		zap.Int("totalClients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 교체된 연결이면 이미 닫혀 있다
	if current, exists := h.clients[client.playerID]; exists && current == client {
		delete(h.clients, client.playerID)
		close(client.send)
		h.logger.Info("WebSocket client unregistered",
			zap.String("playerId", client.playerID),
			zap.Int("totalClients", len(h.clients)))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

func (h *Hub) deliver(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if message.client != nil {
		if h.clients[message.client.playerID] == message.client {
			h.sendLocked(message.client.playerID, message)
		}
		return
	}
	if message.channel == "" {
		h.sendLocked(message.playerID, message)
		return
	}
	for playerID := range h.channels[message.channel] {
		h.sendLocked(playerID, message)
	}
}

// sendLocked 연결이 없으면 버린다. mu 읽기 잠금 필요
func (h *Hub) sendLocked(playerID string, message *Message) {
	client, exists := h.clients[playerID]
	if !exists {
		return
	}
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("playerId", playerID),
			zap.String("type", message.Type))
	}
}

// JoinChannel 채널 가입
func (h *Hub) JoinChannel(playerID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		h.channels[channel] = members
	}
	members[playerID] = struct{}{}
}

// LeaveChannel 채널 탈퇴 (마지막 멤버가 나가면 채널 삭제)
func (h *Hub) LeaveChannel(playerID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, playerID)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// enqueue Run이 끝난 뒤에는 버린다
func (h *Hub) enqueue(message *Message) {
	select {
	case h.outbound <- message:
	case <-h.done:
	}
}

// BroadcastToChannel 채널 멤버 전원에게 전송
func (h *Hub) BroadcastToChannel(channel, msgType string, payload interface{}) {
	h.enqueue(&Message{Type: msgType, Payload: payload, channel: channel})
}

// SendToPlayer 특정 플레이어에게 전송
func (h *Hub) SendToPlayer(playerID, msgType string, payload interface{}) {
	h.enqueue(&Message{Type: msgType, Payload: payload, playerID: playerID})
}

// Members 채널 멤버 수
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Connected 로컬 연결 여부
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}
