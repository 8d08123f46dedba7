package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/pkg/distributed"
	"go.uber.org/zap"
)

const relayPublishTimeout = 2 * time.Second

// RelayGateway 게이트웨이 호출을 Redis로 발행하고, 수신한 이벤트를 로컬 Hub에 적용.
// 상대 플레이어가 다른 인스턴스에 연결돼 있어도 이벤트가 전달된다.
type RelayGateway struct {
	hub    *Hub
	relay  *distributed.EventRelay
	logger *zap.Logger
}

func NewRelayGateway(hub *Hub, relay *distributed.EventRelay, logger *zap.Logger) *RelayGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayGateway{hub: hub, relay: relay, logger: logger}
}

// Run 구독 루프 (ctx 종료까지 블록)
func (g *RelayGateway) Run(ctx context.Context) error {
	return g.relay.Run(ctx, g.Apply)
}

// Apply 수신 이벤트를 로컬 Hub에 반영
func (g *RelayGateway) Apply(event distributed.RelayEvent) {
	switch event.Kind {
	case distributed.RelayJoinChannel:
		g.hub.JoinChannel(event.PlayerID, event.Channel)
	case distributed.RelayLeaveChannel:
		g.hub.LeaveChannel(event.PlayerID, event.Channel)
	case distributed.RelayToChannel:
		g.hub.BroadcastToChannel(event.Channel, event.Type, event.Payload)
	case distributed.RelayToPlayer:
		g.hub.SendToPlayer(event.PlayerID, event.Type, event.Payload)
	default:
		g.logger.Warn("Unknown relay event kind", zap.String("kind", event.Kind))
	}
}

func (g *RelayGateway) JoinChannel(playerID, channel string) {
	g.publish(distributed.RelayEvent{Kind: distributed.RelayJoinChannel, PlayerID: playerID, Channel: channel})
}

func (g *RelayGateway) LeaveChannel(playerID, channel string) {
	g.publish(distributed.RelayEvent{Kind: distributed.RelayLeaveChannel, PlayerID: playerID, Channel: channel})
}

func (g *RelayGateway) BroadcastToChannel(channel, msgType string, payload interface{}) {
	g.publishPayload(distributed.RelayEvent{Kind: distributed.RelayToChannel, Channel: channel, Type: msgType}, payload)
}

func (g *RelayGateway) SendToPlayer(playerID, msgType string, payload interface{}) {
	g.publishPayload(distributed.RelayEvent{Kind: distributed.RelayToPlayer, PlayerID: playerID, Type: msgType}, payload)
}

func (g *RelayGateway) publishPayload(event distributed.RelayEvent, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("Failed to marshal gateway payload",
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}
	event.Payload = data
	g.publish(event)
}

// publish 발행 실패 시 로컬에만 적용
func (g *RelayGateway) publish(event distributed.RelayEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()

	if err := g.relay.Publish(ctx, event); err != nil {
		g.logger.Warn("Relay publish failed, delivering locally",
			zap.String("kind", event.Kind),
			zap.Error(err))
		g.Apply(event)
	}
}
