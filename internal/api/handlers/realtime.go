package handlers

import (
	"context"
	"encoding/json"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
)

// 인바운드 WebSocket 요청 타입
const (
	MsgJoinQueue  = "join_queue"
	MsgLeaveQueue = "leave_queue"
	MsgAction     = "action"
	MsgSurrender  = "surrender"
	MsgState      = "state"
)

var errUnknownMessage = &service.Error{Kind: service.KindInvalid, Message: "unknown message type"}

type QueueOperations interface {
	Join(ctx context.Context, playerID string) (*models.JoinResult, error)
	Leave(ctx context.Context, playerID string) error
}

type BattleOperations interface {
	SubmitAction(ctx context.Context, matchID, playerID string, action service.Action) (*service.TurnResult, error)
	Surrender(ctx context.Context, matchID, playerID string) (*models.BattleView, error)
	GetState(ctx context.Context, matchID, playerID string) (*models.BattleView, error)
	ActiveMatch(ctx context.Context, playerID string) (string, error)
}

// RealtimeDispatcher WebSocket 요청을 서비스 호출로 변환
type RealtimeDispatcher struct {
	queue   QueueOperations
	battles BattleOperations
}

func NewRealtimeDispatcher(queue QueueOperations, battles BattleOperations) *RealtimeDispatcher {
	return &RealtimeDispatcher{queue: queue, battles: battles}
}

type matchPayload struct {
	MatchID string `json:"matchId"`
}

type actionPayload struct {
	MatchID string `json:"matchId"`
	Type    string `json:"type"`
	SkillID string `json:"skillId"`
}

func (d *RealtimeDispatcher) Dispatch(ctx context.Context, playerID, msgType string, payload json.RawMessage) (interface{}, error) {
	switch msgType {
	case MsgJoinQueue:
		return d.queue.Join(ctx, playerID)

	case MsgLeaveQueue:
		if err := d.queue.Leave(ctx, playerID); err != nil {
			return nil, err
		}
		return map[string]bool{"left": true}, nil

	case MsgAction:
		var p actionPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		action, err := service.ParseAction(p.Type, p.SkillID)
		if err != nil {
			return nil, err
		}
		matchID, err := d.resolveMatch(ctx, playerID, p.MatchID)
		if err != nil {
			return nil, err
		}
		return d.battles.SubmitAction(ctx, matchID, playerID, action)

	case MsgSurrender:
		var p matchPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		matchID, err := d.resolveMatch(ctx, playerID, p.MatchID)
		if err != nil {
			return nil, err
		}
		return d.battles.Surrender(ctx, matchID, playerID)

	case MsgState:
		var p matchPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		matchID, err := d.resolveMatch(ctx, playerID, p.MatchID)
		if err != nil {
			return nil, err
		}
		return d.battles.GetState(ctx, matchID, playerID)
	}

	return nil, errUnknownMessage
}

// resolveMatch matchId가 없으면 진행 중인 매치
func (d *RealtimeDispatcher) resolveMatch(ctx context.Context, playerID, matchID string) (string, error) {
	if matchID != "" {
		return matchID, nil
	}
	return d.battles.ActiveMatch(ctx, playerID)
}

// decode 빈 페이로드는 허용
func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &service.Error{Kind: service.KindInvalid, Message: "malformed payload", Err: err}
	}
	return nil
}
