package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
)

type PVPHandler struct {
	matchmaking *service.MatchmakingService
	battles     *service.BattleService
	matches     *service.MatchService
	seasons     *service.SeasonService
}

func NewPVPHandler(
	matchmaking *service.MatchmakingService,
	battles *service.BattleService,
	matches *service.MatchService,
	seasons *service.SeasonService,
) *PVPHandler {
	return &PVPHandler{
		matchmaking: matchmaking,
		battles:     battles,
		matches:     matches,
		seasons:     seasons,
	}
}

// ActionRequest 전투 행동 요청
type ActionRequest struct {
	Type    string `json:"type" binding:"required"`
	SkillID string `json:"skillId"`
}

// JoinQueue 매칭 대기열 참가 (범위 안 상대가 있으면 즉시 매칭)
func (h *PVPHandler) JoinQueue(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	result, err := h.matchmaking.Join(c.Request.Context(), pid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LeaveQueue 대기열 이탈 (멱등)
func (h *PVPHandler) LeaveQueue(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	if err := h.matchmaking.Leave(c.Request.Context(), pid); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitAction 전투 행동 제출
func (h *PVPHandler) SubmitAction(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"kind":  service.KindInvalid,
		})
		return
	}

	action, err := service.ParseAction(req.Type, req.SkillID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.battles.SubmitAction(c.Request.Context(), c.Param("id"), pid, action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Surrender 항복
func (h *PVPHandler) Surrender(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	view, err := h.battles.Surrender(c.Request.Context(), c.Param("id"), pid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": view})
}

// GetState 전투 상태 조회 (참가자만)
func (h *PVPHandler) GetState(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	view, err := h.battles.GetState(c.Request.Context(), c.Param("id"), pid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": view})
}

// GetActive 진행 중인 매치 ID
func (h *PVPHandler) GetActive(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	matchID, err := h.battles.ActiveMatch(c.Request.Context(), pid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matchId": matchID})
}

// GetHistory 내 매치 기록
func (h *PVPHandler) GetHistory(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	seasonID, err := optionalSeason(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.matches.GetHistory(c.Request.Context(), pid, page, pageSize, seasonID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats 통계 (playerId 파라미터가 없으면 본인)
func (h *PVPHandler) GetStats(c *gin.Context) {
	target := c.Param("playerId")
	if target == "" {
		pid, ok := playerID(c)
		if !ok {
			return
		}
		target = pid
	}

	stats, err := h.matches.GetStats(c.Request.Context(), target)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetMatch 정산된 매치 상세
func (h *PVPHandler) GetMatch(c *gin.Context) {
	match, err := h.matches.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": match})
}

// GetSeason 현재 시즌
func (h *PVPHandler) GetSeason(c *gin.Context) {
	season, err := h.seasons.GetCurrent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"season": season})
}

// optionalSeason ?seasonId= 파싱 (없으면 nil)
func optionalSeason(c *gin.Context) (*int64, error) {
	raw := c.Query("seasonId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return nil, service.ErrInvalidInput
	}
	return &id, nil
}
