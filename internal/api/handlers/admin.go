package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
)

// AdminHandler 랭킹 재동기화, 시즌 관리, 매치 조회
type AdminHandler struct {
	rankings *service.RankingService
	seasons  *service.SeasonService
	matches  *service.MatchService
}

func NewAdminHandler(rankings *service.RankingService, seasons *service.SeasonService, matches *service.MatchService) *AdminHandler {
	return &AdminHandler{
		rankings: rankings,
		seasons:  seasons,
		matches:  matches,
	}
}

// SyncRankings 전체 플레이어 랭킹 재계산
func (h *AdminHandler) SyncRankings(c *gin.Context) {
	synced, err := h.rankings.SyncAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Rankings synced by admin", "players", synced, "admin", c.GetString("playerId"))
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

// RebuildRanking 영속 행에서 인덱스 재생성
func (h *AdminHandler) RebuildRanking(c *gin.Context) {
	category := models.RankingCategory(c.Param("category"))
	seasonID, err := optionalSeason(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if seasonID == nil {
		current, err := h.rankings.SeasonFor(c.Request.Context(), category)
		if err != nil {
			respondError(c, err)
			return
		}
		seasonID = &current
	}

	loaded, err := h.rankings.Rebuild(c.Request.Context(), category, *seasonID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"seasonId": *seasonID,
		"entries":  loaded,
	})
}

// CreateSeason 시즌 생성 (비활성)
func (h *AdminHandler) CreateSeason(c *gin.Context) {
	var req models.CreateSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"kind":  service.KindInvalid,
		})
		return
	}

	season, err := h.seasons.Create(c.Request.Context(), req.Name, req.StartAt, req.EndAt, req.Rewards)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"season": season})
}

func (h *AdminHandler) ActivateSeason(c *gin.Context) {
	id, ok := seasonParam(c)
	if !ok {
		return
	}
	if err := h.seasons.Activate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasonId": id, "active": true})
}

func (h *AdminHandler) EndSeason(c *gin.Context) {
	id, ok := seasonParam(c)
	if !ok {
		return
	}
	if err := h.seasons.End(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasonId": id, "active": false})
}

func (h *AdminHandler) ListSeasons(c *gin.Context) {
	seasons, err := h.seasons.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasons": seasons})
}

// ListMatches 전체 매치 (최신순)
func (h *AdminHandler) ListMatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	result, err := h.matches.ListAll(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func seasonParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, service.ErrInvalidInput)
		return 0, false
	}
	return id, true
}
