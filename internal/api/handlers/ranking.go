package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/models"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
)

type RankingHandler struct {
	rankings *service.RankingService
}

func NewRankingHandler(rankings *service.RankingService) *RankingHandler {
	return &RankingHandler{rankings: rankings}
}

// List 카테고리 랭킹 페이지
func (h *RankingHandler) List(c *gin.Context) {
	category, seasonID, ok := h.scope(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	result, err := h.rankings.List(c.Request.Context(), category, seasonID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Me 내 순위
func (h *RankingHandler) Me(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	category, seasonID, ok := h.scope(c)
	if !ok {
		return
	}

	pos, err := h.rankings.RankOf(c.Request.Context(), category, seasonID, pid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"position": pos})
}

// Around 내 위아래 ?count=명
func (h *RankingHandler) Around(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	category, seasonID, ok := h.scope(c)
	if !ok {
		return
	}

	count, _ := strconv.Atoi(c.DefaultQuery("count", "5"))

	entries, err := h.rankings.Around(c.Request.Context(), category, seasonID, pid, count)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// scope 카테고리와 시즌 (seasonId가 없으면 현재 시즌)
func (h *RankingHandler) scope(c *gin.Context) (models.RankingCategory, int64, bool) {
	category := models.RankingCategory(c.Param("category"))
	if !category.Valid() {
		respondError(c, service.ErrInvalidCategory)
		return "", 0, false
	}

	explicit, err := optionalSeason(c)
	if err != nil {
		respondError(c, err)
		return "", 0, false
	}
	if explicit != nil {
		return category, *explicit, true
	}

	seasonID, err := h.rankings.SeasonFor(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return "", 0, false
	}
	return category, seasonID, true
}
