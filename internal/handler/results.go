package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"racebet/internal/models"
	"racebet/internal/period"
	"racebet/internal/repository"
)

type ResultHandler struct {
	Repo repository.Repository
}

func (h *ResultHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/results", h.recent)
	group.GET("/results/:period", h.byPeriod)
	group.GET("/periods/current", h.currentPeriod)
	group.GET("/settlements/:period", h.settlementLog)
}

type resultView struct {
	Period    int64     `json:"period"`
	Positions []int     `json:"positions"`
	Strategy  string    `json:"strategy"`
	DrawnAt   time.Time `json:"drawn_at"`
}

func resultToView(r models.Result) resultView {
	p := r.Positions()
	return resultView{
		Period:    r.Period,
		Positions: p[:],
		Strategy:  r.Strategy,
		DrawnAt:   r.CreatedAt,
	}
}

func (h *ResultHandler) recent(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.Repo.ListRecentResults(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	views := make([]resultView, 0, len(items))
	for _, r := range items {
		views = append(views, resultToView(r))
	}
	Ok(c, views, map[string]any{"count": len(views)})
}

func (h *ResultHandler) byPeriod(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := parsePeriodParam(c)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid period key", nil)
		return
	}
	item, err := h.Repo.GetResultByPeriod(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "result not found", nil)
		return
	}
	Ok(c, resultToView(*item), nil)
}

func (h *ResultHandler) currentPeriod(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetLatestPeriod(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no period open yet", nil)
		return
	}
	Ok(c, gin.H{
		"period":            item.ID,
		"state":             item.State,
		"betting_closes_at": item.BettingClosesAt,
		"draw_at":           item.DrawAt,
	}, nil)
}

func (h *ResultHandler) settlementLog(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := parsePeriodParam(c)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid period key", nil)
		return
	}
	item, err := h.Repo.GetSettlementLogByPeriod(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "period not settled", nil)
		return
	}
	Ok(c, item, nil)
}

func parsePeriodParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("period"), 10, 64)
	if err != nil {
		return 0, err
	}
	if !period.Valid(id) {
		return 0, strconv.ErrRange
	}
	return id, nil
}
