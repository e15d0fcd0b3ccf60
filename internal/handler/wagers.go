package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"racebet/internal/repository"
	"racebet/internal/service"
)

type WagerHandler struct {
	Service *service.WagerService
	Repo    repository.Repository
}

func (h *WagerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/wagers")
	group.POST("", h.place)
	group.GET("", h.list)
}

type placeWagerRequest struct {
	Username string `json:"username"`
	Period   int64  `json:"period"`
	Family   string `json:"family"`
	Selector string `json:"selector"`
	Position *int   `json:"position"`
	Stake    string `json:"stake"`
}

func (h *WagerHandler) place(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "wager service unavailable", nil)
		return
	}
	var req placeWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Period <= 0 {
		Error(c, http.StatusBadRequest, "username and period required", nil)
		return
	}
	stake, err := decimal.NewFromString(strings.TrimSpace(req.Stake))
	if err != nil || !stake.IsPositive() {
		Error(c, http.StatusBadRequest, "stake must be a positive decimal", nil)
		return
	}

	w, err := h.Service.PlaceWager(c.Request.Context(), service.PlaceWagerRequest{
		Username: req.Username,
		Period:   req.Period,
		Family:   strings.TrimSpace(req.Family),
		Selector: strings.TrimSpace(req.Selector),
		Position: req.Position,
		Stake:    stake,
	})
	switch {
	case errors.Is(err, service.ErrBettingClosed):
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	case errors.Is(err, service.ErrUnknownMember):
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	case errors.Is(err, service.ErrInsufficientBalance):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	case err != nil:
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, w, nil)
}

func (h *WagerHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	periodID, err := strconv.ParseInt(c.Query("period"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "period query required", nil)
		return
	}
	owner := strings.TrimSpace(c.Query("owner"))

	if owner != "" {
		items, err := h.Repo.ListWagersByOwner(c.Request.Context(), owner, periodID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, items, map[string]any{"count": len(items)})
		return
	}
	items, err := h.Repo.ListWagersByPeriod(c.Request.Context(), periodID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
