package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"racebet/internal/repository"
)

type TransactionHandler struct {
	Repo repository.Repository
}

func (h *TransactionHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/transactions", h.list)
}

func (h *TransactionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTransactionsParams{}
	if v := strings.TrimSpace(c.Query("username")); v != "" {
		params.Username = &v
	}
	if v := strings.TrimSpace(c.Query("user_type")); v != "" {
		params.UserType = &v
	}
	if v := strings.TrimSpace(c.Query("tx_type")); v != "" {
		params.TxType = &v
	}
	if v := strings.TrimSpace(c.Query("period")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid period", nil)
			return
		}
		params.Period = &id
	}
	params.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	params.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Repo.ListTransactionRecords(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
