package handlers

import (
	"net/http"

	"ResQWave/internal/dispatch"
	"ResQWave/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

func (h *Handlers) handleCreatePostRescueForm(c *gin.Context) {
	var req dispatch.PostRescueInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	prf, err := h.svc.CreatePostRescueForm(c.Request.Context(), c.Param("alertID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Post Rescue Form Created", prf)
}

// noStore 报告列表需要实时，禁止浏览器缓存
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func (h *Handlers) handlePendingReports(c *gin.Context) {
	rows, err := h.svc.PendingReports(c.Request.Context(), cast.ToBool(c.Query("refresh")))
	if err != nil {
		response.Error(c, err)
		return
	}
	noStore(c)
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleCompletedReports(c *gin.Context) {
	rows, err := h.svc.CompletedReports(c.Request.Context(), cast.ToBool(c.Query("refresh")))
	if err != nil {
		response.Error(c, err)
		return
	}
	noStore(c)
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleAggregatedReports(c *gin.Context) {
	rows, err := h.svc.AggregatedReports(c.Request.Context(), c.Query("alertID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleAggregatedPostRescue(c *gin.Context) {
	rows, err := h.svc.AggregatedPostRescue(c.Request.Context(), c.Query("alertID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleClearReportsCache(c *gin.Context) {
	h.svc.ClearReportsCache(c.Request.Context())
	response.Success(c, "Reports cache cleared", nil)
}
