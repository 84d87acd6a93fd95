package handlers

import (
	"net/http"

	"ResQWave/internal/dispatch"
	"ResQWave/internal/models"
	"ResQWave/pkg/middleware"
	"ResQWave/pkg/response"

	"github.com/gin-gonic/gin"
)

type UpdateRescueStatusReq struct {
	Status models.RescueStatus `json:"status" binding:"required"`
}

func actorFrom(c *gin.Context) dispatch.Actor {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return dispatch.Actor{}
	}
	return dispatch.Actor{ID: claims.ID, Role: claims.Role, Name: claims.Name}
}

// handleCreateRescueForm 调度员为警报创建救援单
func (h *Handlers) handleCreateRescueForm(c *gin.Context) {
	var req dispatch.RescueFormInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	form, err := h.svc.CreateRescueForm(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Rescue Form Created", form)
}

func (h *Handlers) handleUpdateRescueFormStatus(c *gin.Context) {
	var req UpdateRescueStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "status is required", nil)
		return
	}
	form, err := h.svc.UpdateRescueFormStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Rescue Form status updated", form)
}

func (h *Handlers) handleListRescueForms(c *gin.Context) {
	rows, err := h.svc.ListRescueForms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// handleRescueAggregates ?alertID= 过滤单个警报
func (h *Handlers) handleRescueAggregates(c *gin.Context) {
	rows, err := h.svc.RescueAggregates(c.Request.Context(), c.Query("alertID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleGetRescueForm(c *gin.Context) {
	view, err := h.svc.GetRescueForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
