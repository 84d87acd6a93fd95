package handlers

import (
	"net/http"

	"ResQWave/internal/dispatch"
	"ResQWave/internal/models"
	"ResQWave/pkg/response"

	"github.com/gin-gonic/gin"
)

// TriggerReq 终端上报警报
type TriggerReq struct {
	TerminalID     string                `json:"terminalID" binding:"required"`
	SentThrough    string                `json:"sentThrough"`
	TerminalStatus models.TerminalStatus `json:"terminalStatus"`
}

type SetAlertStatusReq struct {
	Action string `json:"action" binding:"required"`
}

func (h *Handlers) createAlert(c *gin.Context, alertType models.AlertType, defaultChannel string) {
	var req TriggerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "terminalID is required", nil)
		return
	}
	if req.SentThrough == "" {
		req.SentThrough = defaultChannel
	}
	alert, err := h.svc.CreateAlert(c.Request.Context(), dispatch.CreateAlertInput{
		TerminalID:     req.TerminalID,
		AlertType:      alertType,
		SentThrough:    req.SentThrough,
		TerminalStatus: req.TerminalStatus,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, string(alertType)+" alert created", alert)
}

// handleCreateCriticalAlert 传感器警报
func (h *Handlers) handleCreateCriticalAlert(c *gin.Context) {
	h.createAlert(c, models.AlertCritical, "Sensor")
}

// handleCreateUserAlert 按键警报
func (h *Handlers) handleCreateUserAlert(c *gin.Context) {
	h.createAlert(c, models.AlertUserInitiated, "Button")
}

func (h *Handlers) handleListAlerts(status models.AlertStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.svc.ListAlerts(c.Request.Context(), status)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handlers) handleMapAlerts(c *gin.Context) {
	rows, err := h.svc.LatestMapAlerts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) handleOccupiedMap(c *gin.Context) {
	rows, err := h.svc.OccupiedTerminalMap(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// handleWaitlistedMap 控制台仍会请求该接口，地图上不再单独展示等待列表
func (h *Handlers) handleWaitlistedMap(c *gin.Context) {
	c.JSON(http.StatusOK, []models.MapAlertRow{})
}

func (h *Handlers) handleGetAlert(c *gin.Context) {
	detail, err := h.svc.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// handleSetAlertStatus {"action": "waitlist" | "dispatch"}
func (h *Handlers) handleSetAlertStatus(c *gin.Context) {
	var req SetAlertStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "Invalid action. Use 'waitlist' or 'dispatch'.", nil)
		return
	}
	alert, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "Alert moved to waitlist"
	if alert.Status == models.AlertDispatched {
		msg = "Alert dispatched"
	}
	response.Success(c, msg, alert)
}
