package dispatch

import (
	"time"

	"ResQWave/internal/models"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/websocket"

	"go.uber.org/zap"
)

// 推送给运营端与终端的实时事件名
const (
	EventAlertCreated       = "liveReport:new"
	EventMapAlertCreated    = "mapReport:new"
	EventAlertStatusUpdate  = "alert:statusUpdate"
	EventWaitlistRemoved    = "waitlist:formRemoved"
	EventAlertStatusChanged = "alertStatusUpdated"
)

// GroupAlerts 所有管理员与调度员所在的广播组
const GroupAlerts = websocket.GroupAlerts

// Publisher 实时推送通道，websocket.Hub 与 sse.Hub 都实现了该接口。
// Publish 不得阻塞调用方。
type Publisher interface {
	Publish(group, event string, payload interface{}) error
}

// Publishers 依次推送到每个通道，失败只记录日志
type Publishers []Publisher

func (ps Publishers) publish(event string, payload interface{}, groups ...string) {
	for _, p := range ps {
		for _, g := range groups {
			if err := p.Publish(g, event, payload); err != nil {
				logger.Warn("realtime publish failed",
					zap.String("event", event),
					zap.String("group", g),
					zap.Error(err),
				)
			}
		}
	}
}

// LiveReport 新警报（列表视图）
type LiveReport struct {
	AlertID        string            `json:"alertId"`
	TerminalID     string            `json:"terminalId"`
	AlertType      *models.AlertType `json:"alertType"`
	Status         string            `json:"status"`
	LastSignalTime time.Time         `json:"lastSignalTime"`
	Address        *string           `json:"address"`
}

// MapReport 新警报（地图视图），带终端与联络人信息
type MapReport struct {
	AlertID            string                `json:"alertId"`
	AlertType          *models.AlertType     `json:"alertType"`
	TimeSent           time.Time             `json:"timeSent"`
	AlertStatus        string                `json:"alertStatus"`
	TerminalID         string                `json:"terminalId"`
	TerminalName       string                `json:"terminalName"`
	TerminalStatus     models.TerminalStatus `json:"terminalStatus"`
	FocalPersonID      *string               `json:"focalPersonId"`
	FocalFirstName     string                `json:"focalFirstName"`
	FocalLastName      string                `json:"focalLastName"`
	FocalAddress       *string               `json:"focalAddress"`
	FocalContactNumber string                `json:"focalContactNumber"`
}

// StatusUpdate 警报被调度后的完整状态
type StatusUpdate struct {
	MapReport
	RescueFormID     string              `json:"rescueFormId"`
	RescueFormStatus models.RescueStatus `json:"rescueFormStatus"`
}

// WaitlistRemoved 通知等待列表移除对应条目
type WaitlistRemoved struct {
	AlertID      string `json:"alertId"`
	RescueFormID string `json:"rescueFormId"`
	Action       string `json:"action"`
}

// AlertStatusChanged 手动变更警报状态
type AlertStatusChanged struct {
	AlertID   string             `json:"alertID"`
	NewStatus models.AlertStatus `json:"newStatus"`
}

func newMapReport(alert *models.Alert, terminal *models.Terminal, fp *models.FocalPerson) MapReport {
	r := MapReport{
		AlertID:            alert.ID,
		AlertType:          alert.AlertType,
		TimeSent:           alert.DateTimeSent,
		AlertStatus:        string(alert.Status),
		TerminalID:         alert.TerminalID,
		TerminalName:       "Terminal " + alert.TerminalID,
		TerminalStatus:     models.TerminalOffline,
		FocalFirstName:     "N/A",
		FocalContactNumber: "N/A",
	}
	if terminal != nil {
		r.TerminalName = terminal.DisplayName()
		if terminal.Status != "" {
			r.TerminalStatus = terminal.Status
		}
	}
	if fp != nil {
		id, address := fp.ID, fp.Address
		r.FocalPersonID = &id
		r.FocalAddress = &address
		r.FocalLastName = fp.LastName
		if fp.FirstName != "" {
			r.FocalFirstName = fp.FirstName
		}
		if fp.ContactNumber != "" {
			r.FocalContactNumber = fp.ContactNumber
		}
	}
	return r
}

func newLiveReport(alert *models.Alert, fp *models.FocalPerson) LiveReport {
	r := LiveReport{
		AlertID:        alert.ID,
		TerminalID:     alert.TerminalID,
		AlertType:      alert.AlertType,
		Status:         string(alert.Status),
		LastSignalTime: alert.DateTimeSent,
	}
	if fp != nil {
		address := fp.Address
		r.Address = &address
	}
	return r
}

func alertGroups(terminalID string) []string {
	return []string{GroupAlerts, websocket.TerminalGroup(terminalID)}
}
