package dispatch

import (
	"context"
	"strings"

	"ResQWave/internal/models"
	"ResQWave/pkg/errors"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/metrics"
	"ResQWave/pkg/websocket"

	"go.uber.org/zap"
)

// CreateAlertInput 创建警报的参数
type CreateAlertInput struct {
	TerminalID     string                `json:"terminalID"`
	AlertType      models.AlertType      `json:"alertType"`
	SentThrough    string                `json:"sentThrough"`
	TerminalStatus models.TerminalStatus `json:"terminalStatus,omitempty"`
}

// 警报状态操作
const (
	ActionWaitlist = "waitlist"
	ActionDispatch = "dispatch"
)

// CreateAlert 为终端创建一条 Unassigned 警报并广播给运营端与终端房间
func (s *Service) CreateAlert(ctx context.Context, in CreateAlertInput) (*models.Alert, error) {
	in.TerminalID = strings.TrimSpace(in.TerminalID)
	if in.TerminalID == "" {
		return nil, errors.Validation("terminalID is required")
	}
	if !in.AlertType.Valid() {
		return nil, errors.Validation("alertType must be Critical or User-Initiated")
	}
	if in.TerminalStatus != "" && !in.TerminalStatus.Valid() {
		return nil, errors.Validation("terminalStatus must be Online or Offline")
	}

	db := s.store(ctx)
	terminal, err := models.GetTerminal(db, in.TerminalID)
	if models.IsNotFound(err) {
		return nil, errors.NotFound("Terminal Not Found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load terminal")
	}

	if in.TerminalStatus != "" && in.TerminalStatus != terminal.Status {
		if err := models.SetTerminalStatus(db, terminal.ID, in.TerminalStatus); err != nil {
			return nil, errors.Wrap(err, "update terminal status")
		}
		terminal.Status = in.TerminalStatus
	}

	alert := &models.Alert{
		TerminalID:  terminal.ID,
		AlertType:   in.AlertType.Ptr(),
		Status:      models.AlertUnassigned,
		SentThrough: in.SentThrough,
	}
	err = models.CreateWithGeneratedID(db, models.AlertIDPrefix, alert, func(id string) { alert.ID = id })
	if err != nil {
		if errors.IsKind(err, errors.KindConflict) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create alert")
	}
	metrics.RecordTransition("alert", string(models.AlertUnassigned))
	logger.Info("alert created",
		zap.String("alert", alert.ID),
		zap.String("terminal", alert.TerminalID),
		zap.String("type", alert.TypeName()),
	)

	s.invalidate(ctx, KeyAlertsPattern, KeyMapPattern)

	fp, err := models.FocalPersonForTerminal(db, terminal.ID)
	if err != nil {
		logger.Warn("load focal person for event failed", zap.String("terminal", terminal.ID), zap.Error(err))
	}
	groups := alertGroups(terminal.ID)
	s.publishers.publish(EventAlertCreated, newLiveReport(alert, fp), groups...)
	s.publishers.publish(EventMapAlertCreated, newMapReport(alert, terminal, fp), groups...)
	return alert, nil
}

// CreateCriticalAlert 传感器触发的紧急警报
func (s *Service) CreateCriticalAlert(ctx context.Context, terminalID, sentThrough string) (*models.Alert, error) {
	if sentThrough == "" {
		sentThrough = "Sensor"
	}
	return s.CreateAlert(ctx, CreateAlertInput{
		TerminalID:  terminalID,
		AlertType:   models.AlertCritical,
		SentThrough: sentThrough,
	})
}

// CreateUserInitiatedAlert 用户按键触发的警报
func (s *Service) CreateUserInitiatedAlert(ctx context.Context, terminalID, sentThrough string) (*models.Alert, error) {
	if sentThrough == "" {
		sentThrough = "Button"
	}
	return s.CreateAlert(ctx, CreateAlertInput{
		TerminalID:  terminalID,
		AlertType:   models.AlertUserInitiated,
		SentThrough: sentThrough,
	})
}

// Trigger 处理终端通过 socket 上报的 alert:trigger，返回新警报ID。未指定类型时视为 Critical
func (s *Service) Trigger(ctx context.Context, who websocket.Identity, req websocket.TriggerRequest) (string, error) {
	alertType := models.AlertType(req.AlertType)
	if alertType == "" {
		alertType = models.AlertCritical
	}
	alert, err := s.CreateAlert(ctx, CreateAlertInput{
		TerminalID:     req.TerminalID,
		AlertType:      alertType,
		SentThrough:    "Socket",
		TerminalStatus: models.TerminalStatus(req.TerminalStatus),
	})
	if err != nil {
		logger.Warn("socket alert trigger rejected",
			zap.String("terminal", req.TerminalID),
			zap.String("connection", who.ID),
			zap.Error(err),
		)
		return "", err
	}
	return alert.ID, nil
}

// SetStatus 把警报移入等待列表或标记为已调度。必须先有救援单；状态不会回到 Unassigned，
// 已调度的警报也不能退回等待列表。
func (s *Service) SetStatus(ctx context.Context, alertID, action string) (*models.Alert, error) {
	alert, err := s.loadAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	db := s.store(ctx)
	form, err := models.FindRescueFormByEmergency(db, alertID)
	if err != nil {
		return nil, errors.Wrap(err, "load rescue form")
	}
	if form == nil {
		return nil, errors.Validation("Rescue Form must be created before dispatching or waitlisting")
	}

	var next models.AlertStatus
	switch action {
	case ActionWaitlist:
		next = models.AlertWaitlist
	case ActionDispatch:
		next = models.AlertDispatched
	default:
		return nil, errors.Validation("Invalid action. Use 'waitlist' or 'dispatch'.")
	}
	if alert.Status == models.AlertDispatched && next != models.AlertDispatched {
		return nil, errors.Validation("Alert has already been dispatched")
	}

	if err := models.UpdateAlertStatus(db, alert, next); err != nil {
		return nil, errors.Wrap(err, "update alert status")
	}
	metrics.RecordTransition("alert", string(next))

	s.invalidateAlertViews(ctx, alert.ID)
	s.publishers.publish(EventAlertStatusChanged, AlertStatusChanged{
		AlertID:   alert.ID,
		NewStatus: next,
	}, GroupAlerts)
	return alert, nil
}
