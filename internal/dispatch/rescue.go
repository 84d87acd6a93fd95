package dispatch

import (
	"context"
	"fmt"
	"strings"

	"ResQWave/internal/models"
	"ResQWave/pkg/errors"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/metrics"
	"ResQWave/pkg/middleware"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Forbidden 的机器可读原因
const (
	ReasonAdminCannotCreate = "ADMIN_CANNOT_CREATE_RESCUE_FORM"
	ReasonInvalidRole       = "INVALID_USER_ROLE"
)

// RescueFormInput 救援单内容；每个选项可以附带补充说明
type RescueFormInput struct {
	FocalUnreachable     bool                `json:"focalUnreachable"`
	WaterLevel           string              `json:"waterLevel"`
	WaterLevelDetails    string              `json:"waterLevelDetails"`
	UrgencyOfEvacuation  string              `json:"urgencyOfEvacuation"`
	UrgencyDetails       string              `json:"urgencyDetails"`
	HazardPresent        string              `json:"hazardPresent"`
	HazardDetails        string              `json:"hazardDetails"`
	Accessibility        string              `json:"accessibility"`
	AccessibilityDetails string              `json:"accessibilityDetails"`
	ResourceNeeds        string              `json:"resourceNeeds"`
	ResourceDetails      string              `json:"resourceDetails"`
	OtherInformation     string              `json:"otherInformation"`
	Status               models.RescueStatus `json:"status"`
}

// PostRescueInput 救援完成报告
type PostRescueInput struct {
	NoOfPersonnelDeployed int    `json:"noOfPersonnelDeployed"`
	ResourcesUsed         string `json:"resourcesUsed"`
	ActionTaken           string `json:"actionTaken"`
}

// combine 把选项与说明合并为 "选项 - 说明"，都为空时返回 nil
func combine(selection, details string) *string {
	selection, details = strings.TrimSpace(selection), strings.TrimSpace(details)
	v := selection
	if details != "" {
		v = selection + " - " + details
	}
	if v == "" {
		return nil
	}
	return &v
}

func (in RescueFormInput) missingDetails() bool {
	for _, v := range []string{in.WaterLevel, in.UrgencyOfEvacuation, in.HazardPresent, in.Accessibility, in.ResourceNeeds} {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func authorizeRescueForm(actor Actor) error {
	switch strings.ToLower(actor.Role) {
	case middleware.RoleDispatcher:
		return nil
	case middleware.RoleAdmin:
		return errors.Forbidden(ReasonAdminCannotCreate,
			"Access denied: Only dispatchers can create rescue forms. You are currently in the admin interface.")
	}
	return errors.Forbidden(ReasonInvalidRole, "Access denied: Only dispatchers can create rescue forms.")
}

// CreateRescueForm 调度员为警报填写救援单。状态为 Dispatched 时同时调度警报、让终端上线并推送事件。
func (s *Service) CreateRescueForm(ctx context.Context, actor Actor, alertID string, in RescueFormInput) (*models.RescueForm, error) {
	alert, err := s.loadAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	// 调度会清空警报类型，先保存
	originalType := alert.AlertType

	db := s.store(ctx)
	existing, err := models.FindRescueFormByEmergency(db, alert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load rescue form")
	}
	if existing != nil {
		return nil, errors.Conflict("Rescue Form Already Exists")
	}

	hood, err := models.FindNeighborhoodByTerminal(db, alert.TerminalID)
	if err != nil {
		return nil, errors.Wrap(err, "load neighborhood")
	}
	var focalPersonID *string
	if hood != nil {
		focalPersonID = hood.FocalPersonID
	}

	if !in.FocalUnreachable && in.missingDetails() {
		return nil, errors.Validation("All rescue details are required when focal is reachable.")
	}
	if err := authorizeRescueForm(actor); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.RescueWaitlisted
	}
	if status != models.RescueWaitlisted && status != models.RescueDispatched {
		return nil, errors.Validation("Status must be Waitlisted or Dispatched")
	}

	form := &models.RescueForm{
		EmergencyID:         alert.ID,
		DispatcherID:        actor.ID,
		FocalPersonID:       focalPersonID,
		FocalUnreachable:    in.FocalUnreachable,
		OriginalAlertType:   originalType,
		WaterLevel:          combine(in.WaterLevel, in.WaterLevelDetails),
		UrgencyOfEvacuation: combine(in.UrgencyOfEvacuation, in.UrgencyDetails),
		HazardPresent:       combine(in.HazardPresent, in.HazardDetails),
		Accessibility:       combine(in.Accessibility, in.AccessibilityDetails),
		ResourceNeeds:       combine(in.ResourceNeeds, in.ResourceDetails),
		OtherInformation:    combine(in.OtherInformation, ""),
		Status:              status,
	}
	err = models.CreateWithGeneratedID(db, models.RescueFormIDPrefix, form, func(id string) { form.ID = id })
	switch {
	case err == nil:
	case models.IsDuplicate(err):
		return nil, errors.Conflict("Rescue Form Already Exists")
	case errors.IsKind(err, errors.KindConflict):
		return nil, err
	default:
		return nil, errors.Wrap(err, "create rescue form")
	}
	metrics.RecordTransition("rescue_form", string(status))
	logger.Info("rescue form created",
		zap.String("form", form.ID),
		zap.String("alert", alert.ID),
		zap.String("dispatcher", actor.ID),
		zap.String("status", string(status)),
	)

	var dispatchErr error
	if status == models.RescueDispatched {
		dispatchErr = s.dispatchSideEffects(ctx, alert, form, false)
	}
	s.invalidateRescueViews(ctx, alert.ID, form.ID)
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return form, nil
}

// UpdateRescueFormStatus 推进救援单状态（例如从等待列表调度）。重复调度是幂等的，会再次推送事件。
func (s *Service) UpdateRescueFormStatus(ctx context.Context, alertID string, status models.RescueStatus) (*models.RescueForm, error) {
	db := s.store(ctx)
	form, err := models.FindRescueFormByEmergency(db, alertID)
	if err != nil {
		return nil, errors.Wrap(err, "load rescue form")
	}
	if form == nil {
		return nil, errors.NotFound("Rescue Form Not Found")
	}
	if !status.Valid() {
		return nil, errors.Validation("Status must be Waitlisted, Dispatched or Completed")
	}
	if !form.Status.CanMoveTo(status) {
		return nil, errors.Validation(fmt.Sprintf("Cannot change rescue form status from %s to %s", form.Status, status))
	}

	alert, err := s.loadAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if form.OriginalAlertType == nil && alert.AlertType != nil {
		t := *alert.AlertType
		form.OriginalAlertType = &t
	}

	if status == models.RescueDispatched {
		if err := s.dispatchSideEffects(ctx, alert, form, true); err != nil {
			return nil, err
		}
	} else {
		if err := models.SetRescueFormStatus(db, form, status); err != nil {
			return nil, errors.Wrap(err, "update rescue form status")
		}
		metrics.RecordTransition("rescue_form", string(status))
	}

	s.invalidateRescueViews(ctx, alert.ID, form.ID)
	return form, nil
}

// CreatePostRescueForm 提交完成报告：警报必须已调度且有救援单，每个警报只能提交一次。
// 报告与救援单 Completed 状态在同一事务中写入。
func (s *Service) CreatePostRescueForm(ctx context.Context, alertID string, in PostRescueInput) (*models.PostRescueForm, error) {
	alert, err := s.loadAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.AlertDispatched {
		return nil, errors.Validation("Please dispatch a rescue team first")
	}

	db := s.store(ctx)
	form, err := models.FindRescueFormByEmergency(db, alert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load rescue form")
	}
	if form == nil {
		return nil, errors.Validation("Rescue Form Not Found")
	}
	existing, err := models.FindPostRescueByAlert(db, alert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load post rescue form")
	}
	if existing != nil {
		return nil, errors.Conflict("Post Rescue Form Already Exists")
	}

	in.ResourcesUsed, in.ActionTaken = strings.TrimSpace(in.ResourcesUsed), strings.TrimSpace(in.ActionTaken)
	if in.NoOfPersonnelDeployed <= 0 || in.ResourcesUsed == "" || in.ActionTaken == "" {
		return nil, errors.Validation("noOfPersonnelDeployed, resourcesUsed and actionTaken are required")
	}

	prf := &models.PostRescueForm{
		AlertID:               alert.ID,
		NoOfPersonnelDeployed: in.NoOfPersonnelDeployed,
		ResourcesUsed:         in.ResourcesUsed,
		ActionTaken:           in.ActionTaken,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		return models.CompleteRescue(tx, form, prf)
	})
	if models.IsDuplicate(err) {
		return nil, errors.Conflict("Post Rescue Form Already Exists")
	}
	if err != nil {
		return nil, errors.Wrap(err, "create post rescue form")
	}
	metrics.RecordTransition("rescue_form", string(models.RescueCompleted))
	logger.Info("rescue completed", zap.String("alert", alert.ID), zap.String("form", form.ID))

	s.invalidate(ctx,
		KeyCompletedReports,
		KeyPendingReports,
		KeyRescueFormsAll,
		rescueFormKey(form.ID),
		rescueFormKey(alert.ID),
		alertKey(alert.ID),
		KeyAggregatedReports,
		KeyAggregatedPostRescue,
		KeyRescueAggregatesScope,
	)
	return prf, nil
}
