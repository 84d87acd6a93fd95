package dispatch

import (
	"context"

	"ResQWave/internal/models"
	"ResQWave/pkg/cache"
	"ResQWave/pkg/errors"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor 发起操作的已认证用户
type Actor struct {
	ID   string
	Role string
	Name string
}

// Service 警报状态机与救援流程。写库成功后失效缓存并推送实时事件。
type Service struct {
	db         *gorm.DB
	cache      *cache.TieredCache
	publishers Publishers
}

func NewService(db *gorm.DB, c *cache.TieredCache, publishers ...Publisher) *Service {
	return &Service{
		db:         db,
		cache:      c,
		publishers: publishers,
	}
}

// AddPublisher 注册一个实时推送通道
func (s *Service) AddPublisher(p Publisher) {
	s.publishers = append(s.publishers, p)
}

// Cache 返回注入的缓存
func (s *Service) Cache() *cache.TieredCache {
	return s.cache
}

func (s *Service) store(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		s.cache.Delete(ctx, k)
	}
}

// invalidateAlertViews 失效警报列表、地图与单个警报缓存
func (s *Service) invalidateAlertViews(ctx context.Context, alertID string) {
	s.invalidate(ctx, KeyAlertsPattern, KeyMapPattern, alertKey(alertID))
}

// invalidateRescueViews 救援单变化后需要失效的所有视图
func (s *Service) invalidateRescueViews(ctx context.Context, alertID, formID string) {
	s.invalidate(ctx,
		rescueFormKey(alertID),
		rescueFormKey(formID),
		KeyRescueFormsAll,
		KeyRescueAggregatesScope,
		KeyPendingReports,
		KeyCompletedReports,
		KeyAggregatedReports,
		KeyAggregatedPostRescue,
	)
	s.invalidateAlertViews(ctx, alertID)
}

func (s *Service) loadAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	alert, err := models.GetAlert(s.store(ctx), alertID)
	if models.IsNotFound(err) {
		return nil, errors.NotFound("Alert Not Found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load alert")
	}
	return alert, nil
}

// dispatchSideEffects 在一个事务中把警报置为 Dispatched（清空类型）并让终端上线，
// 提交后推送状态更新与等待列表移除事件。form 非 nil 时一并写入救援单状态。
func (s *Service) dispatchSideEffects(ctx context.Context, alert *models.Alert, form *models.RescueForm, writeForm bool) error {
	err := s.store(ctx).Transaction(func(tx *gorm.DB) error {
		if writeForm {
			if err := models.SetRescueFormStatus(tx, form, models.RescueDispatched); err != nil {
				return err
			}
		}
		if err := models.MarkAlertDispatched(tx, alert); err != nil {
			return err
		}
		return models.SetTerminalStatus(tx, alert.TerminalID, models.TerminalOnline)
	})
	if err != nil {
		return errors.Wrap(err, "dispatch rescue")
	}
	metrics.RecordTransition("alert", string(models.AlertDispatched))
	metrics.RecordTransition("rescue_form", string(models.RescueDispatched))

	db := s.store(ctx)
	terminal, err := models.GetTerminal(db, alert.TerminalID)
	if err != nil && !models.IsNotFound(err) {
		logger.Warn("load terminal for event failed", zap.String("terminal", alert.TerminalID), zap.Error(err))
	}
	fp, err := models.FocalPersonForTerminal(db, alert.TerminalID)
	if err != nil {
		logger.Warn("load focal person for event failed", zap.String("terminal", alert.TerminalID), zap.Error(err))
	}

	update := StatusUpdate{
		MapReport:        newMapReport(alert, terminal, fp),
		RescueFormID:     form.ID,
		RescueFormStatus: models.RescueDispatched,
	}
	update.TerminalStatus = models.TerminalOnline
	s.publishers.publish(EventAlertStatusUpdate, update, alertGroups(alert.TerminalID)...)
	s.publishers.publish(EventWaitlistRemoved, WaitlistRemoved{
		AlertID:      alert.ID,
		RescueFormID: form.ID,
		Action:       "dispatched",
	}, GroupAlerts)
	return nil
}
