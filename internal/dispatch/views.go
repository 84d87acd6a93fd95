package dispatch

import (
	"context"
	"time"

	"ResQWave/internal/models"
	"ResQWave/pkg/cache"
	"ResQWave/pkg/errors"
	"ResQWave/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 只读视图，全部经过缓存读穿透

func remember[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(db *gorm.DB) (T, error)) (T, error) {
	return cache.Remember(ctx, s.cache, key, ttl, func(ctx context.Context) (T, error) {
		return load(s.store(ctx))
	})
}

// refreshed 跳过缓存读取，直接查询并写回
func refreshed[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(db *gorm.DB) (T, error)) (T, error) {
	value, err := load(s.store(ctx))
	if err != nil {
		return value, err
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// ListAlerts 按状态列出警报，status 为空时返回全部
func (s *Service) ListAlerts(ctx context.Context, status models.AlertStatus) ([]models.AlertRow, error) {
	return remember(ctx, s, alertListKey(string(status)), AlertTTL, func(db *gorm.DB) ([]models.AlertRow, error) {
		return models.ListAlertRows(db, status)
	})
}

// GetAlert 单个警报详情
func (s *Service) GetAlert(ctx context.Context, id string) (*models.AlertDetail, error) {
	detail, err := remember(ctx, s, alertKey(id), AlertTTL, func(db *gorm.DB) (*models.AlertDetail, error) {
		return models.GetAlertDetail(db, id)
	})
	if models.IsNotFound(err) {
		return nil, errors.NotFound("Alert Not Found")
	}
	return detail, err
}

// LatestMapAlerts 每个终端最新的一条警报
func (s *Service) LatestMapAlerts(ctx context.Context) ([]models.MapAlertRow, error) {
	return remember(ctx, s, KeyMapLatest, AlertTTL, models.LatestMapAlerts)
}

// OccupiedTerminalMap 已分配联络人的终端及其最新警报
func (s *Service) OccupiedTerminalMap(ctx context.Context) ([]models.OccupiedTerminalRow, error) {
	return remember(ctx, s, KeyMapOccupied, AlertTTL, models.OccupiedTerminals)
}

// GetRescueForm 救援单详情
func (s *Service) GetRescueForm(ctx context.Context, formID string) (*models.RescueFormView, error) {
	view, err := remember(ctx, s, rescueFormKey(formID), RescueFormTTL, func(db *gorm.DB) (*models.RescueFormView, error) {
		return models.GetRescueFormView(db, formID)
	})
	if models.IsNotFound(err) {
		return nil, errors.NotFound("Rescue Form Not Found")
	}
	return view, err
}

// ListRescueForms 全部救援单
func (s *Service) ListRescueForms(ctx context.Context) ([]models.RescueFormView, error) {
	return remember(ctx, s, KeyRescueFormsAll, RescueFormTTL, models.ListRescueFormViews)
}

// RescueAggregates 救援单汇总表，alertID 为空时返回全部
func (s *Service) RescueAggregates(ctx context.Context, alertID string) ([]models.RescueAggregateRow, error) {
	return remember(ctx, s, rescueAggregatesKey(alertID), RescueFormTTL, func(db *gorm.DB) ([]models.RescueAggregateRow, error) {
		return models.RescueAggregates(db, alertID)
	})
}

// PendingReports 已调度未完成的救援；refresh 时跳过缓存
func (s *Service) PendingReports(ctx context.Context, refresh bool) ([]models.ReportRow, error) {
	if refresh {
		return refreshed(ctx, s, KeyPendingReports, PendingReportsTTL, models.PendingReports)
	}
	return remember(ctx, s, KeyPendingReports, PendingReportsTTL, models.PendingReports)
}

// CompletedReports 已完成的救援；refresh 时跳过缓存
func (s *Service) CompletedReports(ctx context.Context, refresh bool) ([]models.ReportRow, error) {
	if refresh {
		return refreshed(ctx, s, KeyCompletedReports, CompletedReportTTL, models.CompletedReports)
	}
	return remember(ctx, s, KeyCompletedReports, CompletedReportTTL, models.CompletedReports)
}

// AggregatedReports 完整救援报告
func (s *Service) AggregatedReports(ctx context.Context, alertID string) ([]models.AggregatedReport, error) {
	return remember(ctx, s, aggregatedReportsKey(alertID), AggregateTTL, func(db *gorm.DB) ([]models.AggregatedReport, error) {
		return models.AggregatedReports(db, alertID)
	})
}

// AggregatedPostRescue 完成报告汇总表
func (s *Service) AggregatedPostRescue(ctx context.Context, alertID string) ([]models.PostRescueAggregateRow, error) {
	return remember(ctx, s, aggregatedPostRescueKey(alertID), AggregateTTL, func(db *gorm.DB) ([]models.PostRescueAggregateRow, error) {
		return models.AggregatedPostRescue(db, alertID)
	})
}

// ClearReportsCache 清除所有报告相关缓存
func (s *Service) ClearReportsCache(ctx context.Context) {
	s.invalidate(ctx,
		KeyCompletedReports,
		KeyPendingReports,
		KeyRescueFormsAll,
		KeyAggregatedReports,
		KeyAggregatedPostRescue,
	)
}
