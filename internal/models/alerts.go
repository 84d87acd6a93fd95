package models

import (
	"time"

	"gorm.io/gorm"
)

// AlertType 警报类型，调度后清空为 NULL
type AlertType string

const (
	AlertCritical      AlertType = "Critical"
	AlertUserInitiated AlertType = "User-Initiated"
)

// Valid 是否为已知的警报类型
func (t AlertType) Valid() bool {
	return t == AlertCritical || t == AlertUserInitiated
}

// Ptr 返回指针，便于写入可空列
func (t AlertType) Ptr() *AlertType {
	return &t
}

// AlertStatus 警报处理状态
type AlertStatus string

const (
	AlertUnassigned AlertStatus = "Unassigned"
	AlertWaitlist   AlertStatus = "Waitlist"
	AlertDispatched AlertStatus = "Dispatched"
)

// AlertIDPrefix 警报编号前缀，如 ALRT001
const AlertIDPrefix = "ALRT"

// Alert 终端发出的求助警报（本服务从不删除）
type Alert struct {
	ID           string      `json:"id" gorm:"primaryKey;size:32"`
	TerminalID   string      `json:"terminalId" gorm:"size:32;not null;index"`
	AlertType    *AlertType  `json:"alertType" gorm:"size:32"`
	Status       AlertStatus `json:"status" gorm:"size:16;not null;default:Unassigned;index"`
	SentThrough  string      `json:"sentThrough" gorm:"size:32"`
	DateTimeSent time.Time   `json:"dateTimeSent" gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TypeName 警报类型的字符串形式，NULL 时为空串
func (a *Alert) TypeName() string {
	if a == nil || a.AlertType == nil {
		return ""
	}
	return string(*a.AlertType)
}

// GetAlert 按编号查询警报，不存在时返回 gorm.ErrRecordNotFound
func GetAlert(db *gorm.DB, id string) (*Alert, error) {
	var alert Alert
	if err := db.Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlerts 按状态列出警报，status 为空时返回全部；Critical 优先，其次按时间倒序
func ListAlerts(db *gorm.DB, status AlertStatus) ([]Alert, error) {
	var alerts []Alert
	q := db.Model(&Alert{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("CASE WHEN alert_type = 'Critical' THEN 0 ELSE 1 END").
		Order("date_time_sent DESC").
		Order("id DESC").
		Find(&alerts).Error
	return alerts, err
}

// UpdateAlertStatus 更新警报状态
func UpdateAlertStatus(db *gorm.DB, alert *Alert, status AlertStatus) error {
	if err := db.Model(&Alert{}).Where("id = ?", alert.ID).Update("status", status).Error; err != nil {
		return err
	}
	alert.Status = status
	return nil
}

// MarkAlertDispatched 调度完成：状态置为 Dispatched，警报类型清空。
// 调用方负责在事务中执行，并在此之前保存 originalAlertType。
func MarkAlertDispatched(tx *gorm.DB, alert *Alert) error {
	err := tx.Model(&Alert{}).Where("id = ?", alert.ID).Updates(map[string]interface{}{
		"status":     AlertDispatched,
		"alert_type": nil,
	}).Error
	if err != nil {
		return err
	}
	alert.Status = AlertDispatched
	alert.AlertType = nil
	return nil
}
