package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// RescueStatus 救援单状态，只能前进不能回退
type RescueStatus string

const (
	RescueWaitlisted RescueStatus = "Waitlisted"
	RescueDispatched RescueStatus = "Dispatched"
	RescueCompleted  RescueStatus = "Completed"
)

func (s RescueStatus) rank() int {
	switch s {
	case RescueWaitlisted:
		return 1
	case RescueDispatched:
		return 2
	case RescueCompleted:
		return 3
	}
	return 0
}

// Valid 是否为已知状态
func (s RescueStatus) Valid() bool {
	return s.rank() > 0
}

// CanMoveTo 是否允许从 s 转到 next（相同状态视为允许）
func (s RescueStatus) CanMoveTo(next RescueStatus) bool {
	if s == RescueCompleted {
		return next == RescueCompleted
	}
	return next.rank() >= s.rank()
}

// RescueFormIDPrefix 救援单编号前缀，如 RF001
const RescueFormIDPrefix = "RF"

// RescueForm 调度员针对某个警报填写的救援单，每个警报最多一张
type RescueForm struct {
	ID                  string       `json:"id" gorm:"primaryKey;size:32"`
	EmergencyID         string       `json:"emergencyId" gorm:"size:32;not null;uniqueIndex"`
	DispatcherID        string       `json:"dispatcherId" gorm:"size:32;index"`
	FocalPersonID       *string      `json:"focalPersonId" gorm:"size:32"`
	FocalUnreachable    bool         `json:"focalUnreachable" gorm:"default:false"`
	OriginalAlertType   *AlertType   `json:"originalAlertType" gorm:"size:32"`
	WaterLevel          *string      `json:"waterLevel" gorm:"size:255"`
	UrgencyOfEvacuation *string      `json:"urgencyOfEvacuation" gorm:"size:255"`
	HazardPresent       *string      `json:"hazardPresent" gorm:"size:255"`
	Accessibility       *string      `json:"accessibility" gorm:"size:255"`
	ResourceNeeds       *string      `json:"resourceNeeds" gorm:"size:255"`
	OtherInformation    *string      `json:"otherInformation" gorm:"size:255"`
	Status              RescueStatus `json:"status" gorm:"size:16;not null;default:Waitlisted"`
	CreatedAt           time.Time    `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt           time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`
}

// PostRescueForm 救援完成报告，每个警报只能创建一次
type PostRescueForm struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	AlertID               string     `json:"alertId" gorm:"size:32;not null;uniqueIndex"`
	NoOfPersonnelDeployed int        `json:"noOfPersonnelDeployed"`
	ResourcesUsed         string     `json:"resourcesUsed" gorm:"size:512"`
	ActionTaken           string     `json:"actionTaken" gorm:"size:1024"`
	CreatedAt             time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	CompletedAt           *time.Time `json:"completedAt"`
}

// FindRescueFormByEmergency 查询警报对应的救援单，没有时返回 nil, nil
func FindRescueFormByEmergency(db *gorm.DB, alertID string) (*RescueForm, error) {
	var form RescueForm
	err := db.Where("emergency_id = ?", alertID).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// GetRescueForm 按编号查询救援单，不存在时返回 gorm.ErrRecordNotFound
func GetRescueForm(db *gorm.DB, id string) (*RescueForm, error) {
	var form RescueForm
	if err := db.Where("id = ?", id).First(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// SetRescueFormStatus 更新救援单状态，同时写入（回填的）originalAlertType
func SetRescueFormStatus(tx *gorm.DB, form *RescueForm, status RescueStatus) error {
	updates := map[string]interface{}{"status": status}
	if form.OriginalAlertType != nil {
		updates["original_alert_type"] = *form.OriginalAlertType
	}
	if err := tx.Model(&RescueForm{}).Where("id = ?", form.ID).Updates(updates).Error; err != nil {
		return err
	}
	form.Status = status
	return nil
}

// FindPostRescueByAlert 查询警报的完成报告，没有时返回 nil, nil
func FindPostRescueByAlert(db *gorm.DB, alertID string) (*PostRescueForm, error) {
	var prf PostRescueForm
	err := db.Where("alert_id = ?", alertID).First(&prf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prf, nil
}

// CompleteRescue 写入完成报告并把救援单置为 Completed，需在同一事务中调用
func CompleteRescue(tx *gorm.DB, form *RescueForm, prf *PostRescueForm) error {
	if prf.CompletedAt == nil {
		now := time.Now()
		prf.CompletedAt = &now
	}
	if err := tx.Create(prf).Error; err != nil {
		return err
	}
	return SetRescueFormStatus(tx, form, RescueCompleted)
}
