package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type TerminalStatus string

const (
	TerminalOnline  TerminalStatus = "Online"
	TerminalOffline TerminalStatus = "Offline"
)

// Valid 是否为合法的终端状态
func (s TerminalStatus) Valid() bool {
	return s == TerminalOnline || s == TerminalOffline
}

type TerminalAvailability string

const (
	TerminalAvailable TerminalAvailability = "Available"
	TerminalOccupied  TerminalAvailability = "Occupied"
)

// Terminal 现场求助终端
type Terminal struct {
	ID           string               `json:"id" gorm:"primaryKey;size:32"`
	Name         string               `json:"name" gorm:"size:255"`
	Status       TerminalStatus       `json:"status" gorm:"size:16;not null;default:Offline"`
	Availability TerminalAvailability `json:"availability" gorm:"size:16;not null;default:Available"`
	Archived     bool                 `json:"archived" gorm:"default:false"`
	DateCreated  time.Time            `json:"dateCreated" gorm:"autoCreateTime"`
	DateUpdated  time.Time            `json:"dateUpdated" gorm:"autoUpdateTime"`
}

// DisplayName 终端名称，未命名时为 "Terminal <id>"
func (t *Terminal) DisplayName() string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	return "Terminal " + t.ID
}

// Neighborhood 社区，关联一个终端与一个联络人
type Neighborhood struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	FocalPersonID *string   `json:"focalPersonId" gorm:"size:32;index"`
	TerminalID    *string   `json:"terminalId" gorm:"size:32;index"`
	HazardNotes   string    `json:"hazardNotes" gorm:"size:1024"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// FocalPerson 社区联络人
type FocalPerson struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	FirstName     string    `json:"firstName" gorm:"size:128"`
	LastName      string    `json:"lastName" gorm:"size:128"`
	Address       string    `json:"address" gorm:"size:512"`
	ContactNumber string    `json:"contactNumber" gorm:"size:32"`
	Email         string    `json:"email" gorm:"size:255"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// FullName 姓名，缺失的部分省略
func (f *FocalPerson) FullName() string {
	if f == nil {
		return ""
	}
	switch {
	case f.FirstName == "":
		return f.LastName
	case f.LastName == "":
		return f.FirstName
	}
	return f.FirstName + " " + f.LastName
}

// Dispatcher 调度员
type Dispatcher struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Name          string    `json:"name" gorm:"size:255"`
	Email         string    `json:"email" gorm:"size:255"`
	ContactNumber string    `json:"contactNumber" gorm:"size:32"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// GetTerminal 按编号查询终端，不存在时返回 gorm.ErrRecordNotFound
func GetTerminal(db *gorm.DB, id string) (*Terminal, error) {
	var terminal Terminal
	if err := db.Where("id = ?", id).First(&terminal).Error; err != nil {
		return nil, err
	}
	return &terminal, nil
}

// SetTerminalStatus 更新终端在线状态
func SetTerminalStatus(db *gorm.DB, id string, status TerminalStatus) error {
	return db.Model(&Terminal{}).Where("id = ?", id).Update("status", status).Error
}

// FindNeighborhoodByTerminal 查询终端所属社区，没有时返回 nil, nil
func FindNeighborhoodByTerminal(db *gorm.DB, terminalID string) (*Neighborhood, error) {
	var n Neighborhood
	err := db.Where("terminal_id = ?", terminalID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FindFocalPerson 查询联络人，没有时返回 nil, nil
func FindFocalPerson(db *gorm.DB, id string) (*FocalPerson, error) {
	var fp FocalPerson
	err := db.Where("id = ?", id).First(&fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// FocalPersonForTerminal 经由社区查询终端的联络人，任一环节缺失时返回 nil, nil
func FocalPersonForTerminal(db *gorm.DB, terminalID string) (*FocalPerson, error) {
	n, err := FindNeighborhoodByTerminal(db, terminalID)
	if err != nil || n == nil || n.FocalPersonID == nil {
		return nil, err
	}
	return FindFocalPerson(db, *n.FocalPersonID)
}
