package models

import (
	"strings"

	"ResQWave/pkg/errors"
	"ResQWave/pkg/util"

	"gorm.io/gorm"
)

// MaxIDAttempts 编号冲突时的最大重试次数
const MaxIDAttempts = 5

// Migrate 创建或更新所有表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Terminal{},
		&FocalPerson{},
		&Neighborhood{},
		&Dispatcher{},
		&Alert{},
		&RescueForm{},
		&PostRescueForm{},
	)
}

// AllocateID 读取当前最大编号并生成下一个。
// 按长度再按字典序排序，ALRT1000 排在 ALRT999 之后。
func AllocateID(db *gorm.DB, model interface{}, prefix string) (string, error) {
	var ids []string
	err := db.Model(model).
		Where("id LIKE ?", prefix+"%").
		Order("LENGTH(id) DESC").
		Order("id DESC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", err
	}
	current := ""
	if len(ids) > 0 {
		current = ids[0]
	}
	return util.NextIdentifier(prefix, current), nil
}

// CreateWithGeneratedID 分配编号并插入 entity；主键冲突时重新读取最大编号重试。
// assign 负责把编号写入 entity。冲突发生在其他唯一索引上时直接返回原错误。
func CreateWithGeneratedID(db *gorm.DB, prefix string, entity interface{}, assign func(id string)) error {
	for attempt := 0; attempt < MaxIDAttempts; attempt++ {
		id, err := AllocateID(db, entity, prefix)
		if err != nil {
			return err
		}
		assign(id)

		err = db.Create(entity).Error
		if err == nil {
			return nil
		}
		if !IsDuplicate(err) {
			return err
		}
		var taken int64
		if cerr := db.Model(entity).Where("id = ?", id).Count(&taken).Error; cerr != nil || taken == 0 {
			return err
		}
	}
	return errors.Conflict("could not allocate a unique " + prefix + " identifier")
}

// IsDuplicate 是否为唯一约束冲突
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
