package metrics

import (
	"time"

	"ResQWave/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "metrics:started_at"

// SlowQueryThreshold 超过该耗时的查询会记录 warn 日志
var SlowQueryThreshold = 200 * time.Millisecond

// InstrumentGorm 在 gorm 回调链上记录查询耗时与失败次数
func InstrumentGorm(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete")); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("metrics:before_row", before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("metrics:after_row", after("row")); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("metrics:after_raw", after("raw"))
}

func before(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		failed := db.Error != nil && db.Error != gorm.ErrRecordNotFound
		RecordDBQuery(op, table, elapsed, failed)
		if elapsed > SlowQueryThreshold {
			logger.Warn("slow query",
				zap.String("operation", op),
				zap.String("table", table),
				zap.Duration("elapsed", elapsed),
				zap.String("sql", db.Statement.SQL.String()),
			)
		}
	}
}
