package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ResQWave/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filePrefix = "resqwave_backup_"

// Job 定时数据库快照，目前只支持 sqlite。mysql/postgres 由数据库自身的备份方案负责
type Job struct {
	db     *gorm.DB
	driver string
	dir    string
	keep   int
	now    func() time.Time
}

// New keep 为保留的快照数量，<=0 时不清理
func New(db *gorm.DB, driver, dir string, keep int) *Job {
	return &Job{db: db, driver: driver, dir: dir, keep: keep, now: time.Now}
}

// Run 实现 scheduler.Job
func (j *Job) Run(ctx context.Context) {
	dst, err := j.Snapshot(ctx)
	if err != nil {
		logger.Warn("backup failed", zap.String("driver", j.driver), zap.Error(err))
		return
	}
	logger.Info("backup completed", zap.String("file", dst))
	if err := j.prune(); err != nil {
		logger.Warn("prune backups failed", zap.String("dir", j.dir), zap.Error(err))
	}
}

// Snapshot 写出一份一致的快照并返回文件路径
func (j *Job) Snapshot(ctx context.Context) (string, error) {
	switch j.driver {
	case "", "sqlite":
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER for backup: %s", j.driver)
	}

	if err := os.MkdirAll(j.dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	dst := filepath.Join(j.dir, fmt.Sprintf("%s%s.db", filePrefix, j.now().Format("20060102_150405")))
	// VACUUM INTO 生成一致快照
	if err := j.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error; err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return dst, nil
}

func (j *Job) prune() error {
	if j.keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			files = append(files, e.Name())
		}
	}
	if len(files) <= j.keep {
		return nil
	}
	// 文件名带时间戳，字典序即时间序
	sort.Strings(files)
	for _, name := range files[:len(files)-j.keep] {
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			return err
		}
	}
	return nil
}
