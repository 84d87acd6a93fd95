package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ResQWave/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestSnapshotAndPrune(t *testing.T) {
	db, err := util.InitDatabase(nil, "sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{ID: "T1", Name: "Riverside"}).Error)

	dir := t.TempDir()
	job := New(db, "sqlite", dir, 2)
	clock := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	job.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	dst, err := job.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "resqwave_backup_20250701_080100.db"), dst)

	restored, err := util.InitDatabase(nil, "sqlite", dst)
	require.NoError(t, err)
	var got row
	require.NoError(t, restored.First(&got, "id = ?", "T1").Error)
	assert.Equal(t, "Riverside", got.Name)
	if sqlDB, err := restored.DB(); err == nil {
		sqlDB.Close()
	}

	job.Run(context.Background())
	job.Run(context.Background())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "resqwave_backup_20250701_080200.db", entries[0].Name())
	assert.Equal(t, "resqwave_backup_20250701_080300.db", entries[1].Name())
}

func TestSnapshotRejectsServerDrivers(t *testing.T) {
	job := New(nil, "mysql", t.TempDir(), 0)
	_, err := job.Snapshot(context.Background())
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
