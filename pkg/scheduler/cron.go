package scheduler

import (
	"context"
	"fmt"
	"time"

	"ResQWave/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Cron struct {
	c      *cron.Cron
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	var l cronLogger
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))
	return &Cron{c: c, loc: loc, ctx: ctx, cancel: cancel}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop 停止调度并等待运行中的任务结束
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	id, err := cr.c.AddFunc(expr, func() { job.Run(cr.ctx) })
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return id, nil
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
