package service

import (
	"context"
	"time"

	"maxidp/pkg/audit"
	"maxidp/pkg/logger"
)

/* ExpiredTokenDeleter 过期令牌清理 */
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

/*
 * Reaper 过期令牌清理任务
 * 功能：定期删除过期未兑换的授权码与过期的访问令牌
 *       只控制存储增长，查询路径本身按时间戳排除过期记录
 */
type Reaper struct {
	store    ExpiredTokenDeleter
	interval time.Duration
	now      func() time.Time
}

/* NewReaper 创建清理任务，interval <= 0 时使用 30 分钟 */
func NewReaper(store ExpiredTokenDeleter, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Reaper{store: store, interval: interval, now: func() time.Time { return time.Now().UTC() }}
}

/* Sweep 执行一次清理 */
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteExpired(ctx, r.now())
	if err != nil {
		logger.Warn("Failed to clean expired tokens", "error", err)
		return 0, err
	}
	if n > 0 {
		audit.LogContext(ctx, audit.ActionReaperSweep, audit.ResultSuccess, "system", "tokens", "", "deleted", n)
	}
	return n, nil
}

/* Run 阻塞运行直到 ctx 取消 */
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
