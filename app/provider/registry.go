package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"content-forge/app/logger"
)

// IdentityRegistry 数字人形象注册器
// 上游对形象数量有配额限制，配额耗尽时淘汰最早注册的一个形象，
// 等待一个固定的宽限期后重试注册，且只重试一次
type IdentityRegistry struct {
	client AvatarClient
	wait   time.Duration
	log    *logger.Logger
}

// NewIdentityRegistry 创建形象注册器
func NewIdentityRegistry(client AvatarClient, wait time.Duration, log *logger.Logger) *IdentityRegistry {
	return &IdentityRegistry{
		client: client,
		wait:   wait,
		log:    log,
	}
}

// Register 注册形象，配额耗尽时执行一次淘汰加重试
func (r *IdentityRegistry) Register(ctx context.Context, imageAssetID, name string) (string, error) {
	identityID, err := r.client.CreateIdentity(ctx, imageAssetID, name)
	if err == nil {
		return identityID, nil
	}
	if !IsQuota(err) {
		return "", err
	}

	r.log.Warnf("⚠️ 形象配额已满，淘汰最早注册的形象后重试: %v", err)

	if err := r.evictOldest(ctx); err != nil {
		return "", fmt.Errorf("淘汰旧形象失败: %w", err)
	}

	// 固定宽限期，等待上游释放配额
	select {
	case <-time.After(r.wait):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// 只重试一次，再次失败直接向上传播
	identityID, err = r.client.CreateIdentity(ctx, imageAssetID, name)
	if err != nil {
		return "", err
	}
	return identityID, nil
}

// evictOldest 删除创建时间最早的形象
func (r *IdentityRegistry) evictOldest(ctx context.Context) error {
	identities, err := r.client.ListIdentities(ctx)
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		return fmt.Errorf("配额已满但没有可淘汰的形象")
	}

	// 按创建时间显式排序，保证淘汰的是最早的一个
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].CreatedAt.Before(identities[j].CreatedAt)
	})
	oldest := identities[0]

	if err := r.client.DeleteIdentity(ctx, oldest.ID); err != nil {
		return err
	}
	r.log.Infof("🗑️ 已淘汰形象: %s (%s, 注册于 %s)", oldest.ID, oldest.Name, oldest.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
