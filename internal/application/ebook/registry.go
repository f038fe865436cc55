package ebook

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	workflowport "ebook-studio-api/internal/workflow/port"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/metrics"
)

// Registry 按运行 ID 保存控制器的有界 LRU，超出容量时淘汰最久未访问的运行
type Registry struct {
	gateway workflowport.Gateway
	base    []Option
	runs    *lru.Cache[string, *Controller]
}

// NewRegistry 创建运行注册表，base 选项应用于每个新建的控制器
func NewRegistry(size int, gateway workflowport.Gateway, base ...Option) (*Registry, error) {
	if size <= 0 {
		size = 256
	}
	runs, err := lru.NewWithEvict[string, *Controller](size, func(_ string, _ *Controller) {
		metrics.ActiveRuns.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &Registry{gateway: gateway, base: base, runs: runs}, nil
}

// Create 为用户新建一次运行
func (r *Registry) Create(ownerID, credential string) *Controller {
	opts := make([]Option, 0, len(r.base)+2)
	opts = append(opts, r.base...)
	opts = append(opts, WithOwner(ownerID), WithCredential(credential))

	c := NewController(uuid.NewString(), r.gateway, opts...)
	r.runs.Add(c.ID(), c)
	metrics.ActiveRuns.Inc()
	return c
}

// Get 按 ID 获取运行
func (r *Registry) Get(id string) (*Controller, error) {
	c, ok := r.runs.Get(id)
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	return c, nil
}

// GetOwned 获取属于指定用户的运行，管理员可访问任意运行
func (r *Registry) GetOwned(id, userID string, admin bool) (*Controller, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !admin && c.Owner() != userID {
		return nil, apperrors.ErrForbidden.WithDetail("run belongs to another user")
	}
	return c, nil
}

// Remove 删除运行
func (r *Registry) Remove(id string) bool {
	return r.runs.Remove(id)
}

// Len 当前保存的运行数
func (r *Registry) Len() int {
	return r.runs.Len()
}
