// Package service 定义跨层共享的调用上下文约定
package service

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

// CallInfo 一次大模型调用的标签，用于指标、追踪与日志
type CallInfo struct {
	// Step 生成步骤，如 outline_generate、chapter_generate
	Step     string
	Provider string
}

type callInfoKey struct{}

// WithCall 在上下文中记录本次调用的步骤与 Provider，空值沿用外层已有的标签
func WithCall(ctx context.Context, step, provider string) context.Context {
	info := callInfo(ctx)
	if s := strings.TrimSpace(step); s != "" {
		info.Step = s
	}
	if p := strings.TrimSpace(provider); p != "" {
		info.Provider = p
	}
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallFromContext 读取调用标签，缺失的字段返回 "unknown"
func CallFromContext(ctx context.Context) CallInfo {
	info := callInfo(ctx)
	if info.Step == "" {
		info.Step = unknownLabel
	}
	if info.Provider == "" {
		info.Provider = unknownLabel
	}
	return info
}

func callInfo(ctx context.Context) CallInfo {
	if ctx == nil {
		return CallInfo{}
	}
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	return info
}
