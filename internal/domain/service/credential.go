package service

import (
	"context"
	"strings"
)

type credentialCtxKey struct{}

// WithCredential 将调用方提供的模型凭证放入上下文，空值不写入
func WithCredential(ctx context.Context, credential string) context.Context {
	c := strings.TrimSpace(credential)
	if c == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialCtxKey{}, c)
}

// CredentialFromContext 读取上下文中的模型凭证
func CredentialFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	c, ok := ctx.Value(credentialCtxKey{}).(string)
	return c, ok && c != ""
}
