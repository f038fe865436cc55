// Package eino 注册 Eino 全局回调，为所有大模型调用记录指标与追踪
package eino

import (
	"context"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmctx "ebook-studio-api/internal/domain/service"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/metrics"
)

var registerOnce sync.Once

// Init 进程内注册一次全局 ChatModel 回调，之后所有 eino 调用都会上报指标与 span
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}

// startTimeKey 保存调用开始时间，OnEnd/OnError 据此计算耗时
type startTimeKey struct{}

// modelKey 保存 OnStart 时解析到的模型名，错误回调中没有输出配置可用
type modelKey struct{}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			call := llmctx.CallFromContext(ctx)
			modelName := modelNameFromInput(input)
			ctx = context.WithValue(ctx, modelKey{}, modelName)

			attrs := []attribute.KeyValue{
				attribute.String("ebook.step", call.Step),
				attribute.String("llm.provider", call.Provider),
				attribute.String("llm.model", modelName),
			}
			if runID, ok := ctx.Value(logger.RunIDKey).(string); ok && runID != "" {
				attrs = append(attrs, attribute.String("ebook.run_id", runID))
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			call := llmctx.CallFromContext(ctx)
			modelName := modelNameFromOutput(output)
			if modelName == "" {
				modelName = modelFromContext(ctx)
			}

			metrics.LLMCallTotal.WithLabelValues(call.Step, call.Provider, modelName, "success").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(call.Step, call.Provider, modelName).Observe(d)
			}

			span := trace.SpanFromContext(ctx)
			if output != nil && output.TokenUsage != nil {
				prompt := output.TokenUsage.PromptTokens
				completion := output.TokenUsage.CompletionTokens
				metrics.LLMTokensUsed.WithLabelValues(call.Step, call.Provider, modelName, "prompt").Add(float64(prompt))
				metrics.LLMTokensUsed.WithLabelValues(call.Step, call.Provider, modelName, "completion").Add(float64(completion))
				span.SetAttributes(
					attribute.Int("llm.prompt_tokens", prompt),
					attribute.Int("llm.completion_tokens", completion),
				)
				logger.Debug(ctx, "llm call finished",
					"step", call.Step,
					"model", modelName,
					"prompt_tokens", prompt,
					"completion_tokens", completion,
				)
			}
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			call := llmctx.CallFromContext(ctx)
			modelName := modelFromContext(ctx)

			metrics.LLMCallTotal.WithLabelValues(call.Step, call.Provider, modelName, "error").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(call.Step, call.Provider, modelName).Observe(d)
			}

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelFromContext(ctx context.Context) string {
	name, _ := ctx.Value(modelKey{}).(string)
	return name
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
