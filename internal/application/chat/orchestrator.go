package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/intent"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/service"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
	"vidassist-api/pkg/tracer"
)

const (
	DefaultTurnTimeout           = 120 * time.Second
	DefaultMaxToolRounds         = 4
	DefaultMaxTranscriptSegments = 60

	eventBuffer = 32
)

// ModelSource 提供对话模型
type ModelSource interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// BackgroundRunner 尽力而为的后台任务
type BackgroundRunner interface {
	Go(ctx context.Context, task string, fn func(ctx context.Context) error)
}

// FinalMessageSink 接收本轮完整回复
type FinalMessageSink interface {
	RecordFinalMessage(ctx context.Context, msg *FinalMessage) error
}

// LogSink 只写日志的 FinalMessageSink
type LogSink struct{}

// maxLoggedContent 日志里保留的最终回复字符数
const maxLoggedContent = 2000

func (LogSink) RecordFinalMessage(ctx context.Context, msg *FinalMessage) error {
	tools := make([]string, 0, len(msg.Tools))
	for _, t := range msg.Tools {
		tools = append(tools, t.Name)
	}
	logger.Info(ctx, "chat final message",
		"flow", string(msg.Flow),
		"outcome", msg.Outcome,
		"content", truncateRunes(msg.Content, maxLoggedContent),
		"content_len", len(msg.Content),
		"tools", tools,
	)
	return nil
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Config 编排参数
type Config struct {
	TurnTimeout           time.Duration
	MaxToolRounds         int
	MaxTranscriptSegments int
	MaxFuzzyDistance      int
}

// Dependencies 编排器依赖；Details/Sessions/Sink 可为空
type Dependencies struct {
	Models      ModelSource
	Sessions    service.SessionStore
	Details     service.VideoDetailsProvider
	Transcripts TranscriptFetcher
	Titles      TitleGenerator
	Images      ImageGenerator
	Background  BackgroundRunner
	Sink        FinalMessageSink
}

// Orchestrator 对话编排器
type Orchestrator struct {
	cfg     Config
	deps    Dependencies
	matcher *intent.Matcher

	toolsNodeOnce sync.Once
	toolsNode     *compose.ToolsNode
	toolsNodeErr  error
}

// NewOrchestrator 创建编排器
func NewOrchestrator(cfg Config, deps Dependencies) *Orchestrator {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.MaxTranscriptSegments <= 0 {
		cfg.MaxTranscriptSegments = DefaultMaxTranscriptSegments
	}
	if deps.Sink == nil {
		deps.Sink = LogSink{}
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		matcher: intent.NewMatcher(intent.TranscriptKeywords, cfg.MaxFuzzyDistance),
	}
}

// streamPlan 选定流程后要发给模型的内容
type streamPlan struct {
	flow     Flow
	model    model.BaseChatModel
	messages []*schema.Message
	tools    []tool.BaseTool
}

// Start 开始一轮对话
//
// 在第一个字节写出之前的失败（缺少上下文、模型拒绝建立流等）以 ClassifiedError 同步返回，
// 便于调用方返回非 2xx；之后的失败以 error 事件出现在流中。
func (o *Orchestrator) Start(ctx context.Context, req *Request) (*Turn, error) {
	started := time.Now()

	resourceID, err := ResolveContext(ctx, o.deps.Sessions, req.SessionID, req.ResourceID)
	if err != nil {
		return nil, o.reject(ctx, "", started, err)
	}
	ctx = logger.WithContext(ctx, logger.ResourceIDKey, resourceID)
	if req.SessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, req.SessionID)
	}

	details := o.videoDetails(ctx, resourceID)
	facts := factsFor(resourceID, details)
	question := LatestUserText(req.Messages)
	scope := turnScope{ownerID: req.OwnerID, videoID: resourceID, details: details}

	turnCtx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	turnCtx, span := tracer.Start(turnCtx, "chat.Orchestrator.Turn", trace.WithAttributes(
		attribute.String("resource_id", resourceID),
	))

	var plan *streamPlan
	if o.matcher.Match(question) {
		plan, err = o.transcriptPlan(turnCtx, scope, question, facts)
		if err != nil {
			return nil, o.abort(ctx, turnCtx, cancel, span, FlowTranscript, started, err)
		}
	}
	if plan == nil {
		plan, err = o.defaultPlan(turnCtx, scope, facts, req.Messages)
		if err != nil {
			return nil, o.abort(ctx, turnCtx, cancel, span, FlowDefault, started, err)
		}
	}
	span.SetAttributes(attribute.String("flow", string(plan.flow)))

	stream, err := plan.model.Stream(turnCtx, plan.messages)
	if err != nil {
		return nil, o.abort(ctx, turnCtx, cancel, span, plan.flow, started, err)
	}

	events := make(chan Event, eventBuffer)
	final := &FinalMessage{OwnerID: req.OwnerID, SessionID: req.SessionID, ResourceID: resourceID, Flow: plan.flow}
	go func() {
		defer span.End()
		defer cancel()
		defer close(events)
		o.run(ctx, turnCtx, plan, stream, events, final)
		o.finish(ctx, plan.flow, started, final)
	}()

	return &Turn{Flow: plan.flow, ResourceID: resourceID, Events: events}, nil
}

// transcriptPlan 字幕流程；返回 (nil, nil) 表示退回默认流程
func (o *Orchestrator) transcriptPlan(ctx context.Context, scope turnScope, question string, facts videoFacts) (*streamPlan, error) {
	base, err := o.deps.Models.Default(ctx)
	if err != nil {
		return nil, err
	}

	res, err := o.deps.Transcripts.Get(ctx, scope.ownerID, scope.videoID, true)
	switch {
	case err == nil && len(res.Transcript) > 0:
		return &streamPlan{
			flow:  FlowTranscript,
			model: base,
			messages: []*schema.Message{
				schema.SystemMessage(transcriptSystemPrompt(facts)),
				schema.UserMessage(transcriptUserPrompt(question, res.Transcript, o.cfg.MaxTranscriptSegments)),
			},
		}, nil
	case err == nil || apperrors.IsKind(err, apperrors.KindResourceUnavailable):
		logger.Info(ctx, "transcript unavailable, answering without it")
		return &streamPlan{
			flow:  FlowTranscriptUnavailable,
			model: base,
			messages: []*schema.Message{
				schema.SystemMessage(unavailableSystemPrompt(facts)),
				schema.UserMessage(unavailableUserPrompt(question, facts)),
			},
		}, nil
	case isProviderFailure(err):
		return nil, err
	default:
		logger.Warn(ctx, "transcript flow failed, falling back to default flow", "error", err.Error())
		return nil, nil
	}
}

func isProviderFailure(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindProviderOverloaded, apperrors.KindProviderRateLimited, apperrors.KindProviderTimeout:
		return true
	}
	return false
}

// defaultPlan 通用对话，模型可调用工具
func (o *Orchestrator) defaultPlan(ctx context.Context, scope turnScope, facts videoFacts, history []entity.ChatMessage) (*streamPlan, error) {
	base, err := o.deps.Models.Default(ctx)
	if err != nil {
		return nil, err
	}

	tools := []tool.BaseTool{
		&fetchTranscriptTool{scope: scope, fetcher: o.deps.Transcripts},
		&generateTitleTool{scope: scope, titles: o.deps.Titles},
		&generateImageTool{scope: scope, images: o.deps.Images},
	}
	toolInfos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		toolInfos = append(toolInfos, info)
	}

	chatModel := base
	if tcm, ok := base.(model.ToolCallingChatModel); ok {
		if withTools, err := tcm.WithTools(toolInfos); err == nil && withTools != nil {
			chatModel = withTools
		}
	} else {
		logger.Warn(ctx, "chat model does not support tool calling, tools disabled")
		tools = nil
	}

	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(defaultSystemPrompt(facts)))
	msgs = append(msgs, historyMessages(history)...)

	return &streamPlan{flow: FlowDefault, model: chatModel, messages: msgs, tools: tools}, nil
}

func historyMessages(history []entity.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Text())
		if text == "" {
			continue
		}
		switch m.Role {
		case entity.ChatRoleUser:
			out = append(out, schema.UserMessage(text))
		case entity.ChatRoleAssistant:
			out = append(out, schema.AssistantMessage(text, nil))
		}
	}
	return out
}

// run 消费模型流并在需要时执行工具，直到模型不再调用工具或轮数用尽
func (o *Orchestrator) run(reqCtx, turnCtx context.Context, plan *streamPlan, stream *schema.StreamReader[*schema.Message], events chan<- Event, final *FinalMessage) {
	var content strings.Builder
	msgs := plan.messages

	for round := 0; ; round++ {
		assistant, err := o.pump(reqCtx, stream, events, &content)
		if err != nil {
			o.fail(reqCtx, turnCtx, events, final, err)
			return
		}
		if len(assistant.ToolCalls) == 0 || len(plan.tools) == 0 {
			break
		}
		if round >= o.cfg.MaxToolRounds {
			logger.Warn(turnCtx, "tool round limit reached", "rounds", round)
			break
		}

		results, err := o.invokeTools(turnCtx, plan.tools, assistant)
		if err != nil {
			o.fail(reqCtx, turnCtx, events, final, err)
			return
		}
		for _, inv := range toolInvocations(assistant, results) {
			final.Tools = append(final.Tools, inv)
			inv := inv
			if !send(reqCtx, events, Event{Type: EventTool, Tool: &inv}) {
				o.fail(reqCtx, turnCtx, events, final, reqCtx.Err())
				return
			}
		}

		msgs = append(msgs, assistant)
		msgs = append(msgs, results...)
		stream, err = plan.model.Stream(turnCtx, msgs)
		if err != nil {
			o.fail(reqCtx, turnCtx, events, final, err)
			return
		}
	}

	final.Content = content.String()
	final.Outcome = "success"
	send(reqCtx, events, Event{Type: EventDone, Flow: plan.flow})
}

// pump 转发增量文本并拼出完整的 assistant 消息
func (o *Orchestrator) pump(reqCtx context.Context, stream *schema.StreamReader[*schema.Message], events chan<- Event, content *strings.Builder) (*schema.Message, error) {
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.Content == "" {
			continue
		}
		content.WriteString(chunk.Content)
		if !send(reqCtx, events, Event{Type: EventDelta, Delta: chunk.Content}) {
			return nil, reqCtx.Err()
		}
	}

	if len(chunks) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	return schema.ConcatMessages(chunks)
}

func (o *Orchestrator) invokeTools(ctx context.Context, tools []tool.BaseTool, assistant *schema.Message) ([]*schema.Message, error) {
	toolsNode, err := o.getToolsNode()
	if err != nil {
		return nil, err
	}
	return toolsNode.Invoke(ctx, assistant, compose.WithToolList(tools...))
}

// getToolsNode 懒加载工具执行节点；具体工具在调用时通过 WithToolList 传入
func (o *Orchestrator) getToolsNode() (*compose.ToolsNode, error) {
	o.toolsNodeOnce.Do(func() {
		o.toolsNode, o.toolsNodeErr = compose.NewToolNode(context.Background(), &compose.ToolsNodeConfig{
			Tools:               nil,
			ExecuteSequentially: true,
			UnknownToolsHandler: func(_ context.Context, name, _ string) (string, error) {
				return toolJSON(map[string]any{"error": fmt.Sprintf("unknown tool: %s", strings.TrimSpace(name))}), nil
			},
		})
	})
	return o.toolsNode, o.toolsNodeErr
}

func toolInvocations(assistant *schema.Message, results []*schema.Message) []ToolInvocation {
	calls := make(map[string]schema.ToolCall, len(assistant.ToolCalls))
	for _, call := range assistant.ToolCalls {
		calls[call.ID] = call
	}
	out := make([]ToolInvocation, 0, len(results))
	for _, r := range results {
		call := calls[r.ToolCallID]
		result := json.RawMessage(r.Content)
		if !json.Valid(result) {
			result, _ = json.Marshal(r.Content)
		}
		out = append(out, ToolInvocation{
			CallID: r.ToolCallID,
			Name:   call.Function.Name,
			Input:  call.Function.Arguments,
			Result: result,
		})
	}
	return out
}

// fail 把流中的失败分类后以 error 事件发出；客户端已断开时只记录
func (o *Orchestrator) fail(reqCtx, turnCtx context.Context, events chan<- Event, final *FinalMessage, err error) {
	if reqCtx.Err() != nil {
		final.Outcome = "canceled"
		logger.Info(reqCtx, "chat turn canceled by client")
		return
	}
	classified := errclass.Observe(o.adapt(turnCtx, err))
	final.Outcome = string(classified.Kind)
	logger.Error(reqCtx, "chat turn failed", err, "kind", string(classified.Kind))
	send(reqCtx, events, Event{Type: EventError, Error: &classified})
}

// adapt 超时优先判定为 ProviderTimeout，其余交给提供方适配器
func (o *Orchestrator) adapt(turnCtx context.Context, err error) error {
	if errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.KindProviderTimeout, errclass.MsgProviderTimeout)
	}
	return errclass.FromProvider(err)
}

// reject 流程开始前的失败
func (o *Orchestrator) reject(ctx context.Context, flow Flow, started time.Time, err error) error {
	classified := errclass.Observe(err)
	logger.Warn(ctx, "chat turn rejected", "kind", string(classified.Kind), "error", err.Error())
	o.observe(flow, string(classified.Kind), started)
	return classified
}

func (o *Orchestrator) abort(ctx, turnCtx context.Context, cancel context.CancelFunc, span trace.Span, flow Flow, started time.Time, err error) error {
	adapted := o.adapt(turnCtx, err)
	tracer.RecordError(span, adapted)
	span.End()
	cancel()
	return o.reject(ctx, flow, started, adapted)
}

func (o *Orchestrator) finish(ctx context.Context, flow Flow, started time.Time, final *FinalMessage) {
	o.observe(flow, final.Outcome, started)
	if o.deps.Background == nil {
		_ = o.deps.Sink.RecordFinalMessage(context.WithoutCancel(ctx), final)
		return
	}
	o.deps.Background.Go(ctx, "chat-final-message", func(ctx context.Context) error {
		return o.deps.Sink.RecordFinalMessage(ctx, final)
	})
}

func (o *Orchestrator) observe(flow Flow, outcome string, started time.Time) {
	if flow == "" {
		flow = "none"
	}
	metrics.ChatTurnsTotal.WithLabelValues(string(flow), outcome).Inc()
	metrics.ChatTurnDuration.WithLabelValues(string(flow)).Observe(time.Since(started).Seconds())
}

// videoDetails 尽力获取视频信息，失败只记日志
func (o *Orchestrator) videoDetails(ctx context.Context, videoID string) *entity.VideoDetails {
	if o.deps.Details == nil {
		return nil
	}
	details, err := o.deps.Details.GetVideoDetails(ctx, videoID)
	if err != nil {
		logger.Warn(ctx, "video details unavailable", "error", err.Error())
		return nil
	}
	return details
}

// send 在客户端仍在线时投递事件
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
