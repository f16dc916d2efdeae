// Package chat 编排单轮对话：解析视频上下文、识别意图、走字幕流程或带工具的默认流程，并以增量事件流输出。
package chat

import (
	"encoding/json"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/domain/entity"
)

// Flow 本轮采用的流程
type Flow string

const (
	FlowTranscript            Flow = "transcript"
	FlowTranscriptUnavailable Flow = "transcript_unavailable"
	FlowDefault               Flow = "default"
)

// Request 一轮对话请求
type Request struct {
	OwnerID    string
	SessionID  string
	ResourceID string
	Messages   []entity.ChatMessage
}

// EventType 流事件类型
type EventType string

const (
	EventDelta EventType = "delta"
	EventTool  EventType = "tool"
	EventError EventType = "error"
	EventDone  EventType = "done"
)

// Event 流事件；按 Type 只填对应字段
type Event struct {
	Type  EventType                 `json:"type"`
	Delta string                    `json:"delta,omitempty"`
	Tool  *ToolInvocation           `json:"tool,omitempty"`
	Error *errclass.ClassifiedError `json:"error,omitempty"`
	Flow  Flow                      `json:"flow,omitempty"`
}

// ToolInvocation 单次工具调用，只存在于本轮
type ToolInvocation struct {
	CallID string          `json:"callId"`
	Name   string          `json:"name"`
	Input  string          `json:"input,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Turn 已开始的一轮对话；Events 在本轮结束后关闭
type Turn struct {
	Flow       Flow
	ResourceID string
	Events     <-chan Event
}

// FinalMessage 本轮结束后组装出的完整回复，用于观测
type FinalMessage struct {
	OwnerID    string           `json:"owner_id"`
	SessionID  string           `json:"session_id,omitempty"`
	ResourceID string           `json:"resource_id"`
	Flow       Flow             `json:"flow"`
	Content    string           `json:"content"`
	Tools      []ToolInvocation `json:"tools,omitempty"`
	Outcome    string           `json:"outcome"`
}
