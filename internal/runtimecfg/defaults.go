package runtimecfg

import "time"

const (
	ThreadDefaultProvider          = "ollama"
	ThreadDefaultModelType         = "qwen3:8b"
	ThreadDefaultMaxTokens         = 8192
	ThreadDefaultTemperature       = 0.7
	ThreadDefaultMaxToolIterations = 20
)

const (
	WebChannelDefaultAddr       = "127.0.0.1:9587"
	WebChannelShutdownTimeout   = 5 * time.Second
	WebChannelMaxRequestBytes   = 1 << 20
	WebChannelReadHeaderTimeout = 10 * time.Second
	WebChannelUserIDHeader      = "X-User-Id"
	WebChannelThreadIDHeader    = "X-Thread-Id"
	WebChannelMCPSSEPath        = "/mcpServer"
	WebChannelMCPMessagePath    = "/mcpMessage"
	MCPServerName               = "notebot"
	MCPServerVersion            = "0.1.0"
	CLIChannelPrompt            = "> "
	CLIChannelCancelCommand     = "/cancel"
)

const (
	PromptTimeFormat = "2006-01-02 15:04 (Monday)"
	PromptAnonymous  = "anonymous"
)

const (
	GraphEventBufferSize = 16
	GraphCancelNotice    = "The user cancelled the operation. Stop the current task and give a short summary of what was done."
)

const (
	StreamToolCallOpen   = "<tool_call>"
	StreamToolCallClose  = "</tool_call>"
	StreamToolCallSep    = "__TOOLCALL__"
	StreamAskHumanOpen   = "<ask_human_input>"
	StreamAskHumanClose  = "</ask_human_input>"
	StreamThinkOpen      = "<think>"
	StreamThinkClose     = "</think>"
	StreamFrameTypeText  = "text"
	StreamFrameTypeTool  = "tool_call"
	StreamFrameTypeAsk   = "ask_human"
	StreamFrameTypeError = "error"
)

const (
	CheckpointDefaultDriver   = "sqlite"
	CheckpointDefaultFileName = "notebot.db"
	CheckpointDirName         = "threads"
	CheckpointRedisKeyPrefix  = "notebot:checkpoint:"
)

const (
	ToolResultMaxChars = 100000
)

const (
	ToolFetchHTTPTimeout     = 15 * time.Second
	ToolFetchMaxReadBytes    = 10 * 1024 * 1024
	ToolFetchMaxContentChars = 2000
	ToolFetchUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

const (
	NotesCategoryReminders = "Reminders"
	NotesCategoryDaily     = "Daily Notes"
	NotesDefaultPriority   = 2
)

const (
	ProviderSDKMaxRetries      = 2
	AnthropicFallbackMaxTokens = 1024
)
