package log

import "expensebot/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldChatID      = "chat_id"
	FieldCommand     = "command"
	FieldPeriod      = "period"
	FieldSource      = "source"
	FieldDate        = "date"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldRecordID    = "record_id"
	FieldSheetsRef   = "sheets_ref"
	FieldCount       = "count"
)

// Component names
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentReport  = "report"
	ComponentImport  = "import"
	ComponentSheets  = "sheets"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
)

// Operation names
const (
	OpRecord   = "record"
	OpReport   = "report"
	OpImport   = "import"
	OpAppend   = "append"
	OpSync     = "sync"
	OpNotify   = "notify"
	OpParse    = "parse"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUpdate adds the chat, user and command of an incoming message.
func (f LogFields) WithUpdate(chatID, userID int64, command string) LogFields {
	f[FieldChatID] = chatID
	f[FieldUserID] = userID
	if command != "" {
		f[FieldCommand] = command
	}
	return f
}

func (f LogFields) WithRecord(r core.LedgerRecord) LogFields {
	f[FieldDate] = r.Date.String()
	f[FieldCategory] = string(r.Category)
	f[FieldDescription] = r.Description
	f[FieldAmount] = r.Amount.String()
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into slog key-value arguments.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
