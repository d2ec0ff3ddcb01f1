package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldMarketID   = "marketID"
	FieldEntryID    = "entryID"
	FieldToolID     = "toolID"
	FieldPage       = "page"
	FieldSessionID  = "sessionID"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventSyncStart      = "sync_start"
	EventSyncPage       = "sync_page"
	EventSyncSuccess    = "sync_success"
	EventSyncFailure    = "sync_failure"
	EventSyncCanceled   = "sync_canceled"
	EventPromoteSuccess = "promote_success"
	EventPromoteFailure = "promote_failure"
	EventConfigReload   = "config_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func MarketIDField(id uint64) zap.Field {
	return zap.Uint64(FieldMarketID, id)
}

func EntryIDField(id uint64) zap.Field {
	return zap.Uint64(FieldEntryID, id)
}

func ToolIDField(id uint64) zap.Field {
	return zap.Uint64(FieldToolID, id)
}

func PageField(page int) zap.Field {
	return zap.Int(FieldPage, page)
}

func SessionIDField(sessionID string) zap.Field {
	return zap.String(FieldSessionID, sessionID)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
