package log

// Field names shared by the request-logging middleware so every access
// log line carries the same keys.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
)

// ComponentApp is the default component for loggers without a narrower
// scope; packages pass their own name to WithComponent.
const ComponentApp = "app"
