package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldCode        = "code"
	FieldRequestID   = "request_id"
	FieldReportID    = "report_id"
	FieldElement     = "element"
	FieldKey         = "key"
	FieldExpression  = "expression"
	FieldEntity      = "entity"
	FieldTextFilter  = "text_filter"
	FieldDuration    = "duration_ms"
	FieldRows        = "rows"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldQueue       = "queue"
	FieldSheetsRange = "sheets_range"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpDescribe = "describe"
	OpQuery    = "query"
	OpEvaluate = "evaluate"
	OpExport   = "export"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpRefresh  = "refresh"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithReport adds report and element fields
func (f LogFields) WithReport(reportID, element string) LogFields {
	f[FieldReportID] = reportID
	if element != "" {
		f[FieldElement] = element
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
