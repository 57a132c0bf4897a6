package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldBudgetID      = "budget_id"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "transaction_type"
	FieldAmount        = "amount"
	FieldCategoryID    = "category_id"
	FieldHealthScore   = "health_score"
	FieldAlertCount    = "alert_count"
	FieldConfidence    = "confidence"
	FieldSuggestion    = "suggestion"
	FieldMatchCount    = "match_count"
	FieldPeriodStart   = "period_start"
	FieldPeriodEnd     = "period_end"
	FieldCacheHit      = "cache_hit"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentBudget    = "budget"
	ComponentDuplicate = "duplicate"
	ComponentService   = "service"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpSnapshot = "snapshot"
	OpRollover = "rollover"
	OpDetect   = "detect_duplicates"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message; nil errors are ignored
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

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithTransaction adds transaction identity fields
func (f LogFields) WithTransaction(id, txType string, amount float64, categoryID string) LogFields {
	f[FieldTransactionID] = id
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	f[FieldCategoryID] = categoryID
	return f
}

// WithSnapshot adds snapshot summary fields
func (f LogFields) WithSnapshot(budgetID string, score, alerts int, cacheHit bool) LogFields {
	f[FieldBudgetID] = budgetID
	f[FieldHealthScore] = score
	f[FieldAlertCount] = alerts
	f[FieldCacheHit] = cacheHit
	return f
}

// WithDuplicate adds duplicate-check outcome fields
func (f LogFields) WithDuplicate(confidence int, suggestion string, matches int) LogFields {
	f[FieldConfidence] = confidence
	f[FieldSuggestion] = suggestion
	f[FieldMatchCount] = matches
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
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
