package log

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldGroupID       = "group_id"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "transaction_type"
	FieldAmount        = "amount"
	FieldRPCMethod     = "rpc_method"
	FieldRPCCode       = "rpc_code"
)

const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentAuth        = "auth"
	ComponentTransaction = "transaction"
	ComponentWorker      = "worker"
	ComponentRecurring   = "recurring"
	ComponentReceipt     = "receipt"
	ComponentReports     = "reports"
	ComponentSecurity    = "security"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpAnalyze = "analyze"
	OpRender  = "render"
)
