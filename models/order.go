package models

// Order represents a single promotion order progressing through the lifecycle
type Order struct {
	ID           string        `json:"id"`
	PayerAddress string        `json:"payer_address"`
	ServiceCode  ServiceCode   `json:"service_code"`
	Requirement  string        `json:"requirement"`
	Chain        string        `json:"chain"`
	Price        float64       `json:"price"`
	State        OrderState    `json:"state"`
	History      []StateChange `json:"history"`
}

// WorkflowState is the snapshot exposed through the workflow state query
type WorkflowState struct {
	OrderID     string     `json:"order_id"`
	State       OrderState `json:"state"`
	PaymentDone bool       `json:"payment_done"`
	Published   bool       `json:"published"`
}

// Result is the outcome of processing one order command end to end
type Result struct {
	Success bool       `json:"success"`
	OrderID string     `json:"order_id,omitempty"`
	Status  string     `json:"status,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries the failure code and message of an unsuccessful Result
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
