package nrs

import (
	"fmt"

	"nrsnotify/internal/core"
)

// Request types sent as the requestType query parameter.
const (
	RequestGetTime                = "getTime"
	RequestGetAccountTransactions = "getAccountTransactions"
)

// TimeResponse is the getTime payload. Time is nil when the node did not send one.
type TimeResponse struct {
	Time *core.Timestamp `json:"time"`
}

// TransactionsResponse is the getAccountTransactions payload. Transactions is
// nil when the field was missing.
type TransactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
}

// AccountTransactionsRequest selects a page of an account's transactions
// with a timestamp at or after Timestamp.
type AccountTransactionsRequest struct {
	Account    string
	Timestamp  core.Timestamp
	FirstIndex int
	LastIndex  int
}

// errorPayload is what the node returns instead of a result.
type errorPayload struct {
	ErrorCode        *int   `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

// APIError is a node-reported failure.
type APIError struct {
	RequestType string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nrs %s error %d: %s", e.RequestType, e.Code, e.Description)
}
