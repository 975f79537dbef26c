package events

import (
	"net/http"
	"time"
)

// HTTPStart is published once the request id is assigned.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published when the response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is published before an operation runs. Batched is set for
// each operation of a batched POST.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
	Batched       bool
}

// GraphQLFinish carries the execution errors of one operation. Parse errors
// never reach execution and are not reported here.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Batched       bool
	Errors        []error
	Duration      time.Duration
}
