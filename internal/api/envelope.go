// Package api defines the JSON envelopes shared by the HTTP handlers and the Go client.
//
// Two conventions coexist on the wire:
//   - auth routes answer {"status": "success"|"fail"|"error", "data"|"message"}
//   - task routes answer {"success": bool, "data": ..., "error": string|null}
package api

// Auth envelope status values.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// StatusResponse is the auth-route envelope.
type StatusResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// UserData wraps a user payload inside StatusResponse.Data.
type UserData[T any] struct {
	User T `json:"user"`
}

// TaskResponse is the task-route envelope.
// Error is a pointer so that success responses serialize "error": null.
type TaskResponse struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *string     `json:"error"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
}

// Success builds a successful auth envelope.
func Success(data any) StatusResponse {
	return StatusResponse{Status: StatusSuccess, Data: data}
}

// Fail builds a client-error auth envelope.
func Fail(message string) StatusResponse {
	return StatusResponse{Status: StatusFail, Message: message}
}

// Error builds a server-error auth envelope.
func Error(message string) StatusResponse {
	return StatusResponse{Status: StatusError, Message: message}
}

// TaskOK builds a successful task envelope.
func TaskOK(data any) TaskResponse {
	return TaskResponse{Success: true, Data: data}
}

// TaskErr builds a failed task envelope.
func TaskErr(message string) TaskResponse {
	return TaskResponse{Success: false, Data: nil, Error: &message}
}
