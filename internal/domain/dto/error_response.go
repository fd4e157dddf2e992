package dto

import "time"

// ErrorResponse is the JSON error envelope used for validation failures,
// rate limiting and recovered panics.
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid ticker"`
	ErrorDetails string    `json:"error,omitempty" example:"ticker must match ^[A-Z0-9^][A-Z0-9.\\-^=]{0,14}$"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse stamped with the current UTC time.
// err is optional; when present its message becomes ErrorDetails.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Message: message, Timestamp: time.Now().UTC()}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}

// Error implements the error interface.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}
