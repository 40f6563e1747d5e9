package service

import "fmt"

// APIError carries an error code, human description and HTTP status
// through the service layer so handlers can map it onto the response.
type APIError struct {
	Code        string
	Description string
	Status      int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAPIError(code, desc string, status int) *APIError {
	return &APIError{Code: code, Description: desc, Status: status}
}
