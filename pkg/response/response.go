package response

import "fulfillment/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`  // machine readable error code
	Field      string      `json:"field,omitempty"` // offending input field for validation errors
}

// Page wraps one page of a listing
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paged returns a success response for a paginated listing
func Paged(statusCode int, items interface{}, total int64, p pagination.Params) Response {
	return Success(statusCode, Page{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(total),
	})
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithCode returns an error response carrying the domain error code and field
func ErrorWithCode(statusCode int, err, code, field string) Response {
	r := Error(statusCode, err)
	r.Code = code
	r.Field = field
	return r
}
