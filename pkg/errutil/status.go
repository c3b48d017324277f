package errutil

import "net/http"

type CoreStatus string

const (
	StatusBadRequest          CoreStatus = "bad_request"
	StatusUnauthorized        CoreStatus = "unauthorized"
	StatusForbidden           CoreStatus = "forbidden"
	StatusNotFound            CoreStatus = "not_found"
	StatusConflict            CoreStatus = "conflict"
	StatusValidationFailed    CoreStatus = "validation_failed"
	StatusTooManyRequests     CoreStatus = "too_many_requests"
	StatusUnprocessableEntity CoreStatus = "unprocessable_entity"
	StatusInternal            CoreStatus = "internal"
	StatusBadGateway          CoreStatus = "bad_gateway"
	StatusTimeout             CoreStatus = "timeout"
	StatusNotImplemented      CoreStatus = "not_implemented"
	StatusUnknown             CoreStatus = "unknown"
)

// HTTPStatus converts the CoreStatus to its closest HTTP status code equivalent.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusValidationFailed:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusBadGateway:
		return http.StatusBadGateway
	case StatusNotImplemented:
		return http.StatusNotImplemented
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
