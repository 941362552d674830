package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/critiqo/pkg/errors"
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 1 << 20

// DownstreamErrorResponse covers the error bodies the portal API emits:
// {"error":{"code","message"}} and {"success":false,"message":"..."}.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// StatusError is a non-2xx response. Body holds the raw response text.
type StatusError struct {
	Service string
	Status  int
	Code    string
	Message string
	Body    string
	Err     error
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, msg)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into a *StatusError whose chain carries the matching AppError.
//
// The caller should only invoke this when resp.StatusCode indicates an error.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &StatusError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("failed to read body: %v", err),
			Err:     apperrors.FromStatus(resp.StatusCode),
		}
	}

	se := &StatusError{
		Service: serviceName,
		Status:  resp.StatusCode,
		Body:    string(bodyBytes),
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil {
		switch {
		case downstream.Error != nil:
			se.Code = downstream.Error.Code
			se.Message = downstream.Error.Message
		case downstream.Message != "":
			se.Message = downstream.Message
		}
	}

	se.Err = mapDownstreamError(resp.StatusCode, se.Code, se.Message, serviceName)
	return se
}

// mapDownstreamError translates a status and error code into an AppError.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := serviceName
	if message != "" {
		qualifiedMsg = fmt.Sprintf("%s: %s", serviceName, message)
	}

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusGone:
		return apperrors.Gone(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return apperrors.Internal(fmt.Errorf("%w: %s server error (%d/%s): %s", apperrors.ErrInternal, serviceName, status, code, message))
	default:
		if code == "" {
			code = "HTTP_" + fmt.Sprint(status)
		}
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
