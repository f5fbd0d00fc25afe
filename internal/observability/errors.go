package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/httpx"
)

const (
	ErrorNetwork   = "network"
	ErrorParsing   = "parsing"
	ErrorRateLimit = "rate_limit"
	ErrorNotFound  = "not_found"
	ErrorData      = "data"
	ErrorStore     = "store"
	ErrorConfig    = "config"
	ErrorUnknown   = "unknown"
)

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status == http.StatusTooManyRequests:
			return ErrorRateLimit
		case fe.Status == http.StatusNotFound:
			return ErrorNotFound
		default:
			return ErrorNetwork
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorNetwork
	}
	return ErrorUnknown
}

// ClassifyError maps any pipeline error onto a metric label.
func ClassifyError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	if kind := ClassifyFetchError(err); kind != ErrorUnknown {
		return kind
	}

	switch apperr.TypeOf(err) {
	case apperr.ErrTypeConfig:
		return ErrorConfig
	case apperr.ErrTypeData, apperr.ErrTypeInvalidInput:
		return ErrorData
	case apperr.ErrTypeNotFound:
		return ErrorNotFound
	case apperr.ErrTypePersistence, apperr.ErrTypeConflict:
		return ErrorStore
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "decode failed") ||
		strings.Contains(msg, "unmarshal") ||
		strings.Contains(msg, "invalid character") {
		return ErrorParsing
	}
	if apperr.Is(err, apperr.ErrTypeTransport) {
		return ErrorNetwork
	}
	return ErrorUnknown
}
