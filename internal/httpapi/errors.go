// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/skillup/skillup/pkg/errutil"
)

// errCode extracts the error taxonomy code, or "" for untagged errors.
func errCode(err error) string {
	return errutil.Code(err)
}

// retryIn extracts the backoff delay the auth service attached to a
// throttled failure, or zero when there is none.
func retryIn(err error) time.Duration {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0
	}
	d, _ := oopsErr.Context()["retry_in"].(time.Duration)
	return d
}

// statusFor maps service error codes onto HTTP status codes. Untagged
// errors are treated as internal.
func statusFor(code string) int {
	switch code {
	case "AUTH_VALIDATION", "AUTH_EMPTY_PASSWORD", "PROGRESS_INVALID_SCORE":
		return http.StatusBadRequest
	case "AUTH_DUPLICATE_USERNAME":
		return http.StatusConflict
	case "AUTH_INVALID_CREDENTIALS", "SESSION_INVALID":
		return http.StatusUnauthorized
	case "AUTH_ACCOUNT_LOCKED":
		return http.StatusLocked
	case "AUTH_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for an error. Internal
// details never leave the server; the full error goes to the log.
func messageFor(code string, err error) string {
	switch code {
	case "AUTH_VALIDATION", "AUTH_EMPTY_PASSWORD", "AUTH_DUPLICATE_USERNAME", "PROGRESS_INVALID_SCORE":
		return err.Error()
	case "AUTH_INVALID_CREDENTIALS":
		return "invalid credentials"
	case "SESSION_INVALID":
		return "invalid or expired session"
	case "AUTH_ACCOUNT_LOCKED":
		return "account temporarily locked"
	case "AUTH_UNAVAILABLE":
		return "service temporarily unavailable, retry later"
	default:
		return "internal error"
	}
}

// writeAuthError logs err and writes its HTTP rendering.
func (h *Handler) writeAuthError(w http.ResponseWriter, operation string, err error) {
	code := errCode(err)
	status := statusFor(code)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"operation", operation,
			"code", code,
			"error", err,
		)
	} else {
		h.logger.Debug("request rejected",
			"operation", operation,
			"code", code,
			"error", err,
		)
	}

	outcome := "error"
	if status < http.StatusInternalServerError {
		outcome = "rejected"
	}
	h.countAuth(operation, outcome)

	body := map[string]string{"error": messageFor(code, err)}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	} else if d := retryIn(err); d > 0 {
		// Throttled logins and lockouts carry their backoff on the error.
		secs := int((d + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	h.writeJSON(w, status, body)
}
