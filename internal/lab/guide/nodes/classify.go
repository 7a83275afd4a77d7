package nodes

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

// Classify maps a remote call failure to an error kind. Structured API
// errors win; the message heuristics cover errors wrapped as plain text.
func Classify(err error) errx.Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errx.RemoteTimeout
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := classifyAPIError(apiErr); ok {
			return kind
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		if kind, ok := classifyAPIError(*apiErrPtr); ok {
			return kind
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "is not supported"):
		return errx.ModelUnavailable
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "resource_exhausted"):
		return errx.QuotaExhausted
	case strings.Contains(msg, "deadline exceeded"):
		return errx.RemoteTimeout
	}
	return errx.RemoteFailure
}

func classifyAPIError(e genai.APIError) (errx.Kind, bool) {
	switch {
	case e.Code == 404 || e.Status == "NOT_FOUND":
		return errx.ModelUnavailable, true
	case e.Code == 429 || e.Status == "RESOURCE_EXHAUSTED":
		return errx.QuotaExhausted, true
	case e.Code == 504 || e.Status == "DEADLINE_EXCEEDED":
		return errx.RemoteTimeout, true
	}
	return "", false
}

// fallsBackOffline reports whether a terminal failure is transient enough to
// answer from the knowledge base instead of showing an error.
func fallsBackOffline(kind errx.Kind) bool {
	return kind == errx.QuotaExhausted || kind == errx.RemoteTimeout
}
