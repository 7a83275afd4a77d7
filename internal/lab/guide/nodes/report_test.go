package nodes

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

func TestFailureReport(t *testing.T) {
	models := []string{"a", "b"}
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "denied key",
			err:  errx.New(errx.RemoteFailure, genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "API key not valid."}, "guide model a failed"),
			want: []string{"403 PERMISSION_DENIED: API key not valid", "GEMINI_API_KEY is valid"},
		},
		{
			name: "unauthenticated pointer",
			err:  errx.New(errx.RemoteFailure, &genai.APIError{Code: 401, Message: "missing credentials"}, "guide model a failed"),
			want: []string{"401: missing credentials", "GEMINI_API_KEY"},
		},
		{
			name: "bad request",
			err:  errx.New(errx.RemoteFailure, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad field"}, "guide model a failed"),
			want: []string{"400 INVALID_ARGUMENT: bad field", "GUIDE_MODELS"},
		},
		{
			name: "server error",
			err:  errx.New(errx.RemoteFailure, genai.APIError{Code: 500, Status: "INTERNAL"}, "guide model a failed"),
			want: []string{"500 INTERNAL", "internal error"},
		},
		{
			name: "plain cause",
			err:  errx.New(errx.RemoteFailure, errors.New("connection refused"), "guide model a failed"),
			want: []string{"failed: connection refused.", "GEMINI_BASE_URL"},
		},
		{
			name: "untyped graph error",
			err:  errors.New("graph run failed"),
			want: []string{"graph run failed"},
		},
		{
			name: "model unavailable",
			err:  errx.New(errx.ModelUnavailable, nil, "none"),
			want: []string{"a, b", "GUIDE_MODELS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FailureReport(tt.err, models)
			if !strings.HasPrefix(got, replyPrefix) {
				t.Fatalf("report = %q, missing prefix", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("report = %q, missing %q", got, w)
				}
			}
		})
	}
}
