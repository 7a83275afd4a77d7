package nodes

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

const replyPrefix = "My sensors are recalibrating! "

// Remediation is the visible reply text for a failure of the given kind.
func Remediation(kind errx.Kind, models []string) string {
	switch kind {
	case errx.ConfigurationMismatch:
		return replyPrefix + "The online lab guide is not set up yet: add a GEMINI_API_KEY to ask about this experiment."
	case errx.ModelUnavailable:
		return replyPrefix + fmt.Sprintf("None of the guide models (%s) is available for this key. Check GUIDE_MODELS.", strings.Join(models, ", "))
	case errx.InvalidCommand:
		return replyPrefix + "I could not understand that question. Try asking it another way."
	}
	return replyPrefix + "The online lab guide failed. Check the GEMINI_API_KEY and GEMINI_BASE_URL settings."
}

// FailureReport is the visible reply for err. A remote failure names its
// cause verbatim followed by a hint chosen from the API status.
func FailureReport(err error, models []string) string {
	kind := errx.KindOf(err)
	if kind == "" {
		kind = errx.RemoteFailure
	}
	if kind != errx.RemoteFailure || err == nil {
		return Remediation(kind, models)
	}
	return fmt.Sprintf("%sThe online lab guide failed: %s. %s", replyPrefix, failureCause(err), failureHint(err))
}

func apiErrorOf(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func failureCause(err error) string {
	if apiErr, ok := apiErrorOf(err); ok {
		msg := strings.TrimRight(strings.TrimSpace(apiErr.Message), ".")
		switch {
		case apiErr.Status != "" && msg != "":
			return fmt.Sprintf("%d %s: %s", apiErr.Code, apiErr.Status, msg)
		case msg != "":
			return fmt.Sprintf("%d: %s", apiErr.Code, msg)
		default:
			return fmt.Sprintf("%d %s", apiErr.Code, apiErr.Status)
		}
	}
	var ae *errx.AppError
	if errors.As(err, &ae) && ae.Err != nil {
		err = ae.Err
	}
	return strings.TrimRight(err.Error(), ".")
}

func failureHint(err error) string {
	apiErr, ok := apiErrorOf(err)
	if !ok {
		return "Check your network connection and GEMINI_BASE_URL."
	}
	switch {
	case apiErr.Code == 401 || apiErr.Code == 403 ||
		apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED":
		return "Check that GEMINI_API_KEY is valid and enabled for the Gemini API."
	case apiErr.Code == 400 || apiErr.Status == "INVALID_ARGUMENT" || apiErr.Status == "FAILED_PRECONDITION":
		return "Check GUIDE_MODELS and the guide request settings."
	case apiErr.Code >= 500:
		return "The Gemini service reported an internal error; check its status page before asking again."
	}
	return "Check the guide integration settings."
}
