package probe

import (
	"net/http"

	"github.com/nao1215/pausescan/internal/model"
)

// statusMultipleChoices300 is the only 3xx code counted as a hit. Other
// redirects are followed by the client and classified by their final status.
const statusMultipleChoices300 = http.StatusMultipleChoices

// Classify maps a response to its class.
//
// The exclude-length filter is checked first, so a matching response is
// suppressed whatever its status, 429 included.
func Classify(status, length int, filter model.LengthFilter) model.Class {
	if filter.Matches(length) {
		return model.ClassSuppressed
	}

	switch status {
	case http.StatusNotFound:
		return model.ClassNotFound
	case http.StatusOK, statusMultipleChoices300:
		return model.ClassSuccess
	case http.StatusForbidden:
		return model.ClassForbidden
	case http.StatusTooManyRequests:
		return model.ClassRateLimited
	default:
		return model.ClassOther
	}
}
