package submit

import (
	"net/url"
	"strings"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
)

// NormalizeURL prefixes "http://" when raw carries no scheme and checks that
// the result is an http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.InvalidURLError(raw, nil).WithDetails("URL is empty")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", apperrors.InvalidURLError(raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperrors.InvalidURLError(raw, nil).WithDetails("scheme must be http or https")
	}
	if u.Host == "" {
		return "", apperrors.InvalidURLError(raw, nil).WithDetails("missing host")
	}

	return u.String(), nil
}
