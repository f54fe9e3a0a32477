package api

import (
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/phrazzld/modelapi/internal/domain"
)

// Query parameters understood by index and the other read routes.
const (
	ParamIncludes = "includes"
	ParamExcludes = "excludes"
	ParamLimit    = "limit"
	ParamPage     = "page"
)

// pageParams reads the limit and page query parameters. An absent limit
// is nil so that the model limit applies; an absent page is 1.
func pageParams(q url.Values) (*int, int, error) {
	var (
		fields   []string
		messages []string
		limit    *int
		page     = 1
	)

	if raw := q.Get(ParamLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, ParamLimit)
			messages = append(messages, "The limit must be a positive integer.")
		} else {
			limit = &n
		}
	}
	if raw := q.Get(ParamPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, ParamPage)
			messages = append(messages, "The page must be a positive integer.")
		} else {
			page = n
		}
	}

	if len(messages) > 0 {
		return nil, 0, domain.NewValidationError(fields, messages)
	}
	return limit, page, nil
}

// sanitizer strips markup from string inputs. Secrets are stored as sent.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *sanitizer) attributes(inputs domain.Attributes) domain.Attributes {
	out := make(domain.Attributes, len(inputs))
	for k, v := range inputs {
		str, ok := v.(string)
		if !ok || strings.Contains(strings.ToLower(k), "password") {
			out[k] = v
			continue
		}
		// The strict policy escapes entities; only the tags should go.
		out[k] = html.UnescapeString(s.policy.Sanitize(str))
	}
	return out
}

// requestPath returns the path and query of r for pagination links.
func requestPath(r *http.Request) *url.URL {
	u := *r.URL
	u.Scheme = ""
	u.Host = ""
	return &u
}
