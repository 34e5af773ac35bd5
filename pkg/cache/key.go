package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by the manager.
const KeyPrefix = "rowsite"

// Key identifies a cached response.
type Key struct {
	// Host is the upstream host[:port]
	Host string

	// Endpoint is the request path (e.g. "/rows")
	Endpoint string

	// QueryParams are the query parameters (dataset, config, split, offset, length)
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: rowsite:host:endpoint:query1=val1:query2=val2
//
// Example:
//
//	rowsite:datasets-server.huggingface.co:rows:config=default:dataset=org/name:length=100:offset=0:split=train
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if host := strings.ToLower(k.Host); host != "" {
		parts = append(parts, host)
	}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, key+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}
