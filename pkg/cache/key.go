package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const keyPrefix = "satcat"

// Key identifies one cacheable, coalescable unit of work.
// Two requests with equal String() values are interchangeable.
type Key struct {
	// Resource is the origin path without leading/trailing slashes (e.g. "satellites")
	Resource string

	// Params are the query parameters that select the payload
	Params url.Values
}

// String generates a deterministic key string.
// Format: satcat:resource:param1=val1:param2=val2
//
// Example:
//
//	satcat:satellites:group=active:limit=500:offset=0
func (k Key) String() string {
	parts := []string{keyPrefix}

	resource := strings.Trim(k.Resource, "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+url.QueryEscape(k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}

// PageKey is the key of one page of a group listing.
func PageKey(group string, limit, offset int) Key {
	return Key{
		Resource: "satellites",
		Params: url.Values{
			"group":  []string{group},
			"limit":  []string{strconv.Itoa(limit)},
			"offset": []string{strconv.Itoa(offset)},
		},
	}
}

// RecordKey is the key of a single-record lookup.
func RecordKey(id string) Key {
	return Key{Resource: "satellites/" + url.PathEscape(id)}
}

// GroupPrefix returns the prefix shared by every PageKey of group.
func GroupPrefix(group string) string {
	return keyPrefix + ":satellites:group=" + url.QueryEscape(group) + ":"
}
