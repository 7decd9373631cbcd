package catalog

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Selection is the set of catalog ids a client configuration enabled.
type Selection map[string]struct{}

func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains is safe on a nil Selection.
func (s Selection) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// ParseSelection decodes the configuration path segment sent by the addon
// client. Two shapes are accepted: a URL-encoded JSON object whose keys are
// the selected ids, or a comma separated id list. Anything unparsable is an
// empty selection.
func ParseSelection(raw string) Selection {
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selection{}
	}

	if strings.HasPrefix(raw, "{") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return Selection{}
		}
		s := make(Selection, len(obj))
		for id := range obj {
			if id = strings.TrimSpace(id); id != "" {
				s[id] = struct{}{}
			}
		}
		return s
	}

	return NewSelection(strings.Split(raw, ",")...)
}
