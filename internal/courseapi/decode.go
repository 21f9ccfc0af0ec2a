package courseapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ibnmalik/lms-admin/internal/model"
)

var errEmptyBody = errors.New("empty response body")

// decodeEnvelope reads v either from one of the wrapper keys or from the
// body itself. The API has answered with {"course": …}, {"data": …} and bare
// documents over time.
func decodeEnvelope(body []byte, v any, keys ...string) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errEmptyBody
	}
	if body[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err == nil {
			for _, k := range keys {
				if raw, ok := wrapper[k]; ok && len(raw) > 0 && string(raw) != "null" {
					return json.Unmarshal(raw, v)
				}
			}
		}
	}
	return json.Unmarshal(body, v)
}

func decodeCourse(body []byte) (*model.Course, error) {
	var c model.Course
	if err := decodeEnvelope(body, &c, "course", "data"); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	return &c, nil
}

// parseMessages extracts human-readable messages from an error body. It
// understands {"message": "…"}, {"error": "…"}, {"errors": ["…"]},
// {"errors": [{"msg": "…"}]} and {"errors": {"field": "…"}}.
func parseMessages(body []byte) []string {
	var doc struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" && !strings.HasPrefix(s, "<") && len(s) < 300 {
			return []string{s}
		}
		return nil
	}

	var out []string
	out = append(out, stringsOf(doc.Errors)...)
	if len(out) == 0 {
		out = append(out, stringsOf(doc.Message)...)
	}
	if len(out) == 0 {
		out = append(out, stringsOf(doc.Error)...)
	}
	return out
}

func stringsOf(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var out []string
		for _, item := range list {
			out = append(out, stringsOf(item)...)
		}
		return out
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		for _, k := range []string{"msg", "message"} {
			if v, ok := obj[k]; ok {
				return stringsOf(v)
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, stringsOf(obj[k])...)
		}
		return out
	}
	return nil
}
