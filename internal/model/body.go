package model

import (
	"bytes"
	"encoding/json"

	"golang.org/x/text/unicode/norm"
)

// MarshalBody encodes a journal body. Word ids are NFC normalized and HTML
// characters are left unescaped so identical links always produce
// identical bytes.
func MarshalBody(v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case ServerLink:
		v = normalizeLink(val)
	case []ServerLink:
		out := make([]ServerLink, len(val))
		for i, l := range val {
			out[i] = normalizeLink(l)
		}
		v = out
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func normalizeLink(l ServerLink) ServerLink {
	l.ID = norm.NFC.String(l.ID)
	l.Sources = normalizeAll(l.Sources)
	l.Targets = normalizeAll(l.Targets)
	return l
}

func normalizeAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = norm.NFC.String(id)
	}
	return out
}
