package relay

import (
	"encoding/json"

	"meeting-summary-service/internal/failure"
)

// knownKeys are tried in order on an object response.
var knownKeys = []string{"summaryUrl", "url"}

type linkDecoder struct {
	name   string
	decode func(body []byte) (string, bool)
}

// linkDecoders run in order; the first match wins.
var linkDecoders = []linkDecoder{
	{name: "keyed object", decode: decodeKeyedObject},
	{name: "bare string", decode: decodeBareString},
	{name: "single-entry object", decode: decodeSingleEntry},
}

// DecodeLink extracts the summary link from a relay response body. It
// accepts {"summaryUrl": "..."}, {"url": "..."}, a bare JSON string, or a
// one-entry object whose value is an absolute URL.
func DecodeLink(body []byte) (string, error) {
	for _, d := range linkDecoders {
		if link, ok := d.decode(body); ok {
			return link, nil
		}
	}
	return "", failure.Newf(failure.KindMalformedResponse, op, "unrecognized response shape: %s", failure.Truncate(string(body), 128))
}

func decodeKeyedObject(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	for _, key := range knownKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

func decodeBareString(body []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeSingleEntry(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || len(obj) != 1 {
		return "", false
	}
	for _, raw := range obj {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		if _, err := ParseLink(s); err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}
