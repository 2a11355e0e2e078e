package drafts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a drafts response is not a
// draft object, a list of drafts, or an envelope around such a list.
var ErrMalformedPayload = errors.New("malformed drafts payload")

// envelopeKeys are the object fields that may wrap the draft list, in
// lookup order.
var envelopeKeys = []string{"blogs", "drafts", "items", "data"}

// DecodeBatch decodes a drafts response body into raw items
func DecodeBatch(body []byte) ([]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return CoerceBatch(payload)
}

// CoerceBatch turns an already decoded payload into a sequence of raw
// items. Single objects become a one-item sequence.
func CoerceBatch(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range envelopeKeys {
			inner, ok := v[key]
			if !ok {
				continue
			}
			if items, ok := inner.([]any); ok {
				return items, nil
			}
			if inner == nil && len(v) == 1 {
				return []any{}, nil
			}
		}
		return []any{v}, nil
	case nil:
		return nil, fmt.Errorf("%w: null", ErrMalformedPayload)
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedPayload, payload)
	}
}
