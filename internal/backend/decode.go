package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"backoffice-alerts/internal/models"
)

// listWrappers are the envelope keys the back-office uses for paged lists.
var listWrappers = []string{"content", "data", "items"}

// decodeList accepts a bare JSON array or an object wrapping the array under
// one of listWrappers.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch body[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return list, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		for _, key := range listWrappers {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				continue
			}
			var list []T
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
			return list, nil
		}
		return nil, fmt.Errorf("%w: no list in response object", ErrMalformedPayload)
	}
	return nil, fmt.Errorf("%w: unexpected response shape", ErrMalformedPayload)
}

func decodePurchaseOrder(body []byte) (models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return po, nil
	}
	if err := json.Unmarshal(body, &po); err != nil {
		return po, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return po, nil
}
