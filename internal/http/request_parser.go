package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"buste/internal/core"
)

// parseBody decodes a JSON request body into a map, keeping numbers as
// json.Number so monetary values never pass through float64.
func parseBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	body := make(map[string]any)
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("malformed JSON body: %w", err)
	}
	return body, nil
}

// stringField returns a required, trimmed string field.
func stringField(body map[string]any, key string) (string, error) {
	v, ok := body[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return strings.TrimSpace(s), nil
}

// amountField returns a required monetary field in cents. JSON numbers are
// taken as integer cents; decimal strings ("12.34") are parsed as major
// units with half-up rounding.
func amountField(body map[string]any, key string) (int64, error) {
	v, ok := body[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch val := v.(type) {
	case json.Number:
		cents, err := strconv.ParseInt(val.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, core.ErrInvalidAmount)
		}
		return cents, nil
	case string:
		cents, err := core.ParseAmountToCents(val)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return cents, nil
	default:
		return 0, fmt.Errorf("field %q: %w", key, core.ErrInvalidAmount)
	}
}

// idField returns a required integer reference field (e.g. enveloppe_id).
func idField(body map[string]any, key string) (int64, error) {
	v, ok := body[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("field %q must be an integer", key)
	}
	id, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q must be an integer", key)
	}
	return id, nil
}

// pathID parses an integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
