package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/models"
)

// ParseScope returns the scope argument, or def when it is blank. The
// result is not validated here.
func ParseScope(arg, def string) models.Scope {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		arg = def
	}
	return models.Scope(arg)
}

// ParseParams decodes the params argument over the defaults. A blank argument
// or JSON null means all defaults; unrecognized keys are ignored.
func ParseParams(arg string) (models.Params, error) {
	params := models.DefaultParams()

	arg = strings.TrimSpace(arg)
	if arg == "" || arg == "null" {
		return params, nil
	}

	dec := json.NewDecoder(strings.NewReader(arg))
	dec.UseNumber()

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return params, invalidParams(err.Error())
	}
	if dec.More() {
		return params, invalidParams("unexpected data after params object")
	}

	if raw, ok := fields["top_n"]; ok {
		n, err := decodeInt(raw)
		if err != nil || n <= 0 {
			return params, invalidParams(fmt.Sprintf("top_n must be an integer > 0, got %s", raw))
		}
		params.TopN = n
	}
	if raw, ok := fields["raw"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return params, invalidParams(fmt.Sprintf("raw must be a boolean, got %s", raw))
		}
		params.Raw = b
	}
	if raw, ok := fields["raw_rows"]; ok {
		n, err := decodeInt(raw)
		if err != nil || n < 0 {
			return params, invalidParams(fmt.Sprintf("raw_rows must be an integer >= 0, got %s", raw))
		}
		params.RawRows = n
	}

	return params, nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, err
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return 0, errors.New("quoted number")
	}
	n, err := num.Int64()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func invalidParams(detail string) error {
	return &common.ConfigError{Field: "params", Message: "invalid params", Detail: detail}
}
