// Package config decodes and validates filter configuration payloads.
//
// The host hands a filter chain's configuration to the module as an opaque
// byte payload; by convention it is JSON. Parse turns that payload into a
// module-defined struct and enforces its `validate` tags, so a malformed
// chain configuration is refused at creation time instead of surfacing
// mid-stream.
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton; constructing a validator per call
// is expensive and the instance is safe for concurrent use.
var validate = validator.New()

// Error wraps a configuration decode or validation failure. The first
// offending field, when known, is carried for diagnostics.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parse unmarshals a JSON payload into target and validates it. An empty
// payload is treated as the empty object, so a filter with defaults for
// everything accepts a missing configuration. The payload is borrowed;
// Parse copies what it keeps by virtue of decoding.
func Parse(payload []byte, target any) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return &Error{Err: fmt.Errorf("decoding payload: %w", err)}
	}

	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &Error{Field: verrs[0].Field(), Err: err}
		}
		return &Error{Err: err}
	}

	return nil
}
