package condition

import (
	"encoding/json"
	"fmt"
)

// Parse decodes a JSON condition document into a Condition tree and
// performs structural validation (arity of logical nodes, presence of
// attr on leaves). It does not validate operator names — that is
// Compile's job, since an unknown operator is a compile-time concern,
// not a parse-time one.
func Parse(data []byte) (*Condition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw json.RawMessage = data
	if string(raw) == "null" {
		return nil, nil
	}

	var c Condition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("condition: parse: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *Condition) error {
	if c == nil {
		return nil
	}
	if c.IsLogical() {
		if c.Op == OpNot {
			if len(c.Conditions) != 1 {
				return ErrNotArity
			}
		} else if len(c.Conditions) == 0 {
			return ErrEmptyLogical
		}
		for _, child := range c.Conditions {
			if err := validate(child); err != nil {
				return err
			}
		}
		return nil
	}
	if c.Attr == "" {
		return ErrMissingAttr
	}
	return nil
}
