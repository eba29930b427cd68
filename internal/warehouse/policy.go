package warehouse

import (
	"fmt"
	"strings"
)

// Policy selects how a load treats rows already in the warehouse.
type Policy string

// Load policies.
const (
	// Rebuild empties all four tables and reloads them from the batch.
	// Keys are deterministic for a given input.
	Rebuild Policy = "rebuild"

	// Append keeps existing rows. Customers are looked up by name, new
	// customer and sales ids continue from the stored maximum, and date
	// and product rows are upserted by key.
	Append Policy = "append"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Rebuild, Append:
		return p, nil
	case "":
		return Rebuild, nil
	default:
		return "", fmt.Errorf("invalid load policy: %s (valid: rebuild, append)", s)
	}
}
