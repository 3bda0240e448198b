// Package stock implements the caller side of stock movements: baskets of
// quantities, applying them to a catalog, and pushing the result to the server.
package stock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// ParseQuantity accepts only positive decimal integers such as "3" or "012".
// Signs, decimals, exponents and whitespace inside the number are rejected.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: quantity required", model.ErrInvalidInput)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: quantity %q is not a whole number", model.ErrInvalidInput, s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > model.MaxQuantity {
		return 0, fmt.Errorf("%w: quantity %q is too large", model.ErrInvalidInput, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidInput)
	}
	return n, nil
}
