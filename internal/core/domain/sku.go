package domain

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidSKU = errors.New("invalid sku")

var skuPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NormalizeSKU validates a raw SKU token and returns its upper-cased lookup key.
func NormalizeSKU(raw string) (string, error) {
	sku := strings.TrimSpace(raw)
	if !skuPattern.MatchString(sku) {
		return "", ErrInvalidSKU
	}
	return strings.ToUpper(sku), nil
}
