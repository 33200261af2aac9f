package service

import (
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// MergeLocalPriority keeps every local line as is and appends remote lines
// whose product id is not already present, in remote order. Lines with a
// non-positive quantity are dropped from both sides.
func MergeLocalPriority(local, remote []models.CartLine) []models.CartLine {
	merged := make([]models.CartLine, 0, len(local)+len(remote))
	seen := make(map[int64]struct{}, len(local)+len(remote))

	for _, l := range local {
		if l.Quantity <= 0 {
			continue
		}
		if _, dup := seen[l.ProductID]; dup {
			continue
		}
		seen[l.ProductID] = struct{}{}
		merged = append(merged, l)
	}
	for _, r := range remote {
		if r.Quantity <= 0 {
			continue
		}
		if _, dup := seen[r.ProductID]; dup {
			continue
		}
		seen[r.ProductID] = struct{}{}
		merged = append(merged, r)
	}
	return merged
}

// ParseQuantity reads a user supplied quantity. Anything that is not an
// integer becomes 1; zero and negatives are returned as is so the caller can
// treat them as a removal.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return n
}

func linesFromRemote(items []transport.CartItem) []models.CartLine {
	out := make([]models.CartLine, 0, len(items))
	for _, it := range items {
		l := models.LineFromProduct(it.Product)
		l.Quantity = it.Quantity
		out = append(out, l)
	}
	return out
}

func sameLines(a, b []models.CartLine) bool {
	if len(a) != len(b) {
		return false
	}
	qty := make(map[int64]int, len(a))
	for _, l := range a {
		qty[l.ProductID] = l.Quantity
	}
	for _, l := range b {
		if q, ok := qty[l.ProductID]; !ok || q != l.Quantity {
			return false
		}
	}
	return true
}
