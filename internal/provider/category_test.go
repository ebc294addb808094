package provider

import (
	"testing"

	"github.com/avolkov/banksync/internal/domain"
)

func TestMapCategory(t *testing.T) {
	tests := []struct {
		input string
		want  domain.TransactionCategory
	}{
		{"income", domain.CategoryIncome},
		{"Payroll", domain.CategoryIncome},
		{"  GROCERIES  ", domain.CategoryGroceries},
		{"Food and Drink", domain.CategoryRestaurants},
		{"gas stations", domain.CategoryTransport},
		{"streaming services", domain.CategorySubscriptions},
		{"bank fees", domain.CategoryFees},
		{"", domain.CategoryOther},
		{"completely unknown category", domain.CategoryOther},
		{"🜛", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MapCategory(tt.input); got != tt.want {
				t.Errorf("MapCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Every entry in the mapping table must resolve to a defined category, and
// the mapping must be total over arbitrary input.
func TestMapCategoryTotal(t *testing.T) {
	for upstream, want := range categoryMap {
		if got := MapCategory(upstream); got != want {
			t.Errorf("MapCategory(%q) = %q, want %q", upstream, got, want)
		}
		if got := MapCategory(upstream); got == "" {
			t.Errorf("MapCategory(%q) returned empty category", upstream)
		}
	}
}
