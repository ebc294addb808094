package provider

import (
	"strings"

	"github.com/avolkov/banksync/internal/domain"
)

// categoryMap translates upstream free-text categories into the internal
// taxonomy. Lookup is case-insensitive on the normalized name.
var categoryMap = map[string]domain.TransactionCategory{
	"income":              domain.CategoryIncome,
	"payroll":             domain.CategoryIncome,
	"interest":            domain.CategoryIncome,
	"transfer":            domain.CategoryTransfer,
	"transfer in":         domain.CategoryTransfer,
	"transfer out":        domain.CategoryTransfer,
	"groceries":           domain.CategoryGroceries,
	"supermarkets":        domain.CategoryGroceries,
	"food and drink":      domain.CategoryRestaurants,
	"restaurants":         domain.CategoryRestaurants,
	"coffee shops":        domain.CategoryRestaurants,
	"fast food":           domain.CategoryRestaurants,
	"travel":              domain.CategoryTravel,
	"airlines":            domain.CategoryTravel,
	"lodging":             domain.CategoryTravel,
	"transportation":      domain.CategoryTransport,
	"taxi":                domain.CategoryTransport,
	"public transit":      domain.CategoryTransport,
	"gas stations":        domain.CategoryTransport,
	"rent":                domain.CategoryRent,
	"mortgage":            domain.CategoryRent,
	"utilities":           domain.CategoryUtilities,
	"internet":            domain.CategoryUtilities,
	"telecommunications":  domain.CategoryUtilities,
	"entertainment":       domain.CategoryEntertainment,
	"recreation":          domain.CategoryEntertainment,
	"healthcare":          domain.CategoryHealthcare,
	"pharmacies":          domain.CategoryHealthcare,
	"shops":               domain.CategoryShopping,
	"clothing":            domain.CategoryShopping,
	"electronics":         domain.CategoryShopping,
	"subscription":        domain.CategorySubscriptions,
	"streaming services":  domain.CategorySubscriptions,
	"bank fees":           domain.CategoryFees,
	"atm fees":            domain.CategoryFees,
	"overdraft fees":      domain.CategoryFees,
	"tax":                 domain.CategoryTaxes,
	"government services": domain.CategoryTaxes,
}

// MapCategory maps an upstream category name to the internal taxonomy.
// It is total: unrecognized input maps to CategoryOther and never fails.
func MapCategory(upstream string) domain.TransactionCategory {
	normalized := strings.ToLower(strings.TrimSpace(upstream))
	if cat, ok := categoryMap[normalized]; ok {
		return cat
	}
	return domain.CategoryOther
}
