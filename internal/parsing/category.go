package parsing

import "strings"

// Category is the spending category assigned to an item
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Health        Category = "Health"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Bills         Category = "Bills"
	Other         Category = "Other"
)

// Categories lists every valid category
var Categories = []Category{Food, Transport, Health, Shopping, Entertainment, Bills, Other}

// ParseCategory returns the category matching name, case-insensitively, or Other
func ParseCategory(name string) Category {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c
		}
	}
	return Other
}

type categoryKeywords struct {
	category Category
	keywords []string
}

// categoryTable is checked in order; the first category with a matching keyword wins.
var categoryTable = []categoryKeywords{
	{Food, []string{"milk", "bread", "egg", "cheese", "pizza", "burger", "coffee", "food", "snack", "restaurant", "grocery", "produce", "meat", "dairy"}},
	{Transport, []string{"gas", "fuel", "parking", "uber", "lyft", "taxi", "bus", "train", "transport"}},
	{Health, []string{"medicine", "pharmacy", "doctor", "clinic", "health", "pills"}},
	{Shopping, []string{"clothes", "shirt", "pants", "shoes", "soap", "shampoo", "store", "retail", "household"}},
	{Entertainment, []string{"movie", "cinema", "game", "book", "concert", "ticket", "entertainment"}},
	{Bills, []string{"electric", "water", "internet", "phone", "cable", "insurance", "rent", "utility", "bills"}},
}

// Categorize assigns a category from keywords found anywhere in the description
func Categorize(description string) Category {
	lower := strings.ToLower(description)
	for _, entry := range categoryTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.category
			}
		}
	}
	return Other
}

type vendorCategory struct {
	label    string
	category Category
}

// vendorCategories maps the department labels printed on the line after a "1@" price.
var vendorCategories = []vendorCategory{
	{"groceries", Food},
	{"grocery", Food},
	{"food", Food},
	{"fuel", Transport},
	{"gas", Transport},
	{"pharmacy", Health},
	{"medicine", Health},
	{"household", Shopping},
	{"entertainment", Entertainment},
	{"utilities", Bills},
}

// MapVendorCategory maps a vendor department label onto a category.
// Exact matches win over substring matches in either direction.
func MapVendorCategory(label string) Category {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return Other
	}
	for _, v := range vendorCategories {
		if v.label == normalized {
			return v.category
		}
	}
	for _, v := range vendorCategories {
		if strings.Contains(normalized, v.label) || strings.Contains(v.label, normalized) {
			return v.category
		}
	}
	return Other
}
