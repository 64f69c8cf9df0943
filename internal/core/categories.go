package core

type Category string

const (
	Salary        Category = "Salary"
	Freelance     Category = "Freelance"
	Investment    Category = "Investment"
	Food          Category = "Food"
	Transport     Category = "Transport"
	Rent          Category = "Rent"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	Others        Category = "Others"
)

var (
	IncomeCategories  = []Category{Salary, Freelance, Investment, Others}
	ExpenseCategories = []Category{Food, Transport, Rent, Shopping, Entertainment, Health, Others}
)

var categoryColors = map[Category]string{
	Salary:        "#10b981",
	Freelance:     "#34d399",
	Investment:    "#059669",
	Food:          "#f87171",
	Transport:     "#60a5fa",
	Rent:          "#818cf8",
	Shopping:      "#fbbf24",
	Entertainment: "#c084fc",
	Health:        "#f472b6",
	Others:        "#94a3b8",
}

// CategoriesFor returns the categories a transaction of type t may use.
func CategoriesFor(t TransactionType) []Category {
	switch t {
	case Income:
		return append([]Category(nil), IncomeCategories...)
	case Expense:
		return append([]Category(nil), ExpenseCategories...)
	default:
		return nil
	}
}

// ValidFor reports whether c belongs to the category subset of t.
func (c Category) ValidFor(t TransactionType) bool {
	for _, v := range CategoriesFor(t) {
		if v == c {
			return true
		}
	}
	return false
}

// Color is the chart color of the category, or the "Others" color for unknown values.
func (c Category) Color() string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return categoryColors[Others]
}
