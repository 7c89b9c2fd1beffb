package domain

// Income and expense categories are disjoint. They only describe an entry.
var (
	IncomeCategories = []string{
		"Serviço",
		"Pacote",
		"Produto",
		"Comissão",
		"Outros",
	}

	ExpenseCategories = []string{
		"Aluguel",
		"Material",
		"Equipamento",
		"Marketing",
		"Impostos",
		"Transporte",
		"Contas",
		"Outras Despesas",
	}
)

// CategoriesFor returns the category enumeration for a kind.
func CategoriesFor(kind Kind) []string {
	switch kind {
	case KindIncome:
		return IncomeCategories
	case KindExpense:
		return ExpenseCategories
	default:
		return nil
	}
}
