package model

import (
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/money"
)

// FinancialRecord holds the cash generated in a month and the quotation of
// one GTXip computed from it. There is at most one record per period.
type FinancialRecord struct {
	ID            string
	Period        date.Period
	CashGenerated money.Money // geracao_caixa
	Quotation     money.Money // valor_cotacao, 4 decimal places
}
