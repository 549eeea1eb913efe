package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

const DefaultCurrency = "VND"

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney создаёт положительную сумму. Нулевой заказ в escrow не имеет смысла.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount.Round(2), Currency: currency}, nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
