package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// 金額計算はすべてdecimalで行い、最後に2桁へ丸める。

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

type Amounts struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Quoteは小計・税・合計を計算する純粋関数。
// tax = (subtotal + shipping) * taxRate
// total = subtotal + shipping + tax
func Quote(lines []Line, shippingCost decimal.Decimal, taxRate decimal.Decimal) Amounts {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineSubtotal(l.UnitPrice, l.Quantity))
	}

	tax := subtotal.Add(shippingCost).Mul(taxRate).Round(2)
	total := subtotal.Add(shippingCost).Add(tax)

	return Amounts{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
	}
}

// 1明細の小計。
func LineSubtotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// EffectivePriceはその時点で請求すべき価格を返す。
// セール価格は期間[start, end]が設定されていて、nowがその中にあるときだけ有効。
func EffectivePrice(price decimal.Decimal, salePrice *decimal.Decimal, saleStart, saleEnd *time.Time, now time.Time) decimal.Decimal {
	if salePrice == nil || saleStart == nil || saleEnd == nil {
		return price
	}
	if now.Before(*saleStart) || now.After(*saleEnd) {
		return price
	}
	return *salePrice
}
