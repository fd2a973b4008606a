package service

import (
	"context"
	"fmt"
	"strings"
)

const receiptWidth = 40

func money(cents int64) string {
	return centsToDecimal(cents).StringFixed(2)
}

func receiptCenter(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	pad := (receiptWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func receiptRow(label, value string) string {
	gap := receiptWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

// ReceiptText renders a plain-text receipt for a completed sale, sized for
// a 40-column thermal printer.
func (s *Service) ReceiptText(ctx context.Context, saleID string) (string, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return "", err
	}
	cfg, err := s.repo.GetStoreConfig(ctx)
	if err != nil {
		return "", err
	}

	divider := strings.Repeat("-", receiptWidth)
	var b strings.Builder

	b.WriteString(receiptCenter(cfg.StoreName) + "\n")
	if cfg.Address != "" {
		b.WriteString(receiptCenter(cfg.Address) + "\n")
	}
	if cfg.Phone != "" {
		b.WriteString(receiptCenter(cfg.Phone) + "\n")
	}
	b.WriteString(divider + "\n")
	b.WriteString(receiptRow("Sale", sale.ID) + "\n")
	b.WriteString(receiptRow("Date", sale.CreatedAt.Format("2006-01-02 15:04")) + "\n")
	b.WriteString(receiptRow("Cashier", sale.Cashier) + "\n")
	b.WriteString(receiptRow("Customer", sale.CustomerName) + "\n")
	b.WriteString(divider + "\n")

	for _, item := range sale.Items {
		b.WriteString(item.Name + "\n")
		qty := fmt.Sprintf("%d x %s", item.Qty, money(item.UnitPriceCents))
		b.WriteString(receiptRow("  "+qty, money(item.LineTotalCents)) + "\n")
	}

	b.WriteString(divider + "\n")
	b.WriteString(receiptRow("Subtotal", money(sale.SubtotalCents)) + "\n")
	if sale.DiscountCents > 0 {
		b.WriteString(receiptRow("Discount", "-"+money(sale.DiscountCents)) + "\n")
	}
	if sale.SurchargeCents > 0 {
		b.WriteString(receiptRow("Surcharge", money(sale.SurchargeCents)) + "\n")
	}
	b.WriteString(receiptRow("TOTAL", money(sale.TotalCents)) + "\n")
	b.WriteString(receiptRow("Paid ("+sale.PaymentMethod+")", money(sale.TenderedCents)) + "\n")
	b.WriteString(receiptRow("Change", money(sale.ChangeCents)) + "\n")
	b.WriteString(divider + "\n")
	b.WriteString(receiptCenter("Thank you for your purchase!") + "\n")

	return b.String(), nil
}
