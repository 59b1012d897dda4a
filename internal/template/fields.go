package template

import (
	"fmt"
	"strings"

	debtordomain "github.com/collectra/collectra/internal/debtor/domain"
	invoicedomain "github.com/collectra/collectra/internal/invoice/domain"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FieldOptions carries the orchestrator-level knobs that feed the standard
// field map.
type FieldOptions struct {
	FallbackDebtorName string
	PaymentLink        string
}

// Fields builds the standard field map for one invoice. debtor may be nil
// when the lookup failed; the name then falls through to the configured
// generic fallback.
func Fields(inv *invoicedomain.Invoice, debtor *debtordomain.Debtor, daysPastDue int, opts FieldOptions) map[string]string {
	name := ""
	company := ""
	if debtor != nil {
		name = debtor.DisplayName()
		company = debtor.CompanyName
	}
	if name == "" {
		name = opts.FallbackDebtorName
	}

	return map[string]string{
		"debtor_name":    name,
		"company_name":   company,
		"invoice_number": inv.Number,
		"amount":         FormatAmount(inv.Amount, inv.Currency),
		"currency":       inv.Currency,
		"due_date":       inv.DueAt.UTC().Format("January 2, 2006"),
		"days_past_due":  fmt.Sprintf("%d", daysPastDue),
		"payment_link":   opts.PaymentLink,
	}
}

// FormatAmount renders minor units as a human currency string, e.g.
// 50000 USD -> "$500.00". Unrecognized currencies fall back to the ISO code
// prefix form "IDR 500.00".
func FormatAmount(minor int64, currency string) string {
	negative := minor < 0
	if negative {
		minor = -minor
	}

	whole := minor / 100
	cents := minor % 100
	amount := fmt.Sprintf("%s.%02d", groupThousands(whole), cents)

	code := strings.ToUpper(currency)
	out := ""
	if symbol, ok := currencySymbols[code]; ok {
		out = symbol + amount
	} else {
		out = code + " " + amount
	}
	if negative {
		return "-" + out
	}
	return out
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
