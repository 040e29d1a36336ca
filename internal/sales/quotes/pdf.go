package quotes

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

var (
	colorPrimary = &props.Color{Red: 24, Green: 62, Blue: 110}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// RenderPDF lays out a quote on an A4 page.
func RenderPDF(q *Quote, company CompanyProfile) ([]byte, error) {
	issuer := company.TradeName
	if issuer == "" {
		issuer = company.Name
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Orçamento "+q.Number, true).
		WithAuthor(issuer, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(q, issuer, company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(q))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(itemHeaderRow())
	m.AddRows(itemRows(q.Items)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(q))
	if q.Notes != "" {
		m.AddRows(row.New(14).Add(col.New(12).Add(
			text.New("Observações", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(q.Notes, props.Text{Size: 8, Top: 6, Color: colorGray}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(q *Quote, issuer string, company CompanyProfile) core.Row {
	contact := strings.Join(nonEmpty(company.Document, company.Phone, company.Email), "  |  ")
	validity := "Validade: indeterminada"
	if q.ValidUntil != nil {
		validity = "Validade: " + q.ValidUntil.Format("02/01/2006")
	}
	return row.New(20).Add(
		col.New(7).Add(
			text.New(issuer, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(contact, props.Text{Size: 8, Top: 9, Color: colorGray}),
			text.New(company.Address, props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("ORÇAMENTO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(q.Number, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6}),
			text.New("Emissão: "+q.CreatedAt.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 13, Color: colorGray}),
			text.New(validity, props.Text{Size: 8, Align: align.Right, Top: 17, Color: colorGray}),
		),
	)
}

func customerRow(q *Quote) core.Row {
	return row.New(12).Add(col.New(12).Add(
		text.New("CLIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		text.New(q.PartnerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
	))
}

func itemHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2}))
	}
	return row.New(8).Add(
		h("Qtd.", 1, align.Center),
		h("Descrição", 5, align.Left),
		h("Preço unit.", 2, align.Right),
		h("Desconto", 2, align.Right),
		h("Total", 2, align.Right),
	)
}

func itemRows(items []document.Item) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(formatQuantity(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(it.Description, props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(formatMoney(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(2).Add(text.New(formatMoney(it.DiscountValue), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(2).Add(text.New(formatMoney(it.Total), props.Text{Size: 8, Align: align.Right, Top: 1})),
		))
	}
	return rows
}

func totalsRow(q *Quote) core.Row {
	label := func(s string, size float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: size, Align: align.Right, Right: 2})
	}
	value := func(s string, size float64) core.Component {
		return text.New(s, props.Text{Size: size, Align: align.Right})
	}
	discount := "Desconto:"
	if q.DiscountType == pricing.Percentage {
		discount = "Desconto (" + q.Discount.StringFixed(2) + "%):"
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 9),
			label(discount, 9),
			label("TOTAL:", 10),
		),
		col.New(3).Add(
			value(formatMoney(q.Subtotal), 9),
			value(formatMoney(q.DiscountValue), 9),
			value(formatMoney(q.Total), 10),
		),
	)
}

// formatMoney renders d as Brazilian currency, e.g. R$ 1.234,50.
func formatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("R$ %v", number.Decimal(f, number.Scale(2)))
}

func formatQuantity(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
