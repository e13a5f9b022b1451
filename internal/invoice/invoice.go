// Package invoice produit les factures PDF des commandes.
package invoice

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"shop_back_end/internal/config"
	"shop_back_end/internal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Invoice {{.Reference}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; color: #222; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
th, td { padding: 8px; border-bottom: 1px solid #ddd; }
.right { text-align: right; }
</style></head>
<body>
	<h1>{{.Company}}</h1>
	<p>Invoice <strong>{{.Reference}}</strong> · {{.Date}}</p>
	<p>{{.Order.Customer.Name}}<br>{{.Order.Customer.Address}}<br>{{.Order.Customer.Phone}}</p>
	<table>
		<tr><th align="left">Product</th><th>Qty</th><th class="right">Unit price</th><th class="right">Total</th></tr>
		{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td class="right">{{money .Price}}</td><td class="right">{{money .LineTotal}}</td></tr>
		{{end}}<tr><td colspan="3" class="right">Subtotal</td><td class="right">{{money .Order.Subtotal}}</td></tr>
		<tr><td colspan="3" class="right">Shipping</td><td class="right">{{money .Order.Shipping}}</td></tr>
		<tr><td colspan="3" class="right"><strong>Total</strong></td><td class="right"><strong>{{money .Order.Total}}</strong></td></tr>
	</table>
	{{if .QR}}<p>Scan to pay by bank transfer:</p><img src="{{.QR}}" width="160" height="160" alt="payment QR">{{end}}
</body>
</html>`))

// Renderer produit le HTML puis le PDF d'une facture
type Renderer struct {
	shop config.ShopConfig
}

func NewRenderer(shop config.ShopConfig) *Renderer {
	return &Renderer{shop: shop}
}

func Reference(order models.Order) string {
	return "INV-" + order.ID.String()[:8]
}

// SepaQR génère un QR EPC (virement SEPA) en data URL
func SepaQR(iban, bic, name, ref string, amount decimal.Decimal) (template.URL, error) {
	payload := fmt.Sprintf("BCD\n002\n1\nSCT\n%s\n%s\n%s\nEUR%s\n\n%s", bic, name, iban, amount.StringFixed(2), ref)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}

// HTML rend la facture ; le QR n'est ajouté que si un IBAN est configuré
func (r *Renderer) HTML(order models.Order) (string, error) {
	data := map[string]interface{}{
		"Company":   r.shop.CompanyName,
		"Reference": Reference(order),
		"Date":      order.CreatedAt.Format("2006-01-02"),
		"Order":     order,
	}
	if r.shop.IBAN != "" && order.Status != models.OrderCancelled {
		qr, err := SepaQR(r.shop.IBAN, r.shop.BIC, r.shop.CompanyName, Reference(order), order.Total)
		if err != nil {
			return "", fmt.Errorf("erreur génération QR: %w", err)
		}
		data["QR"] = qr
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PDF imprime la facture avec Chrome headless
func (r *Renderer) PDF(ctx context.Context, order models.Order) ([]byte, error) {
	html, err := r.HTML(order)
	if err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(html))),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
