// Package notify envoie les e-mails transactionnels des commandes.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"shop_back_end/internal/config"
	"shop_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money": func(v interface{ StringFixed(int32) string }) string { return v.StringFixed(2) },
	"short": func(id fmt.Stringer) string { return id.String()[:8] },
}).Parse(`
{{define "confirmation"}}<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2>Thank you for your order, {{.Order.Customer.Name}}</h2>
		<p>Order <strong>#{{short .Order.ID}}</strong> has been received.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead><tr><th align="left">Product</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr></thead>
			<tbody>{{range .Order.Items}}
				<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td><td align="right">{{money .LineTotal}}</td></tr>{{end}}
			</tbody>
			<tfoot>
				<tr><td colspan="3" align="right">Shipping</td><td align="right">{{money .Order.Shipping}}</td></tr>
				<tr><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{money .Order.Total}}</strong></td></tr>
			</tfoot>
		</table>
		<p>Delivery address: {{.Order.Customer.Address}}</p>
		<p style="color: #555;">{{.Shop}}</p>
	</div>
</body>
</html>{{end}}
{{define "status"}}<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; padding: 20px;">
	<h2>Your order #{{short .Order.ID}} is now {{.Order.Status}}</h2>
	{{if .Order.DeliveredAt}}<p>Delivered on {{.Order.DeliveredAt.Format "2006-01-02"}}.</p>{{end}}
	<p>Total: {{money .Order.Total}}</p>
	<p style="color: #555;">{{.Shop}}</p>
</body>
</html>{{end}}
`))

type Mailer struct {
	cfg  config.SMTPConfig
	shop string
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewMailer(cfg config.SMTPConfig, shop string) *Mailer {
	m := &Mailer{cfg: cfg, shop: shop}
	m.send = m.dialAndSend
	if cfg.Host == "" {
		log.Println("⚠️ SMTP non configuré, e-mails désactivés")
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func render(name string, order models.Order, shop string) (string, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, map[string]interface{}{"Order": order, "Shop": shop})
	return buf.String(), err
}

// Send compose et envoie un message HTML
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	log.Println("📤 Envoi de l'e-mail à", to)
	return m.send(ctx, msg)
}

func (m *Mailer) OrderConfirmation(ctx context.Context, order models.Order) error {
	body, err := render("confirmation", order, m.shop)
	if err != nil {
		return err
	}
	return m.Send(ctx, order.Customer.Email, fmt.Sprintf("Order confirmation #%s", order.ID.String()[:8]), body)
}

func (m *Mailer) OrderStatusChanged(ctx context.Context, order models.Order) error {
	body, err := render("status", order, m.shop)
	if err != nil {
		return err
	}
	return m.Send(ctx, order.Customer.Email, fmt.Sprintf("Order #%s: %s", order.ID.String()[:8], order.Status), body)
}

// async envoie en arrière-plan ; un échec est seulement journalisé
func (m *Mailer) async(order models.Order, send func(context.Context, models.Order) error) {
	if !m.Enabled() || order.Customer.Email == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx, order); err != nil {
			log.Printf("❌ E-mail commande %s: %v", order.ID, err)
		}
	}()
}

// OrderPlaced notifie le client d'une nouvelle commande
func (m *Mailer) OrderPlaced(order models.Order) {
	m.async(order, m.OrderConfirmation)
}

// StatusChanged notifie le client d'un changement de statut
func (m *Mailer) StatusChanged(order models.Order) {
	m.async(order, m.OrderStatusChanged)
}
