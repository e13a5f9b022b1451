// Package payment encapsule les paiements par carte via Stripe.
package payment

import (
	"context"
	"log"

	"shop_back_end/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

type StripeGateway struct {
	currency string
}

// NewStripeGateway retourne nil si aucune clé n'est configurée
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	if cfg.SecretKey == "" {
		log.Println("⚠️ Stripe non configuré, paiement par carte désactivé")
		return nil
	}
	stripe.Key = cfg.SecretKey
	log.Println("✅ Stripe initialisé")
	return &StripeGateway{currency: cfg.Currency}
}

// AmountInMinorUnits convertit un montant en centimes
func AmountInMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(AmountInMinorUnits(amount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	log.Printf("💳 PaymentIntent créé: %s (%s %s)", pi.ID, amount.StringFixed(2), g.currency)
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(id, params); err != nil {
		return err
	}
	log.Printf("💳 PaymentIntent annulé: %s", id)
	return nil
}
