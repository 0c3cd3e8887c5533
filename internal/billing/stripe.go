package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfig holds the checkout parameters.  The price is a fixed
// monthly subscription.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	PriceCents int64
	Currency   string
	Interval   string
}

func (c StripeConfig) withDefaults() StripeConfig {
	if c.PriceCents <= 0 {
		c.PriceCents = 2999
	}
	if c.Currency == "" {
		c.Currency = string(stripe.CurrencyUSD)
	}
	if c.Interval == "" {
		c.Interval = string(stripe.PriceRecurringIntervalMonth)
	}
	return c
}

// Stripe implements Bridge with Stripe Checkout in subscription mode.
type Stripe struct {
	api *client.API
	cfg StripeConfig
}

// NewStripe talks to the live Stripe API.
func NewStripe(cfg StripeConfig) *Stripe {
	return NewStripeWithBackends(cfg, nil)
}

// NewStripeWithBackends lets tests point the client at a fake server.
func NewStripeWithBackends(cfg StripeConfig, backends *stripe.Backends) *Stripe {
	return &Stripe{api: client.New(cfg.SecretKey, backends), cfg: cfg.withDefaults()}
}

func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	meta := map[string]string{
		MetaCourseID: strconv.FormatUint(req.CourseID, 10),
		MetaUserID:   strconv.FormatUint(req.UserID, 10),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(meta[MetaUserID]),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.cfg.Currency),
				UnitAmount: stripe.Int64(s.cfg.PriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.CourseTitle),
				},
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(s.cfg.Interval),
				},
			},
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Metadata = meta
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe create checkout: %w", err)
	}
	return fromStripe(sess), nil
}

func (s *Stripe) RetrieveCheckout(ctx context.Context, sessionID string) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return CheckoutSession{}, ErrSessionNotFound
		}
		return CheckoutSession{}, fmt.Errorf("stripe retrieve checkout: %w", err)
	}
	return fromStripe(sess), nil
}

func fromStripe(sess *stripe.CheckoutSession) CheckoutSession {
	out := CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}
	if sub := sess.Subscription; sub != nil && sub.ID != "" {
		out.Subscription = &SubscriptionState{
			ID:               sub.ID,
			Status:           string(sub.Status),
			CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		}
	}
	return out
}
