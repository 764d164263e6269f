package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripePortal はStripeのカスタマーポータルセッションを発行する。
type StripePortal struct {
	api *client.API
}

// NewStripePortal はシークレットキーからStripePortalを生成する。
// backendsがnilの場合はStripe本番APIを使用する。
func NewStripePortal(secretKey string, backends *stripe.Backends) *StripePortal {
	return &StripePortal{api: client.New(secretKey, backends)}
}

// CreatePortalSession は顧客のポータルセッションを作成し、そのURLを返す。
func (p *StripePortal) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}
	if sess.URL == "" {
		return "", fmt.Errorf("billing portal session has no url")
	}
	return sess.URL, nil
}
