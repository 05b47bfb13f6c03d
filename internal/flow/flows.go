package flow

import (
	"context"

	"motobms/internal/client"
)

// NewCustomerFlow drives the new-customer page: the snapshot goes straight
// to POST /customers/. Confirming an existing candidate completes the flow
// with that customer's id and discards the draft; only create-new-anyway
// issues the create call.
func NewCustomerFlow(api *client.Client, resolver Resolver, session client.Session) *Controller {
	c := New(api, resolver, func(ctx context.Context, snap client.Snapshot) (uint, error) {
		return api.CreateCustomer(ctx, snap)
	}, session)
	c.reuseExisting = true
	return c
}

// NewEstimateFlow drives the new-estimate page: the snapshot is sent as the
// new_party of the estimate. When the operator confirmed an existing
// customer the snapshot carries its id as source_customer, so the party
// stays linked without mutating the customer.
func NewEstimateFlow(api *client.Client, resolver Resolver, session client.Session, shopID *uint, items []client.EstimateItem) *Controller {
	return New(api, resolver, func(ctx context.Context, snap client.Snapshot) (uint, error) {
		return api.CreateEstimate(ctx, client.EstimateRequest{
			ShopID:   shopID,
			NewParty: &snap,
			Items:    items,
		})
	}, session)
}

// NewOrderFlow drives the new-order page: the snapshot is sent as the
// new_customer of the order.
func NewOrderFlow(api *client.Client, resolver Resolver, session client.Session, shopID *uint, items []client.OrderItem) *Controller {
	return New(api, resolver, func(ctx context.Context, snap client.Snapshot) (uint, error) {
		return api.CreateOrder(ctx, client.OrderRequest{
			ShopID:      shopID,
			NewCustomer: &snap,
			Items:       items,
		})
	}, session)
}
