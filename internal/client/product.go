package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/config"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/breaker"
	"github.com/shopspring/decimal"
)

type productPayload struct {
	ID       int64            `json:"product_id"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

type quantityPatch struct {
	Quantity int `json:"quantity"`
}

// ProductClient fetches catalog details and pushes inventory adjustments to
// the product service through its guarded gateway.
type ProductClient struct {
	gw      *Gateway
	baseURL string
}

func NewProductClient(logger *slog.Logger, cfg config.Dependency) *ProductClient {
	br := breaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)
	return &ProductClient{
		gw:      NewGateway(logger, "product-service", cfg.Timeout, br),
		baseURL: strings.TrimRight(cfg.URL, "/"),
	}
}

func (c *ProductClient) VerifyExists(ctx context.Context, productID int64) entities.Outcome {
	_, outcome := c.GetProduct(ctx, productID)
	return outcome
}

func (c *ProductClient) GetProduct(ctx context.Context, productID int64) (entities.Product, entities.Outcome) {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, productID)
	res := call(ctx, c.gw, http.MethodGet, url, nil, productPayload{})
	if !res.outcome.Valid() {
		return entities.Product{}, res.outcome
	}
	if res.value.Price == nil || res.value.Quantity == nil {
		return entities.Product{}, entities.Outcome{
			Status: entities.VerificationInvalidPayload,
			Detail: "price or quantity missing in response",
		}
	}
	return entities.Product{
		ID:       res.value.ID,
		Price:    *res.value.Price,
		Quantity: *res.value.Quantity,
	}, res.outcome
}

// UpdateQuantity sets the absolute available quantity for a product. The new
// value is computed by the caller from the quantity it just fetched.
func (c *ProductClient) UpdateQuantity(ctx context.Context, productID int64, quantity int) entities.Outcome {
	url := fmt.Sprintf("%s/products/%d/quantity", c.baseURL, productID)
	return send(ctx, c.gw, http.MethodPatch, url, quantityPatch{Quantity: quantity})
}
