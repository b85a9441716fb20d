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
)

type userPayload struct {
	ID           int64  `json:"user_id"`
	Name         string `json:"user_name"`
	ResponseCode string `json:"response_code"`
}

// UserClient verifies users against the user directory service. A thin
// specialization over the gateway: it only interprets the decoded payload, it
// does not retry or cache.
type UserClient struct {
	gw      *Gateway
	baseURL string
}

func NewUserClient(logger *slog.Logger, cfg config.Dependency) *UserClient {
	br := breaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)
	return &UserClient{
		gw:      NewGateway(logger, "user-service", cfg.Timeout, br),
		baseURL: strings.TrimRight(cfg.URL, "/"),
	}
}

func (c *UserClient) VerifyExists(ctx context.Context, userID int64) entities.Outcome {
	_, outcome := c.GetUser(ctx, userID)
	return outcome
}

func (c *UserClient) GetUser(ctx context.Context, userID int64) (entities.User, entities.Outcome) {
	url := fmt.Sprintf("%s/users/%d", c.baseURL, userID)
	res := call(ctx, c.gw, http.MethodGet, url, nil, userPayload{})
	if !res.outcome.Valid() {
		return entities.User{}, res.outcome
	}
	if res.value.Name == "" {
		return entities.User{}, entities.Outcome{
			Status: entities.VerificationInvalidPayload,
			Detail: "user_name missing in response",
		}
	}
	return entities.User{ID: res.value.ID, Name: res.value.Name}, res.outcome
}
