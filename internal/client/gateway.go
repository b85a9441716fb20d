package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/breaker"
)

// Gateway wraps every outbound call to a single remote dependency with the
// dependency's circuit breaker and timeout. It classifies the result into an
// Outcome; when the dependency is judged unavailable the
// caller-supplied fallback value is substituted. This is the only place
// fallbacks are injected. The gateway never retries: retry policy belongs to
// the breaker cooldown alone.
type Gateway struct {
	name    string
	logger  *slog.Logger
	client  *http.Client
	breaker *breaker.Breaker
}

func NewGateway(logger *slog.Logger, name string, timeout time.Duration, br *breaker.Breaker) *Gateway {
	br.OnStateChange(func(s breaker.State) {
		breakerState.WithLabelValues(name).Set(float64(s))
	})
	return &Gateway{
		name:    name,
		logger:  logger.With(slog.String("dependency", name)),
		client:  &http.Client{Timeout: timeout},
		breaker: br,
	}
}

type result[T any] struct {
	outcome entities.Outcome
	value   T
}

// call issues exactly one GET-style request and decodes the JSON payload into
// T. On unavailability (open circuit, transport failure, timeout, 503) the
// fallback is returned tagged unavailable.
func call[T any](ctx context.Context, g *Gateway, method, url string, body any, fallback T) result[T] {
	res := result[T]{value: fallback}
	res.outcome = g.exchange(ctx, method, url, body, func(resp *http.Response) entities.Outcome {
		ct := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "application/json") {
			return entities.Outcome{
				Status: entities.VerificationRemoteError,
				Detail: fmt.Sprintf("unexpected content type %q", ct),
			}
		}
		var v T
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return entities.Outcome{
				Status: entities.VerificationRemoteError,
				Detail: fmt.Sprintf("decode response: %v", err),
			}
		}
		res.value = v
		return entities.Outcome{Status: entities.VerificationValid}
	})
	return res
}

// send issues a mutation whose response body carries no payload the caller
// needs; any 2xx counts as valid.
func send(ctx context.Context, g *Gateway, method, url string, body any) entities.Outcome {
	return g.exchange(ctx, method, url, body, func(resp *http.Response) entities.Outcome {
		io.Copy(io.Discard, resp.Body)
		return entities.Outcome{Status: entities.VerificationValid}
	})
}

// exchange holds the shared guarded-call skeleton: breaker admission, the
// single request, and the status classification. on2xx consumes a successful
// response.
func (g *Gateway) exchange(ctx context.Context, method, url string, body any, on2xx func(*http.Response) entities.Outcome) entities.Outcome {
	if !g.breaker.Allow() {
		g.logger.WarnContext(ctx, "circuit open, call suppressed", slog.String("url", url))
		return g.classified(entities.Outcome{Status: entities.VerificationUnavailable, Detail: "circuit open"})
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			g.breaker.Record(true)
			return g.classified(entities.Outcome{
				Status: entities.VerificationRemoteError,
				Detail: fmt.Sprintf("encode request: %v", err),
			})
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		g.breaker.Record(true)
		return g.classified(entities.Outcome{
			Status: entities.VerificationRemoteError,
			Detail: fmt.Sprintf("build request: %v", err),
		})
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// transport failure or timeout: the dependency's truth cannot be
		// established, counts against the breaker
		g.breaker.Record(false)
		g.logger.WarnContext(ctx, "dependency call failed", slog.String("url", url), slog.Any("error", err))
		return g.classified(entities.Outcome{Status: entities.VerificationUnavailable, Detail: err.Error()})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// a legitimate business outcome, not a fault
		g.breaker.Record(true)
		io.Copy(io.Discard, resp.Body)
		return g.classified(entities.Outcome{Status: entities.VerificationNotFound})
	case resp.StatusCode == http.StatusServiceUnavailable:
		g.breaker.Record(false)
		io.Copy(io.Discard, resp.Body)
		return g.classified(entities.Outcome{Status: entities.VerificationUnavailable, Detail: "service unavailable"})
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		g.breaker.Record(true)
		return g.classified(on2xx(resp))
	default:
		g.breaker.Record(resp.StatusCode < 500)
		io.Copy(io.Discard, resp.Body)
		return g.classified(entities.Outcome{
			Status: entities.VerificationRemoteError,
			Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		})
	}
}

func (g *Gateway) classified(o entities.Outcome) entities.Outcome {
	dependencyCalls.WithLabelValues(g.name, o.Status.String()).Inc()
	return o
}
