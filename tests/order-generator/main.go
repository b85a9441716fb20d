package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

type OrderRequest struct {
	UserID    int64   `json:"user_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

var prices = []float64{4.99, 10.00, 19.95, 25.50, 99.99}

func generateRequest() OrderRequest {
	return OrderRequest{
		UserID:    int64(rand.Intn(20) + 1),
		ProductID: int64(rand.Intn(10) + 1),
		Quantity:  rand.Intn(5) + 1,
		Price:     prices[rand.Intn(len(prices))],
	}
}

func main() {
	writer := &kafka.Writer{
		Addr:  kafka.TCP("localhost:9092"),
		Topic: "order-requests",
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	for {
		select {
		case <-ticker.C:
			req := generateRequest()
			// one in ten is garbage, to exercise the dead letter path
			data := []byte(`{"user_id": "oops"`)
			if rand.Intn(10) != 0 {
				data, _ = json.Marshal(req)
			}
			if err := writer.WriteMessages(context.Background(), kafka.Message{Value: data}); err != nil {
				log.Println("failed to write message:", err)
				continue
			}
			log.Printf("request generated: user=%d product=%d qty=%d", req.UserID, req.ProductID, req.Quantity)
		case <-ctx.Done():
			return
		}
	}
}
