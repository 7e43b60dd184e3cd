// Package events publishes executed trades to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"stocks-trader/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// TradeExecuted is emitted after a trade has been committed.
type TradeExecuted struct {
	TransactionID uint            `json:"transaction_id"`
	UserID        uint            `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Shares        int64           `json:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	CreatedAt     time.Time       `json:"created_at"`
}

func FromTransaction(t models.Transaction) TradeExecuted {
	return TradeExecuted{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Symbol:        t.Symbol,
		Shares:        t.Shares,
		PricePerShare: t.PricePerShare,
		CreatedAt:     t.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e TradeExecuted) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, TradeExecuted) error { return nil }
func (Nop) Close() error                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events as JSON, keyed by user so a user's trades stay ordered
// within a partition.
type Kafka struct {
	w messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Publish(ctx context.Context, e TradeExecuted) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.UserID), 10)),
		Value: value,
		Time:  e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("publish trade %d: %w", e.TransactionID, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }
