package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stocks-trader/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &recordingWriter{}
	k := &Kafka{w: w}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	e := FromTransaction(models.Transaction{
		ID: 9, UserID: 4, Symbol: "AAPL", Shares: -3,
		PricePerShare: decimal.NewFromInt(150), CreatedAt: at,
	})
	require.NoError(t, k.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "4", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var got TradeExecuted
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.EqualValues(t, -3, got.Shares)
	assert.True(t, got.PricePerShare.Equal(decimal.NewFromInt(150)))

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	k := &Kafka{w: &recordingWriter{err: errors.New("broker down")}}
	err := k.Publish(context.Background(), TradeExecuted{TransactionID: 1})
	assert.ErrorContains(t, err, "broker down")
}
