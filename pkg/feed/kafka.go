package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/uhyunpark/matchcore/pkg/storage"
)

// TradeMessage is the JSON value written to the trade topic.
type TradeMessage struct {
	TradeID    uint64 `json:"tradeId"`
	MakerID    uint64 `json:"makerId"`
	TakerID    uint64 `json:"takerId"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	TakerSide  string `json:"takerSide"`
	ExecutedAt int64  `json:"executedAt"`
}

func NewTradeMessage(tr storage.TradeRecord) TradeMessage {
	return TradeMessage{
		TradeID:    uint64(tr.ID),
		MakerID:    uint64(tr.MakerID),
		TakerID:    uint64(tr.TakerID),
		Price:      tr.Price,
		Quantity:   tr.Qty,
		TakerSide:  tr.TakerSide.String(),
		ExecutedAt: tr.ExecutedAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes every trade of a submission as one synchronous batch.
// Messages are keyed by maker id so fills against one resting order land on
// one partition in order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func encodeTrades(trades []storage.TradeRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, tr := range trades {
		val, err := json.Marshal(NewTradeMessage(tr))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal trade %d: %w", tr.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(tr.MakerID.String()),
			Value: val,
		})
	}
	return msgs, nil
}

func (p *KafkaPublisher) PublishTrades(ctx context.Context, trades []storage.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	msgs, err := encodeTrades(trades)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d trades: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
