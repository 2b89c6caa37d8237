package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/internal/domain"
)

const OrderPaidQueue = "order.paid"

type OrderPaid struct {
	EventType  string          `json:"eventType"`
	EventID    string          `json:"eventId"`
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	TotalPrice string          `json:"totalPrice"`
	Items      []OrderPaidItem `json:"items"`
	Timestamp  time.Time       `json:"timestamp"`
}

type OrderPaidItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
	Price     string `json:"price"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher announces settled orders on RabbitMQ.
type Publisher struct {
	ch channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(OrderPaidQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", OrderPaidQueue, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPaid(ctx context.Context, o *domain.Order) error {
	ev := OrderPaid{
		EventType:  "OrderPaid",
		EventID:    uuid.NewString(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      make([]OrderPaidItem, 0, len(o.Items)),
		Timestamp:  time.Now().UTC(),
	}
	if o.PaidAt != nil {
		ev.Timestamp = o.PaidAt.UTC()
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderPaidItem{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price})
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderPaid: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(pubCtx, "", OrderPaidQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Body:         body,
	})
}
