package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

const (
	ChallengeEventsExchange = "kanso.challenges"
	ChallengeCompletedKey   = "challenge.completed"

	publishTimeout = 5 * time.Second
)

var ErrPublisherClosed = errors.New("publisher is closed")

// RabbitMQPublisher sends challenge events to a topic exchange. The
// connection is dialed lazily again after the broker drops it.
type RabbitMQPublisher struct {
	url    string
	logger *zap.Logger

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	closeChan chan *amqp.Error
	closed    bool
}

func NewRabbitMQPublisher(url string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{url: url, logger: logger}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect expects p.mu to be held.
func (p *RabbitMQPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ChallengeEventsExchange, // name
		amqp.ExchangeTopic,      // kind
		true,                    // durable
		false,                   // auto-deleted
		false,                   // internal
		false,                   // no-wait
		nil,                     // arguments
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", ChallengeEventsExchange, err)
	}

	p.conn = conn
	p.ch = ch
	p.closeChan = conn.NotifyClose(make(chan *amqp.Error, 1))
	p.logger.Info("RabbitMQ publisher connected", zap.String("exchange", ChallengeEventsExchange))
	return nil
}

// channel returns a live channel, reconnecting if the broker closed the last one.
func (p *RabbitMQPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}

	select {
	case err := <-p.closeChan:
		p.logger.Warn("RabbitMQ connection lost, reconnecting", zap.Error(err))
		p.conn, p.ch = nil, nil
	default:
	}

	if p.ch == nil || p.ch.IsClosed() {
		if p.conn != nil {
			p.conn.Close()
		}
		if err := p.connect(); err != nil {
			return nil, err
		}
	}
	return p.ch, nil
}

func (p *RabbitMQPublisher) PublishChallengeCompleted(ctx context.Context, event domain.ChallengeCompletedEvent) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(event); err != nil {
		return err
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		ChallengeEventsExchange, // exchange
		ChallengeCompletedKey,   // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ChallengeID,
			Timestamp:    event.CompletedAt,
			Body:         buffer.Bytes(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish challenge %s: %w", event.ChallengeID, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishChallengeCompleted(context.Context, domain.ChallengeCompletedEvent) error {
	return nil
}
