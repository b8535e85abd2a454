package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"mihari/internal/stream"
)

// AMQPPublisher はRabbitMQへアラートを発行するPublisher実装
type AMQPPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewAMQPPublisher はRabbitMQに接続してAMQPPublisherを作成する
func NewAMQPPublisher(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQへの接続に失敗: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("RabbitMQチャンネルの作成に失敗: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("エクスチェンジの宣言に失敗: %w", err)
	}

	return &AMQPPublisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// PublishAlert はアラートをJSONとして発行する
func (p *AMQPPublisher) PublishAlert(ctx context.Context, alert stream.AlertEvent) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("アラートJSONの生成に失敗: %w", err)
	}

	if err := p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("アラートの発行に失敗: %w", err)
	}
	return nil
}

// Close はチャンネルと接続を閉じる
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return fmt.Errorf("RabbitMQチャンネルのクローズに失敗: %w", err)
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("RabbitMQ接続のクローズに失敗: %w", err)
	}
	return nil
}
