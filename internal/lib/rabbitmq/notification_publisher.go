package rabbitmq

import (
	"github.com/streadway/amqp"
)

// NotificationPublisher публикует уведомления в заранее настроенный
// обменник с фиксированным ключом маршрутизации.
type NotificationPublisher struct {
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewNotificationPublisher создает новый NotificationPublisher.
func NewNotificationPublisher(ch *amqp.Channel, exchange, routingKey string) *NotificationPublisher {
	return &NotificationPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

// Publish отправляет сообщение в обменник уведомлений.
func (p *NotificationPublisher) Publish(message any) error {
	return PublishMessage(p.ch, p.exchange, p.routingKey, message)
}
