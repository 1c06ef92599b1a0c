package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitDelivery settles a decoded job through its AMQP delivery
type rabbitDelivery struct {
	job *Job
	raw amqp.Delivery
}

var _ Delivery = (*rabbitDelivery)(nil)

func (d *rabbitDelivery) Job() *Job { return d.job }

func (d *rabbitDelivery) Ack() error { return d.raw.Ack(false) }

func (d *rabbitDelivery) Nack(requeue bool) error { return d.raw.Nack(false, requeue) }
