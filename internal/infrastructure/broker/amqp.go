package broker

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial opens a broker connection. Callers own Close.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	log.Println("amqp: connected")
	return conn, nil
}
