package broker

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

var conn *nats.Conn

// InitProducer connects to the NATS server. The API keeps working when
// the broker is unreachable; callers decide how to degrade.
func InitProducer(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("taskdeck-api"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return err
	}
	conn = nc
	log.Printf("Connected to NATS at %s", url)
	return nil
}

// Publish sends an event payload on the given subject. A missing broker
// connection is logged and ignored so mutations never fail on publish.
func Publish(event EventType, payload interface{}) {
	if conn == nil {
		log.Printf("Broker not connected, skipping publish of %s", event)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode %s payload: %v", event, err)
		return
	}

	if err := conn.Publish(string(event), data); err != nil {
		log.Printf("Failed to publish %s: %v", event, err)
	}
}

// Message is a broker event as delivered to subscribers.
type Message struct {
	Subject string
	Data    []byte
}

// Subscribe delivers every message on the given subjects to one channel.
func Subscribe(subjects ...string) (<-chan Message, error) {
	if conn == nil {
		return nil, nats.ErrConnectionClosed
	}

	out := make(chan Message, 256)
	for _, subject := range subjects {
		_, err := conn.Subscribe(subject, func(msg *nats.Msg) {
			select {
			case out <- Message{Subject: msg.Subject, Data: msg.Data}:
			default:
				log.Printf("Subscriber channel full, dropping message on %s", msg.Subject)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func CloseProducer() {
	if conn != nil {
		if err := conn.Drain(); err != nil {
			log.Printf("Failed to drain NATS connection: %v", err)
		}
		conn = nil
	}
}
