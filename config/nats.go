package config

import (
	"log"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is nil when NATS_URL is not set; transition events are then not published.
var NATS *nats.Conn

func InitNATS() {
	url := os.Getenv("NATS_URL")
	if url == "" {
		log.Println("NATS_URL not set, transition events will not be published")
		return
	}

	nc, err := nats.Connect(url,
		nats.Name("bankeu-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
	)
	if err != nil {
		log.Printf("Warning: failed to connect to NATS: %v", err)
		return
	}

	NATS = nc
	log.Println("NATS connected successfully")
}
