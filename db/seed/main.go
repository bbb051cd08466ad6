package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/repository"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/internal/templates"
	"github.com/jalvirtual/acars-dispatch/pkg/database"
	"github.com/jalvirtual/acars-dispatch/pkg/redis"
)

var flights = []string{"JAL123", "JAL456", "JAL789", "JAL042"}

// demoTraffic builds a day of mixed traffic: one template per flight going
// out and a crew reply coming back.
func demoTraffic(station string, now time.Time) []domain.ACARSMessage {
	tmpls := templates.All()
	var out []domain.ACARSMessage

	for i, flight := range flights {
		tmpl := tmpls[i%len(tmpls)]
		sentAt := now.Add(-time.Duration(len(flights)-i) * time.Hour)

		out = append(out, domain.NewOutboundMessage(uuid.NewString(), domain.OutboundRequest{
			From:   station,
			To:     flight,
			Type:   tmpl.Type,
			Packet: tmpl.Content,
		}, sentAt))

		out = append(out, domain.ACARSMessage{
			ID:        uuid.NewString(),
			Timestamp: sentAt.Add(5 * time.Minute),
			From:      flight,
			To:        station,
			Type:      domain.TypeTelex,
			Content:   fmt.Sprintf("%s RECEIVED THANKS", tmpl.Name),
			Status:    domain.StatusDelivered,
			Priority:  domain.PriorityNormal,
		})
	}

	out = append(out, domain.NewOutboundMessage(uuid.NewString(), domain.OutboundRequest{
		From:     station,
		To:       flights[0],
		Type:     domain.TypePDC,
		Packet:   "CLR TO RJTT VIA SID LAXAS1 SQUAWK 2301",
		Priority: domain.PriorityHigh,
	}, now.Add(-10*time.Minute)))

	return out
}

func main() {
	cfg, err := environments.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var persister store.Persister

	switch cfg.Storage.Driver {
	case environments.DriverValkey:
		client, err := redis.NewRedisClient(cfg.Redis, cfg.Storage.Namespace)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() {
			_ = client.Close()
		}()
		persister = client

	default:
		db, err := database.Open(cfg.Storage, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("Failed to close database: %v", err)
			}
		}()
		persister = repository.NewMessageRepository(db, cfg.Storage.Namespace)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	messages := store.New(persister)
	if _, err := messages.Load(ctx); err != nil {
		log.Fatalf("Failed to load existing messages: %v", err)
	}

	merged, err := messages.Merge(ctx, demoTraffic(cfg.Hoppie.Station, time.Now().UTC()))
	if err != nil {
		log.Fatalf("Failed to seed messages: %v", err)
	}

	log.Printf("Seed completed successfully: %d messages added, %d total", merged, messages.Len())
}
