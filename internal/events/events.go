// Package events publishes catalog change notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ProductCreated Type = "product.created"
	ProductUpdated Type = "product.updated"
	ProductDeleted Type = "product.deleted"
)

// Event describes one committed change to a product aggregate
type Event struct {
	ID         string
	Type       Type
	ProductID  uint
	ImageIDs   []uint
	OccurredAt time.Time
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(t Type, productID uint, imageIDs []uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ProductID:  productID,
		ImageIDs:   imageIDs,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher drops every event; it is used when no brokers are configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}
