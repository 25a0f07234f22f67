package events

import (
	"fmt"
	"time"

	"github.com/hamba/avro/v2"
)

const CatalogEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "catalog",
	"name": "catalog_event",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "type", "type": "string"},
		{"name": "product_id", "type": "long"},
		{"name": "image_ids", "type": {"type": "array", "items": "long"}},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type catalogEventV1 struct {
	ID         string    `avro:"id"`
	Type       string    `avro:"type"`
	ProductID  int64     `avro:"product_id"`
	ImageIDs   []int64   `avro:"image_ids"`
	OccurredAt time.Time `avro:"occurred_at"`
}

// Codec converts events to and from their avro wire form
type Codec struct {
	schema avro.Schema
}

func NewCodec() (*Codec, error) {
	s, err := avro.Parse(CatalogEventSchemaTextV1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event schema: %w", err)
	}
	return &Codec{schema: s}, nil
}

func (c *Codec) Encode(e Event) ([]byte, error) {
	v := catalogEventV1{
		ID:         e.ID,
		Type:       string(e.Type),
		ProductID:  int64(e.ProductID),
		ImageIDs:   make([]int64, len(e.ImageIDs)),
		OccurredAt: e.OccurredAt,
	}
	for i, id := range e.ImageIDs {
		v.ImageIDs[i] = int64(id)
	}

	data, err := avro.Marshal(c.schema, v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}

func (c *Codec) Decode(data []byte) (Event, error) {
	var v catalogEventV1
	if err := avro.Unmarshal(c.schema, data, &v); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}

	e := Event{
		ID:         v.ID,
		Type:       Type(v.Type),
		ProductID:  uint(v.ProductID),
		OccurredAt: v.OccurredAt,
	}
	if len(v.ImageIDs) > 0 {
		e.ImageIDs = make([]uint, len(v.ImageIDs))
		for i, id := range v.ImageIDs {
			e.ImageIDs[i] = uint(id)
		}
	}
	return e, nil
}
