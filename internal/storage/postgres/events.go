package postgres

import (
	"context"
	"encoding/json"

	"github.com/splitkhata/splitkhata/internal/eventlog"
)

// SaveEvent implements eventlog.Sink by appending to the events table.
func (s *Store) SaveEvent(ctx context.Context, e eventlog.Event) error {
	var data []byte
	if e.Data != nil {
		data, _ = json.Marshal(e.Data)
	}
	var md []byte
	if len(e.Metadata) > 0 {
		md, _ = json.Marshal(e.Metadata)
	}
	_, err := s.pool.Exec(ctx, `
        insert into events (id, event_type, event_data, event_metadata, created_at)
        values ($1,$2,$3,$4,$5)
    `, e.ID, e.Type, data, md, e.CreatedAt)
	return err
}
