package audit

import (
	"encoding/csv"
	"io"
	"time"
)

func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "actor_id", "actor_name", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write([]string{
			e.ID, e.ActorID, e.ActorName, e.Action, e.EntityType, e.EntityID, e.RequestID, e.IP,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
