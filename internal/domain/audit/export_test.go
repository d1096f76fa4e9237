package audit

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, WriteCSV(&buf, []Event{{
		ID: "e1", ActorID: "u1", ActorName: "Root", Action: "score.save", EntityType: "score",
		EntityID: "s1", RequestID: "r1", IP: "10.0.0.1", CreatedAt: created,
	}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "score.save", records[1][3])
	assert.Equal(t, "2026-02-03T04:05:06Z", records[1][8])
}

func TestBuildBaseQuery(t *testing.T) {
	svc := New(nil)
	query, args := svc.buildBaseQuery("SELECT 1", Filter{Action: "user.create", ActorUser: "u1"})
	assert.Contains(t, query, "ae.action = $1")
	assert.Contains(t, query, "ae.actor_user_id::text = $2")
	assert.Equal(t, []any{"user.create", "u1"}, args)
}
