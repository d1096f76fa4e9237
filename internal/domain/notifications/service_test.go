package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	created []string
	emails  map[string]string
}

func (m *memStore) CreateNotification(_ context.Context, userID, _, _, _ string) error {
	if userID == "broken" {
		return errors.New("insert failed")
	}
	m.created = append(m.created, userID)
	return nil
}

func (m *memStore) UserEmail(_ context.Context, userID string) (string, error) {
	return m.emails[userID], nil
}

func (m *memStore) ListNotifications(context.Context, string, bool, int, int) ([]Notification, error) {
	return []Notification{}, nil
}

func (m *memStore) CountNotifications(context.Context, string, bool) (int, error) { return 0, nil }

func (m *memStore) MarkRead(context.Context, string, string) error { return nil }

type recordingMailer struct {
	sent []string
}

func (r *recordingMailer) Send(_ context.Context, from, to, _, _ string) error {
	r.sent = append(r.sent, from+"->"+to)
	return nil
}

func TestNotifyDeduplicatesAndMails(t *testing.T) {
	store := &memStore{emails: map[string]string{"u1": "u1@example.com"}}
	mailer := &recordingMailer{}
	svc := New(store, mailer)
	svc.DefaultFrom = "eval@example.com"

	svc.Notify(context.Background(), []string{"u1", "u2", "u1", "", "broken"}, TypeAssignmentCreated, "New assignment", "")

	assert.Equal(t, []string{"u1", "u2"}, store.created)
	require.Len(t, mailer.sent, 1, "users without an email get no mail")
	assert.Equal(t, "eval@example.com->u1@example.com", mailer.sent[0])
}

func TestCreateWithoutMailer(t *testing.T) {
	store := &memStore{}
	svc := New(store, nil)
	require.NoError(t, svc.Create(context.Background(), "u1", TypeEvidenceUploaded, "Evidence", ""))
	assert.Equal(t, []string{"u1"}, store.created)
}
