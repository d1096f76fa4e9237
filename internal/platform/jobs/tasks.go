package jobs

import (
	"context"
	"encoding/json"
	"time"

	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/metrics"
)

type EmailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailHandler delivers a queued message through mailer.
func EmailHandler(mailer notifications.Mailer) Handler {
	return func(ctx context.Context, payload []byte) (any, error) {
		var msg EmailPayload
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, err
		}
		if err := mailer.Send(ctx, msg.From, msg.To, msg.Subject, msg.Body); err != nil {
			return nil, err
		}
		return map[string]string{"to": msg.To}, nil
	}
}

// QueuedMailer defers delivery to the email job.
type QueuedMailer struct {
	Jobs *Service
}

func (q QueuedMailer) Send(ctx context.Context, from, to, subject, body string) error {
	return q.Jobs.Enqueue(ctx, TypeEmail, EmailPayload{From: from, To: to, Subject: subject, Body: body})
}

// NotificationMailer registers the email job on s and returns the mailer
// notifications should use. Enabled mail is always delivered by the job,
// through Redis or the in-process queue, so sending stays off the request
// path.
func NotificationMailer(s *Service, direct notifications.Mailer, enabled bool) notifications.Mailer {
	s.Register(TypeEmail, EmailHandler(direct))
	if !enabled {
		return direct
	}
	return QueuedMailer{Jobs: s}
}

// ExpiryStore closes evaluations whose end date has passed and locks the
// submitted assignments that belong to them.
type ExpiryStore interface {
	CloseExpired(ctx context.Context, now time.Time) ([]string, error)
	LockSubmitted(ctx context.Context, evaluationIDs []string) (int64, error)
}

// ExpiryTx runs fn with every ExpiryStore call bound to one transaction. An
// error from fn rolls the whole run back.
type ExpiryTx func(ctx context.Context, fn func(ExpiryStore) error) error

type CloseExpiredResult struct {
	EvaluationIDs     []string `json:"evaluationIds"`
	Closed            int      `json:"closed"`
	LockedAssignments int64    `json:"lockedAssignments"`
}

// CloseExpiredHandler closes expired evaluations and locks their submitted
// assignments. Both steps commit together so a failed lock leaves the
// evaluations OPEN for the next run.
func CloseExpiredHandler(expiry ExpiryTx, m *metrics.Collector, now func() time.Time) Handler {
	return func(ctx context.Context, _ []byte) (any, error) {
		var res CloseExpiredResult
		err := expiry(ctx, func(st ExpiryStore) error {
			ids, err := st.CloseExpired(ctx, now())
			if err != nil {
				return err
			}
			res = CloseExpiredResult{EvaluationIDs: ids, Closed: len(ids)}
			if len(ids) == 0 {
				res.EvaluationIDs = []string{}
				return nil
			}
			locked, err := st.LockSubmitted(ctx, ids)
			if err != nil {
				return err
			}
			res.LockedAssignments = locked
			return nil
		})
		if err != nil {
			return nil, err
		}
		if res.Closed > 0 {
			m.Add(metrics.EventEvaluationsClosed, uint64(res.Closed))
		}
		return res, nil
	}
}
