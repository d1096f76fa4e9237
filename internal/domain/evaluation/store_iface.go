package evaluation

import (
	"context"
	"time"
)

type StoreAPI interface {
	WithinTx(ctx context.Context, fn func(StoreAPI) error) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]Evaluation, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Get(ctx context.Context, id string) (Evaluation, error)
	Create(ctx context.Context, in CreateInput, status, createdBy string) (string, error)
	Update(ctx context.Context, id, name, description string, start, end time.Time) error
	UpdateStatus(ctx context.Context, id, status string) error
	CreateTopic(ctx context.Context, evaluationID string, in TopicInput) (string, error)
	TopicExists(ctx context.Context, topicID string) (bool, error)
	CreateIndicator(ctx context.Context, topicID string, in IndicatorInput) (string, error)
	ListTopics(ctx context.Context, evaluationID string) ([]Topic, error)
	ListAssignmentRefs(ctx context.Context, evaluationID string) ([]AssignmentRef, error)
}
