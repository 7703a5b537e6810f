package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helpdesk-insights-be/internal/database"
	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/models"
)

type InboxRepository struct {
	collection *mongo.Collection
	chunkSize  int
}

// NewInboxRepository creates the repository. chunkSize bounds the ids of one $in lookup.
func NewInboxRepository(db *database.MongoDB, chunkSize int) *InboxRepository {
	if chunkSize <= 0 {
		chunkSize = insights.DefaultChunkSize
	}
	return &InboxRepository{
		collection: db.Inboxes(),
		chunkSize:  chunkSize,
	}
}

func (r *InboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "instanceId", Value: 1}},
		Options: options.Index().SetName("idx_instance_id"),
	})
	if err != nil {
		return fmt.Errorf("create inbox indexes: %w", err)
	}
	return nil
}

// Resolve looks up inboxes by id in chunks. Unknown ids are absent from the result.
func (r *InboxRepository) Resolve(ctx context.Context, ids []string) (map[string]models.Inbox, error) {
	return insights.FetchInChunks(ctx, ids, r.chunkSize, r.findByIDs)
}

func (r *InboxRepository) findByIDs(ctx context.Context, ids []string) (map[string]models.Inbox, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find inboxes: %w", err)
	}
	defer cursor.Close(ctx)

	var inboxes []models.Inbox
	if err = cursor.All(ctx, &inboxes); err != nil {
		return nil, fmt.Errorf("decode inboxes: %w", err)
	}

	out := make(map[string]models.Inbox, len(inboxes))
	for _, ib := range inboxes {
		out[ib.ID] = ib
	}
	return out, nil
}

// ListByInstance returns the inboxes of an instance ordered by name.
func (r *InboxRepository) ListByInstance(ctx context.Context, instanceID string) ([]models.Inbox, error) {
	filter := bson.M{}
	if instanceID != "" {
		filter["instanceId"] = instanceID
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list inboxes: %w", err)
	}
	defer cursor.Close(ctx)

	var inboxes []models.Inbox
	if err = cursor.All(ctx, &inboxes); err != nil {
		return nil, fmt.Errorf("decode inboxes: %w", err)
	}
	return inboxes, nil
}
