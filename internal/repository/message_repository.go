package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helpdesk-insights-be/internal/database"
	"helpdesk-insights-be/internal/models"
)

type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *database.MongoDB) *MessageRepository {
	return &MessageRepository{
		collection: db.Messages(),
	}
}

// EnsureIndexes creates the index used by ListIncoming.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "direction", Value: 1},
			{Key: "inboxId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
		Options: options.Index().SetName("idx_direction_inbox_created"),
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func incomingFilter(w Window) bson.M {
	return w.filter(bson.M{"direction": models.DirectionIncoming})
}

// ListIncoming returns incoming messages of the window, oldest first.
func (r *MessageRepository) ListIncoming(ctx context.Context, w Window) ([]models.ConversationMessage, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"inboxId": 1, "createdAt": 1, "direction": 1})
	if w.Limit > 0 {
		findOptions.SetLimit(w.Limit)
	}

	cursor, err := r.collection.Find(ctx, incomingFilter(w), findOptions)
	if err != nil {
		return nil, fmt.Errorf("find incoming messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []models.ConversationMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode incoming messages: %w", err)
	}
	return messages, nil
}
