package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"helpdesk-insights-be/internal/database"
	"helpdesk-insights-be/internal/models"
)

// localTimezone is the offset used for day buckets, matching insights.ReferenceZone.
const localTimezone = "-03:00"

type StatisticsRepository struct {
	messageCollection      *mongo.Collection
	conversationCollection *mongo.Collection
}

func NewStatisticsRepository(db *database.MongoDB) *StatisticsRepository {
	return &StatisticsRepository{
		messageCollection:      db.Messages(),
		conversationCollection: db.Conversations(),
	}
}

func messageTrendPipeline(w Window) []bson.M {
	return []bson.M{
		{"$match": incomingFilter(w)},
		{"$group": bson.M{
			"_id": bson.M{
				"$dateToString": bson.M{
					"format":   "%Y-%m-%d",
					"date":     "$createdAt",
					"timezone": localTimezone,
				},
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}
}

// GetMessageTrend aggregates incoming messages per local day
func (r *StatisticsRepository) GetMessageTrend(ctx context.Context, w Window) ([]models.TrendPoint, error) {
	cursor, err := r.messageCollection.Aggregate(ctx, messageTrendPipeline(w))
	if err != nil {
		return nil, fmt.Errorf("aggregate message trend: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.TrendPoint
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode message trend: %w", err)
	}
	return results, nil
}

func topInboxesPipeline(w Window, limit int) []bson.M {
	return []bson.M{
		{"$match": w.filter(nil)},
		{"$group": bson.M{
			"_id":   "$inboxId",
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		{"$limit": limit},
		{"$lookup": bson.M{
			"from":         database.InboxesCollection,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "inbox",
		}},
		{"$project": bson.M{
			"count": 1,
			"name":  bson.M{"$ifNull": []interface{}{bson.M{"$first": "$inbox.name"}, ""}},
		}},
	}
}

// GetTopInboxes ranks inboxes by conversations opened in the window
func (r *StatisticsRepository) GetTopInboxes(ctx context.Context, w Window, limit int) ([]models.TopInbox, error) {
	cursor, err := r.conversationCollection.Aggregate(ctx, topInboxesPipeline(w, limit))
	if err != nil {
		return nil, fmt.Errorf("aggregate top inboxes: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.TopInbox
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode top inboxes: %w", err)
	}
	return results, nil
}

// GetTotals counts incoming messages and conversations of the window
func (r *StatisticsRepository) GetTotals(ctx context.Context, w Window) (messages int, conversations int, err error) {
	messageCount, err := r.messageCollection.CountDocuments(ctx, incomingFilter(w))
	if err != nil {
		return 0, 0, fmt.Errorf("count messages: %w", err)
	}

	conversationCount, err := r.conversationCollection.CountDocuments(ctx, w.filter(nil))
	if err != nil {
		return 0, 0, fmt.Errorf("count conversations: %w", err)
	}

	return int(messageCount), int(conversationCount), nil
}
