package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Window selects documents created since a point in time. InboxID wins over InboxIDs.
type Window struct {
	Since    time.Time
	InboxID  string
	InboxIDs []string
	Limit    int64
}

func (w Window) filter(extra bson.M) bson.M {
	filter := bson.M{"createdAt": bson.M{"$gte": w.Since}}
	switch {
	case w.InboxID != "":
		filter["inboxId"] = w.InboxID
	case w.InboxIDs != nil:
		filter["inboxId"] = bson.M{"$in": w.InboxIDs}
	}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}
