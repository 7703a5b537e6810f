package models

// TrendPoint - incoming messages received on a local (UTC-3) date
type TrendPoint struct {
	Date  string `json:"date" bson:"_id"` // YYYY-MM-DD format
	Count int    `json:"count" bson:"count"`
}

// TopInbox - inbox ranked by conversation volume
type TopInbox struct {
	InboxID string `json:"inboxId" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Count   int    `json:"count" bson:"count"`
}

// StatisticsResponse - dashboard overview
type StatisticsResponse struct {
	MessageTrend     []TrendPoint `json:"messageTrend"`
	TopInboxes       []TopInbox   `json:"topInboxes"`
	IncomingMessages int          `json:"incomingMessages"`
	Conversations    int          `json:"conversations"`
	Period           string       `json:"period"` // "7d", "15d", "30d", "60d", "90d"
}
