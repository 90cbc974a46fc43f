package models

import "time"

// SyncCursor is the singleton document holding incremental sync state.
type SyncCursor struct {
	Token            string    `firestore:"token" json:"token"`
	FullResyncNeeded bool      `firestore:"fullResyncNeeded" json:"fullResyncNeeded"`
	UpdatedAt        time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// WebhookChannel is an active Google Calendar push subscription. During
// renewal two channels briefly coexist, so validation checks the most
// recent few records, not only the newest.
type WebhookChannel struct {
	ChannelID    string    `firestore:"channelId" json:"channelId"`
	ResourceID   string    `firestore:"resourceId" json:"resourceId"`
	Token        string    `firestore:"token" json:"token"`
	Expiration   time.Time `firestore:"expiration" json:"expiration"`
	LastSequence int64     `firestore:"lastSequence" json:"lastSequence"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

// Notification carries the parsed headers of one push delivery.
type Notification struct {
	ChannelID     string
	ResourceID    string
	ResourceState string // "sync", "exists", ...
	Token         string
	Sequence      int64
}

// FullSyncResult reports a completed full resync.
type FullSyncResult struct {
	Deleted int `json:"deleted"`
	Fetched int `json:"fetched"`
	Added   int `json:"added"`
}

// IncrementalSyncResult reports a completed incremental pass.
type IncrementalSyncResult struct {
	Upserted  int    `json:"upserted"`
	Deleted   int    `json:"deleted"`
	NextToken string `json:"-"`
}
