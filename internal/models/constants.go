package models

const (
	// DeleteBatchSize is the Firestore per-batch limit used when wiping
	// the collection during a full resync.
	DeleteBatchSize = 500

	// WriteBatchSize is kept smaller than the delete limit because each
	// record carries the full parsed description payload.
	WriteBatchSize = 100

	// ChannelGraceMinutes is the validation window measured from a
	// channel record's creation time.
	ChannelGraceMinutes = 15

	// ChannelLookback is how many of the most recent channel records are
	// checked when validating a notification.
	ChannelLookback = 3

	// SyncLockTTLSeconds bounds how long a crashed sync pass can hold the
	// lease before another pass may start.
	SyncLockTTLSeconds = 300

	// FullSyncYearsBack / FullSyncYearsAhead bound the event window
	// fetched by a full resync.
	FullSyncYearsBack  = 1
	FullSyncYearsAhead = 2
)

const (
	EventStatusCancelled = "cancelled"

	ResourceStateSync   = "sync"
	ResourceStateExists = "exists"
)
