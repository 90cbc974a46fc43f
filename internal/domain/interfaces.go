package domain

import (
	"context"
	"errors"
	"time"

	"gys/internal/models"
)

// GelinStore is the document-store surface the sync engine writes to.
type GelinStore interface {
	Get(ctx context.Context, id string) (*models.Gelin, error)
	List(ctx context.Context, from, to string) ([]*models.Gelin, error)
	ListIDs(ctx context.Context) ([]string, error)
	Batch() WriteBatch
}

// WriteBatch queues document mutations for a single atomic commit.
// Merge writes only touch the provided fields; absent fields keep their
// stored values.
type WriteBatch interface {
	SetMerge(id string, fields map[string]interface{})
	Set(id string, fields map[string]interface{})
	Delete(id string)
	Len() int
	Commit(ctx context.Context) error
}

// CursorStore persists the singleton incremental sync cursor.
type CursorStore interface {
	GetCursor(ctx context.Context) (*models.SyncCursor, error)
	SaveCursor(ctx context.Context, cursor *models.SyncCursor) error
}

// ErrStaleSequence reports a conditional sequence advance that lost to
// an equal or higher stored value.
var ErrStaleSequence = errors.New("channel: stale sequence")

// ChannelStore persists webhook channel records, newest first.
// AdvanceSequence only moves the high-water mark forward: an equal or
// lower value fails with ErrStaleSequence, atomically with the check.
type ChannelStore interface {
	SaveChannel(ctx context.Context, ch *models.WebhookChannel) error
	RecentChannels(ctx context.Context, n int) ([]*models.WebhookChannel, error)
	AdvanceSequence(ctx context.Context, channelID string, seq int64) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// EventProvider abstracts the external calendar. ListWindow pages through
// every event in a time window and bootstraps a sync token so the caller
// can switch to the delta path afterwards; Changes returns the delta
// since a sync token, including cancelled events. A rejected token
// surfaces as calendar.ErrSyncTokenInvalid, distinct from other provider
// failures.
type EventProvider interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]*models.CalendarEvent, string, error)
	Changes(ctx context.Context, syncToken string) ([]*models.CalendarEvent, string, error)
	Watch(ctx context.Context, channelID, token, address string, ttl time.Duration) (*models.WebhookChannel, error)
	StopChannel(ctx context.Context, channelID, resourceID string) error
}

// Locker is the lease guarding against overlapping sync passes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, owner string) error
}

// PersonnelRepository covers staff records and attendance check-ins.
type PersonnelRepository interface {
	CreatePersonnel(ctx context.Context, p *models.Personnel) error
	UpdatePersonnel(ctx context.Context, p *models.Personnel) error
	GetPersonnel(ctx context.Context, id int64) (*models.Personnel, error)
	ListPersonnel(ctx context.Context, activeOnly bool) ([]*models.Personnel, error)
	DeactivatePersonnel(ctx context.Context, id int64) error
	CreateAttendance(ctx context.Context, rec *models.AttendanceRecord) error
	ListAttendance(ctx context.Context, personnelID int64, from, to time.Time) ([]*models.AttendanceRecord, error)
}

// Notifier delivers operational alerts to the studio managers.
type Notifier interface {
	NotifySyncFailure(ctx context.Context, kind string, err error) error
	NotifyUnprocessedFees(ctx context.Context, gelinler []*models.Gelin) error
}

// EventPublisher fans out domain events to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
