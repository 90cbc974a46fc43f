// Package store persists booking records, the sync cursor and webhook
// channels in Firestore, with in-memory counterparts for tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gys/internal/domain"
	"gys/internal/models"
)

const cursorDocID = "syncCursor"

type FirestoreStore struct {
	client      *firestore.Client
	gelinlerCol string
	metaCol     string
	channelsCol string
}

// NewFirestore connects with an explicit credentials file, or application
// default credentials when the path is empty.
func NewFirestore(ctx context.Context, projectID, credentialsFile string, collections CollectionNames) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	collections.applyDefaults()
	return &FirestoreStore{
		client:      client,
		gelinlerCol: collections.Gelinler,
		metaCol:     collections.Meta,
		channelsCol: collections.Channels,
	}, nil
}

type CollectionNames struct {
	Gelinler string `yaml:"gelinler"`
	Meta     string `yaml:"meta"`
	Channels string `yaml:"channels"`
}

func (c *CollectionNames) applyDefaults() {
	if c.Gelinler == "" {
		c.Gelinler = "gelinler"
	}
	if c.Meta == "" {
		c.Meta = "meta"
	}
	if c.Channels == "" {
		c.Channels = "webhookChannels"
	}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// GelinStore

func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.Gelin, error) {
	doc, err := s.client.Collection(s.gelinlerCol).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gelin %s: %w", id, err)
	}

	var g models.Gelin
	if err := doc.DataTo(&g); err != nil {
		return nil, fmt.Errorf("decode gelin %s: %w", id, err)
	}
	return &g, nil
}

func (s *FirestoreStore) List(ctx context.Context, from, to string) ([]*models.Gelin, error) {
	q := s.client.Collection(s.gelinlerCol).Query
	if from != "" {
		q = q.Where("tarih", ">=", from)
	}
	if to != "" {
		q = q.Where("tarih", "<=", to)
	}
	q = q.OrderBy("tarih", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*models.Gelin
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list gelinler: %w", err)
		}
		var g models.Gelin
		if err := doc.DataTo(&g); err != nil {
			return nil, fmt.Errorf("decode gelin %s: %w", doc.Ref.ID, err)
		}
		out = append(out, &g)
	}
}

// ListIDs streams only document references; full syncs use it to wipe
// the collection without fetching record payloads.
func (s *FirestoreStore) ListIDs(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(s.gelinlerCol).Select().Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list gelin ids: %w", err)
		}
		ids = append(ids, doc.Ref.ID)
	}
}

func (s *FirestoreStore) Batch() domain.WriteBatch {
	return &firestoreBatch{
		batch: s.client.Batch(),
		col:   s.client.Collection(s.gelinlerCol),
	}
}

type firestoreBatch struct {
	batch *firestore.WriteBatch
	col   *firestore.CollectionRef
	n     int
}

func (b *firestoreBatch) SetMerge(id string, fields map[string]interface{}) {
	b.batch.Set(b.col.Doc(id), fields, firestore.MergeAll)
	b.n++
}

func (b *firestoreBatch) Set(id string, fields map[string]interface{}) {
	b.batch.Set(b.col.Doc(id), fields)
	b.n++
}

func (b *firestoreBatch) Delete(id string) {
	b.batch.Delete(b.col.Doc(id))
	b.n++
}

func (b *firestoreBatch) Len() int { return b.n }

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}
	if _, err := b.batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch of %d: %w", b.n, err)
	}
	return nil
}

// CursorStore

func (s *FirestoreStore) GetCursor(ctx context.Context) (*models.SyncCursor, error) {
	doc, err := s.client.Collection(s.metaCol).Doc(cursorDocID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync cursor: %w", err)
	}

	var cur models.SyncCursor
	if err := doc.DataTo(&cur); err != nil {
		return nil, fmt.Errorf("decode sync cursor: %w", err)
	}
	return &cur, nil
}

func (s *FirestoreStore) SaveCursor(ctx context.Context, cursor *models.SyncCursor) error {
	cursor.UpdatedAt = time.Now()
	if _, err := s.client.Collection(s.metaCol).Doc(cursorDocID).Set(ctx, cursor); err != nil {
		return fmt.Errorf("save sync cursor: %w", err)
	}
	return nil
}

// ChannelStore

func (s *FirestoreStore) SaveChannel(ctx context.Context, ch *models.WebhookChannel) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	if _, err := s.client.Collection(s.channelsCol).Doc(ch.ChannelID).Set(ctx, ch); err != nil {
		return fmt.Errorf("save channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

func (s *FirestoreStore) RecentChannels(ctx context.Context, n int) ([]*models.WebhookChannel, error) {
	iter := s.client.Collection(s.channelsCol).
		OrderBy("createdAt", firestore.Desc).
		Limit(n).
		Documents(ctx)
	defer iter.Stop()

	var out []*models.WebhookChannel
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		var ch models.WebhookChannel
		if err := doc.DataTo(&ch); err != nil {
			return nil, fmt.Errorf("decode channel %s: %w", doc.Ref.ID, err)
		}
		out = append(out, &ch)
	}
}

// AdvanceSequence moves the channel's sequence high-water mark forward
// inside a transaction, so concurrent deliveries of one sequence number
// validate at most once.
func (s *FirestoreStore) AdvanceSequence(ctx context.Context, channelID string, seq int64) error {
	ref := s.client.Collection(s.channelsCol).Doc(channelID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var ch models.WebhookChannel
		if err := doc.DataTo(&ch); err != nil {
			return err
		}
		if seq <= ch.LastSequence {
			return domain.ErrStaleSequence
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "lastSequence", Value: seq},
		})
	})
	if errors.Is(err, domain.ErrStaleSequence) {
		return domain.ErrStaleSequence
	}
	if err != nil {
		return fmt.Errorf("advance sequence %s: %w", channelID, err)
	}
	return nil
}

func (s *FirestoreStore) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := s.client.Collection(s.channelsCol).Doc(channelID).Delete(ctx); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, err)
	}
	return nil
}
