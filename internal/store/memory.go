package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gys/internal/domain"
	"gys/internal/models"
)

// MemoryStore implements the same surfaces as FirestoreStore for tests,
// merge semantics included.
type MemoryStore struct {
	mu       sync.RWMutex
	gelinler map[string]*models.Gelin
	cursor   *models.SyncCursor
	channels map[string]*models.WebhookChannel
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		gelinler: make(map[string]*models.Gelin),
		channels: make(map[string]*models.WebhookChannel),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Gelin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gelinler[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, from, to string) ([]*models.Gelin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Gelin
	for _, g := range s.gelinler {
		if from != "" && g.Tarih < from {
			continue
		}
		if to != "" && g.Tarih > to {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tarih < out[j].Tarih })
	return out, nil
}

func (s *MemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.gelinler))
	for id := range s.gelinler {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Batch() domain.WriteBatch {
	return &memoryBatch{store: s}
}

type memOp struct {
	kind   string // set, merge, delete
	id     string
	fields map[string]interface{}
}

type memoryBatch struct {
	store *MemoryStore
	ops   []memOp
}

func (b *memoryBatch) SetMerge(id string, fields map[string]interface{}) {
	b.ops = append(b.ops, memOp{kind: "merge", id: id, fields: fields})
}

func (b *memoryBatch) Set(id string, fields map[string]interface{}) {
	b.ops = append(b.ops, memOp{kind: "set", id: id, fields: fields})
}

func (b *memoryBatch) Delete(id string) {
	b.ops = append(b.ops, memOp{kind: "delete", id: id})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		switch op.kind {
		case "delete":
			delete(b.store.gelinler, op.id)
		case "set":
			g := &models.Gelin{}
			if err := applyFields(g, op.fields); err != nil {
				return err
			}
			b.store.gelinler[op.id] = g
		case "merge":
			g, ok := b.store.gelinler[op.id]
			if !ok {
				g = &models.Gelin{}
				b.store.gelinler[op.id] = g
			}
			if err := applyFields(g, op.fields); err != nil {
				return err
			}
		}
	}
	b.ops = nil
	return nil
}

// applyFields mirrors Firestore merge writes onto the struct, keyed by
// the firestore tag names.
func applyFields(g *models.Gelin, fields map[string]interface{}) error {
	for key, val := range fields {
		switch key {
		case "id":
			g.ID = val.(string)
		case "ad":
			g.Ad = val.(string)
		case "tarih":
			g.Tarih = val.(string)
		case "saat":
			g.Saat = val.(string)
		case "anlasilanUcret":
			g.AnlasilanUcret = val.(int)
		case "kapora":
			g.Kapora = val.(int)
		case "kalan":
			g.Kalan = val.(int)
		case "makyajPersonel":
			g.MakyajPersonel = val.(string)
		case "sacPersonel":
			g.SacPersonel = val.(string)
		case "kinaGunu":
			g.KinaGunu = val.(string)
		case "telNo":
			g.TelNo = val.(string)
		case "esiTelNo":
			g.EsiTelNo = val.(string)
		case "instagram":
			g.Instagram = val.(string)
		case "fotografci":
			g.Fotografci = val.(string)
		case "modaevi":
			g.Modaevi = val.(string)
		case "anlasildigiTarih":
			g.AnlasildigiTarih = val.(string)
		case "bilgiGonderildi":
			g.BilgiGonderildi = val.(bool)
		case "ucretKaydedildi":
			g.UcretKaydedildi = val.(bool)
		case "malzemeGonderildi":
			g.MalzemeGonderildi = val.(bool)
		case "paylasimIzni":
			g.PaylasimIzni = val.(bool)
		case "yorumIstendi":
			g.YorumIstendi = val.(bool)
		case "yorumAlindi":
			g.YorumAlindi = val.(bool)
		case "gelinNotu":
			g.GelinNotu = val.(string)
		case "dekontGorseli":
			g.DekontGorseli = val.(string)
		case "updatedAt":
			g.UpdatedAt = val.(time.Time)
		default:
			return fmt.Errorf("unknown gelin field %q", key)
		}
	}
	return nil
}

// CursorStore

func (s *MemoryStore) GetCursor(ctx context.Context) (*models.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor == nil {
		return nil, nil
	}
	cp := *s.cursor
	return &cp, nil
}

func (s *MemoryStore) SaveCursor(ctx context.Context, cursor *models.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor.UpdatedAt = time.Now()
	cp := *cursor
	s.cursor = &cp
	return nil
}

// ChannelStore

func (s *MemoryStore) SaveChannel(ctx context.Context, ch *models.WebhookChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	cp := *ch
	s.channels[ch.ChannelID] = &cp
	return nil
}

func (s *MemoryStore) RecentChannels(ctx context.Context, n int) ([]*models.WebhookChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.WebhookChannel, 0, len(s.channels))
	for _, ch := range s.channels {
		cp := *ch
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) AdvanceSequence(ctx context.Context, channelID string, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s not found", channelID)
	}
	if seq <= ch.LastSequence {
		return domain.ErrStaleSequence
	}
	ch.LastSequence = seq
	return nil
}

func (s *MemoryStore) DeleteChannel(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
	return nil
}
