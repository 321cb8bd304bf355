package docstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// subscriber owns its channel. Sends and the close serialize on the
// subscriber's own mutex, so a write landing while the watcher tears down
// can never hit a closed channel.
type subscriber struct {
	mu     sync.Mutex
	ch     chan Document
	closed bool
}

func (sub *subscriber) send(d Document) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	deliver(sub.ch, d)
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
}

type memoryDoc struct {
	doc  Document
	subs map[int64]*subscriber
}

// MemoryStore is the in-process Store used when no Redis is configured.
// Snapshots handed out are copies; subscribers never share backing arrays
// with the stored document.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*memoryDoc
	subSeq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func key(collection, id string) string {
	return collection + "/" + id
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data []byte) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(collection, id)
	if _, ok := s.docs[k]; ok {
		return Document{}, ErrExists
	}

	d := Document{
		ID:        id,
		Data:      append([]byte(nil), data...),
		Version:   1,
		UpdatedAt: time.Now(),
	}
	s.docs[k] = &memoryDoc{doc: d, subs: make(map[int64]*subscriber)}
	return d, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.docs[key(collection, id)]
	if !ok {
		return Document{}, ErrNotFound
	}
	return snapshot(md.doc), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, expectedVersion int64, data []byte) (Document, error) {
	s.mu.Lock()

	md, ok := s.docs[key(collection, id)]
	if !ok {
		s.mu.Unlock()
		return Document{}, ErrNotFound
	}

	if md.doc.Version != expectedVersion {
		s.mu.Unlock()
		return Document{}, ErrVersionConflict
	}

	md.doc.Data = append([]byte(nil), data...)
	md.doc.Version++
	md.doc.UpdatedAt = time.Now()

	snap := snapshot(md.doc)
	subs := make([]*subscriber, 0, len(md.subs))
	for _, sub := range md.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.send(snap)
	}
	return snap, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	var subs []*subscriber
	if md, ok := s.docs[key(collection, id)]; ok {
		for _, sub := range md.subs {
			subs = append(subs, sub)
		}
		md.subs = make(map[int64]*subscriber)
		delete(s.docs, key(collection, id))
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collection + "/"
	var ids []string
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
	}
	return ids, nil
}

func (s *MemoryStore) Watch(ctx context.Context, collection, id string) (<-chan Document, func(), error) {
	s.mu.Lock()

	md, ok := s.docs[key(collection, id)]
	if !ok {
		s.mu.Unlock()
		return nil, nil, ErrNotFound
	}

	s.subSeq++
	subID := s.subSeq
	sub := &subscriber{ch: make(chan Document, 8)}
	md.subs[subID] = sub
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			if md, ok := s.docs[key(collection, id)]; ok {
				delete(md.subs, subID)
			}
			s.mu.Unlock()
			sub.close()
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			release()
		}()
	}

	return sub.ch, release, nil
}

func snapshot(d Document) Document {
	d.Data = append([]byte(nil), d.Data...)
	return d
}
