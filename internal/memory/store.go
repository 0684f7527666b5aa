//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_memory.go -package=mocks

package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	fieldUser    = "user"
	fieldContent = "content"
)

var ErrEmptyUser = errors.New("memory owner is empty")

// Turn is one side of an exchange to remember.
type Turn struct {
	Role    string
	Content string
}

// Memory is a stored turn.
type Memory struct {
	ID      uuid.UUID `msgpack:"id"`
	UserID  string    `msgpack:"user_id"`
	Role    string    `msgpack:"role"`
	Content string    `msgpack:"content"`
	At      time.Time `msgpack:"at"`
}

// IStore remembers turns per user and finds the ones relevant to a query.
type IStore interface {
	Search(ctx context.Context, userID, query string, limit int) ([]Memory, error)
	Add(ctx context.Context, userID string, turns []Turn) error
}

// Store keeps memories in badger and ranks them with a bluge index over
// their content.
type Store struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
	now   func() time.Time
}

// Open opens the store under dir. An empty dir keeps everything in memory.
func Open(dir string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(filepath.Join(dir, "records")).WithLoggingLevel(badger.ERROR)
	indexCfg := bluge.DefaultConfig(filepath.Join(dir, "index"))
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
		indexCfg = bluge.InMemoryOnlyConfig()
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open memory records: %w", err)
	}
	index, err := bluge.OpenWriter(indexCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	return &Store{db: db, index: index, log: log, now: time.Now}, nil
}

// Close flushes and releases both stores.
func (s *Store) Close() error {
	return errors.Join(s.index.Close(), s.db.Close())
}

// key is "memory:{user}:{timestamp_padded}:{uuid}" so a prefix scan walks a
// user's memories in time order.
func key(m Memory) string {
	return fmt.Sprintf("%s%019d:%s", userPrefix(m.UserID), m.At.UnixNano(), m.ID)
}

func userPrefix(userID string) string {
	return fmt.Sprintf("memory:%s:", userID)
}

// Add stores turns for userID and indexes their content.
func (s *Store) Add(ctx context.Context, userID string, turns []Turn) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	at := s.now().UTC()
	memories := lo.Map(turns, func(t Turn, i int) Memory {
		return Memory{
			ID:      uuid.New(),
			UserID:  userID,
			Role:    t.Role,
			Content: t.Content,
			// keep turn order stable within one exchange
			At: at.Add(time.Duration(i)),
		}
	})

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, m := range memories {
			b, err := msgpack.Marshal(&m)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(key(m)), b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store memories: %w", err)
	}

	batch := bluge.NewBatch()
	for _, m := range memories {
		doc := bluge.NewDocument(key(m)).
			AddField(bluge.NewKeywordField(fieldUser, userID)).
			AddField(bluge.NewTextField(fieldContent, m.Content))
		batch.Update(doc.ID(), doc)
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("index memories: %w", err)
	}

	s.log.Debug("memories stored", "user", userID, "count", len(memories))
	return nil
}

// Search returns up to limit memories of userID, the ones sharing words
// with query first, then the most recent.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]Memory, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}
	if limit <= 0 {
		return nil, nil
	}

	keys, err := s.rank(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}

	var out []Memory
	err = s.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var m Memory
			if err := item.Value(func(v []byte) error { return msgpack.Unmarshal(v, &m) }); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	if len(out) < limit {
		recent, err := s.Recent(userID, limit)
		if err != nil {
			return nil, err
		}
		seen := lo.SliceToMap(out, func(m Memory) (uuid.UUID, struct{}) { return m.ID, struct{}{} })
		for _, m := range recent {
			if len(out) == limit {
				break
			}
			if _, ok := seen[m.ID]; !ok {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// rank returns record keys of userID's memories matching query, best first.
func (s *Store) rank(ctx context.Context, userID, query string, limit int) ([]string, error) {
	if query == "" {
		return nil, nil
	}

	reader, err := s.index.Reader()
	if err != nil {
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(userID).SetField(fieldUser)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))
	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	var keys []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("read memory matches: %w", err)
	}
	return keys, nil
}

// Recent returns up to limit memories of userID, newest first.
func (s *Store) Recent(userID string, limit int) ([]Memory, error) {
	var out []Memory
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix(userID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// seek past the newest possible key and walk backwards
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m Memory
			if err := it.Item().Value(func(v []byte) error { return msgpack.Unmarshal(v, &m) }); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	return out, nil
}

var _ IStore = (*Store)(nil)
