package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/models"
)

// BadgerCache implements DailyCache on an embedded BadgerDB.
//
// Key layout under the configured prefix:
//
//	<prefix>:active_date   -> "YYYY-MM-DD"
//	<prefix>:<date>:answer -> answer word
//	<prefix>:<date>:topk   -> JSON-encoded ordered neighbor list
type BadgerCache struct {
	db     *badger.DB
	prefix string
}

// BadgerConfig holds settings for opening a BadgerCache.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string
	// InMemory opens the database without disk persistence. For tests.
	InMemory bool
	// KeyPrefix namespaces all keys, e.g. "ssamantle".
	KeyPrefix string
	// Logger receives BadgerDB's internal logging; nil disables it.
	Logger *zap.Logger
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// OpenBadgerCache opens or creates the cache database. SyncWrites is enabled
// for persistent databases so a flipped pointer is never observed without its
// record after a crash.
func OpenBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cache path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ssamantle"
	}
	return &BadgerCache{db: db, prefix: prefix}, nil
}

func (c *BadgerCache) key(suffix string) []byte {
	return []byte(c.prefix + ":" + suffix)
}

func (c *BadgerCache) answerKey(date string) []byte {
	return c.key(date + ":answer")
}

func (c *BadgerCache) topkKey(date string) []byte {
	return c.key(date + ":topk")
}

// ActiveDate returns the active date pointer, or "" when unset.
func (c *BadgerCache) ActiveDate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var date string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key("active_date"))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			date = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("read active date: %w", err)
	}
	return date, nil
}

// SetActiveDate flips the active date pointer.
func (c *BadgerCache) SetActiveDate(ctx context.Context, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key("active_date"), []byte(date))
	})
	if err != nil {
		return fmt.Errorf("set active date %s: %w", date, err)
	}
	return nil
}

// SaveAnswer writes the answer word for date.
func (c *BadgerCache) SaveAnswer(ctx context.Context, date, word string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.answerKey(date), []byte(word))
	})
	if err != nil {
		return fmt.Errorf("save answer for %s: %w", date, err)
	}
	return nil
}

// SaveTopK writes the ordered neighbor list for date, replacing any previous
// value wholesale.
func (c *BadgerCache) SaveTopK(ctx context.Context, date string, neighbors []models.Neighbor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if neighbors == nil {
		neighbors = []models.Neighbor{}
	}
	data, err := json.Marshal(neighbors)
	if err != nil {
		return fmt.Errorf("encode topk for %s: %w", date, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.topkKey(date), data)
	})
	if err != nil {
		return fmt.Errorf("save topk for %s: %w", date, err)
	}
	return nil
}

// DeleteDay removes the answer and topk records for date. Missing keys are a
// no-op.
func (c *BadgerCache) DeleteDay(ctx context.Context, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(c.answerKey(date)); err != nil {
			return err
		}
		return txn.Delete(c.topkKey(date))
	})
	if err != nil {
		return fmt.Errorf("delete day %s: %w", date, err)
	}
	return nil
}

// Answer returns the stored answer for date, or "" when absent.
func (c *BadgerCache) Answer(ctx context.Context, date string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var word string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.answerKey(date))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			word = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("read answer for %s: %w", date, err)
	}
	return word, nil
}

// TopK returns the stored neighbor list for date. ok is false when no record
// exists, distinguishing "no record" from an empty list.
func (c *BadgerCache) TopK(ctx context.Context, date string) ([]models.Neighbor, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var (
		neighbors []models.Neighbor
		found     bool
	)
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.topkKey(date))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &neighbors)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("read topk for %s: %w", date, err)
	}
	return neighbors, found, nil
}

// Close closes the database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
