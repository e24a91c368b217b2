package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/ats"
)

// DefaultTTL is the freshness window for a board's postings.
const DefaultTTL = 180 * time.Minute

// ErrNotFound is returned by a Store when no record exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Store persists opaque cache records.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Recorder receives lookup outcomes.
type Recorder interface {
	CacheLookup(hit bool)
}

// Entry is the persisted record of one board fetch.
type Entry struct {
	StoredAt  time.Time     `json:"storedAt"`
	SourceURL string        `json:"sourceUrl"`
	Postings  []ats.Posting `json:"postings"`
}

type Options struct {
	TTL      time.Duration
	Logger   *zap.Logger
	Recorder Recorder
}

// PostingCache maps board URLs to recently fetched postings. It never
// returns errors: any failure is logged and treated as a miss.
type PostingCache struct {
	store    Store
	ttl      time.Duration
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

func New(store Store, opts Options) *PostingCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &PostingCache{
		store:    store,
		ttl:      opts.TTL,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      time.Now,
	}
}

// Key returns the storage key for a board URL.
func Key(boardURL string) string {
	sum := sha256.Sum256([]byte(boardURL))
	return hex.EncodeToString(sum[:])
}

// Get returns fresh postings for the URL. Stale, empty, unreadable or
// missing entries are all reported as a miss.
func (c *PostingCache) Get(ctx context.Context, boardURL string) ([]ats.Posting, bool) {
	postings, reason := c.lookup(ctx, boardURL)
	hit := reason == ""

	if c.recorder != nil {
		c.recorder.CacheLookup(hit)
	}
	if !hit {
		c.logger.Debug("cache miss", zap.String("board_url", boardURL), zap.String("reason", reason))
		return nil, false
	}

	c.logger.Debug("cache hit", zap.String("board_url", boardURL), zap.Int("postings", len(postings)))
	return postings, true
}

func (c *PostingCache) lookup(ctx context.Context, boardURL string) ([]ats.Posting, string) {
	data, err := c.store.Load(ctx, Key(boardURL))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("reading cache entry", zap.String("board_url", boardURL), zap.Error(err))
			return nil, "unreadable"
		}
		return nil, "absent"
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("decoding cache entry", zap.String("board_url", boardURL), zap.Error(err))
		return nil, "corrupt"
	}

	switch {
	case entry.SourceURL != boardURL:
		return nil, "key collision"
	case c.now().Sub(entry.StoredAt) >= c.ttl:
		return nil, "stale"
	case len(entry.Postings) == 0:
		return nil, "empty"
	}

	return entry.Postings, ""
}

// Put stores postings for the URL. Failures are logged and dropped.
func (c *PostingCache) Put(ctx context.Context, boardURL string, postings []ats.Posting) {
	entry := Entry{
		StoredAt:  c.now().UTC(),
		SourceURL: boardURL,
		Postings:  postings,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		c.logger.Warn("encoding cache entry", zap.String("board_url", boardURL), zap.Error(err))
		return
	}

	if err := c.store.Save(ctx, Key(boardURL), data, c.ttl); err != nil {
		c.logger.Warn("writing cache entry", zap.String("board_url", boardURL), zap.Error(err))
		return
	}

	c.logger.Debug("cache stored", zap.String("board_url", boardURL), zap.Int("postings", len(postings)))
}

// TTL returns the configured freshness window.
func (c *PostingCache) TTL() time.Duration { return c.ttl }
