package idgen

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/case-service/internal/persistence"
)

// MemoryCounter keeps the sequence in process memory.
type MemoryCounter struct {
	mu   sync.Mutex
	next int64
}

// NewMemoryCounter starts the sequence at 1.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{next: 1}
}

func (c *MemoryCounter) Next(ctx context.Context, floor int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next <= floor {
		c.next = floor + 1
	}
	n := c.next
	c.next++
	return n, nil
}

const counterFileName = "counter.json"

type counterDocument struct {
	NextCaseNumber int64 `json:"nextCaseNumber"`
}

// FileCounter persists the sequence as {"nextCaseNumber": n} in dir/counter.json.
type FileCounter struct {
	mu   sync.Mutex
	path string
}

// NewFileCounter stores the counter document in dir.
func NewFileCounter(dir string) *FileCounter {
	return &FileCounter{path: filepath.Join(dir, counterFileName)}
}

func (c *FileCounter) Next(ctx context.Context, floor int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := counterDocument{NextCaseNumber: 1}
	if _, err := persistence.ReadJSONFile(c.path, &doc); err != nil {
		return 0, err
	}
	if doc.NextCaseNumber <= floor {
		doc.NextCaseNumber = floor + 1
	}
	n := doc.NextCaseNumber
	doc.NextCaseNumber++
	if err := persistence.WriteJSONFile(c.path, doc); err != nil {
		return 0, err
	}
	return n, nil
}

// nextScript raises the stored counter to at least the floor, then
// increments it atomically on the server.
var nextScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then cur = floor end
cur = cur + 1
redis.call('SET', KEYS[1], cur)
return cur
`)

// RedisCounter keeps the last issued number under a Redis key, so several
// processes sharing one store never hand out the same id.
type RedisCounter struct {
	client *redis.Client
	key    string
}

// NewRedisCounter stores the sequence under key.
func NewRedisCounter(client *redis.Client, key string) *RedisCounter {
	return &RedisCounter{client: client, key: key}
}

func (c *RedisCounter) Next(ctx context.Context, floor int64) (int64, error) {
	return nextScript.Run(ctx, c.client, []string{c.key}, floor).Int64()
}
