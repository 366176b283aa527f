package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	createdIndexKey = "links:created"
	sequenceKey     = "links:seq"
)

// putScript inserts the link only if the code is free and indexes it by a
// monotonically increasing sequence number.
var putScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
local seq = redis.call("INCR", KEYS[3])
redis.call("ZADD", KEYS[2], seq, ARGV[2])
return 1
`)

var appendClickScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`)

// redisLink is the stored JSON form of a link. Timestamps are unix nanoseconds.
type redisLink struct {
	ShortCode string `json:"short_code"`
	LongURL   string `json:"long_url"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

type redisClick struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
	Source    string `json:"source"`
	Location  string `json:"location"`
}

// RedisStore keeps each link as a JSON string and its clicks as a list.
// Scripts make the existence check and the write a single atomic step.
type RedisStore struct {
	redis *RedisDB
}

// NewRedisStore stores links under "link:<code>" keys of the client's database.
func NewRedisStore(redis *RedisDB) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Put(ctx context.Context, link *models.Link) error {
	data, err := json.Marshal(redisLink{
		ShortCode: link.ShortCode,
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt.UnixNano(),
		ExpiresAt: link.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	keys := []string{linkKey(link.ShortCode), createdIndexKey, sequenceKey}
	created, err := putScript.Run(ctx, s.redis.Client, keys, data, link.ShortCode).Int()
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	if created == 0 {
		return ErrCodeExists
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, code string) (*models.Link, error) {
	var (
		linkCmd   *redis.StringCmd
		clicksCmd *redis.StringSliceCmd
	)
	_, err := s.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		linkCmd = pipe.Get(ctx, linkKey(code))
		clicksCmd = pipe.LRange(ctx, clicksKey(code), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return decodeLink(linkCmd, clicksCmd)
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Link, error) {
	codes, err := s.redis.Client.ZRange(ctx, createdIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	if len(codes) == 0 {
		return []*models.Link{}, nil
	}

	linkCmds := make([]*redis.StringCmd, len(codes))
	clickCmds := make([]*redis.StringSliceCmd, len(codes))
	_, err = s.redis.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, code := range codes {
			linkCmds[i] = pipe.Get(ctx, linkKey(code))
			clickCmds[i] = pipe.LRange(ctx, clicksKey(code), 0, -1)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	links := make([]*models.Link, 0, len(codes))
	for i := range codes {
		link, err := decodeLink(linkCmds[i], clickCmds[i])
		if errors.Is(err, ErrLinkNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func (s *RedisStore) AppendClick(ctx context.Context, code string, click models.Click) error {
	data, err := json.Marshal(redisClick{
		ID:        click.ID,
		Timestamp: click.Timestamp.UnixNano(),
		Source:    click.Source,
		Location:  click.Location,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal click: %w", err)
	}

	keys := []string{linkKey(code), clicksKey(code)}
	appended, err := appendClickScript.Run(ctx, s.redis.Client, keys, data).Int()
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	if appended == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (s *RedisStore) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.redis.Client.Exists(ctx, linkKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}

func decodeLink(linkCmd *redis.StringCmd, clicksCmd *redis.StringSliceCmd) (*models.Link, error) {
	data, err := linkCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	var stored redisLink
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	rawClicks, err := clicksCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}

	clicks := make([]models.Click, 0, len(rawClicks))
	for _, raw := range rawClicks {
		var c redisClick
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal click: %w", err)
		}
		clicks = append(clicks, models.Click{
			ID:        c.ID,
			Timestamp: time.Unix(0, c.Timestamp).UTC(),
			Source:    c.Source,
			Location:  c.Location,
		})
	}

	return &models.Link{
		ShortCode: stored.ShortCode,
		LongURL:   stored.LongURL,
		CreatedAt: time.Unix(0, stored.CreatedAt).UTC(),
		ExpiresAt: time.Unix(0, stored.ExpiresAt).UTC(),
		Clicks:    clicks,
	}, nil
}

func linkKey(code string) string {
	return "link:" + code
}

func clicksKey(code string) string {
	return "link:" + code + ":clicks"
}
