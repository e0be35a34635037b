package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
	"github.com/pnlboard/pnlboard/pkg/logger"
	"github.com/pnlboard/pnlboard/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultAddr         = "localhost:6379"
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	probeTimeout        = 5 * time.Second

	// initMember is added and immediately removed to create a board key.
	// Redis drops empty sorted sets, so "board exists" is represented by
	// the key having existed at least once; absent keys read as empty.
	initMember = "__init__"
)

// RedisBoard implements Board on Redis sorted sets, one ZSET per timeframe.
//
// The board holds a single logical connection for its lifetime and performs
// no locking of its own: per-command atomicity is the store's, and batched
// multi-timeframe writes are pipelined without a transaction.
type RedisBoard struct {
	client *redis.Client

	addr         string
	username     string
	password     string
	db           int
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger logger.Logger
}

// NewRedisBoard constructs a RedisBoard with default configuration.
// Connect must be called before any other method.
func NewRedisBoard(opts ...Option) *RedisBoard {
	b := &RedisBoard{
		addr:         defaultAddr,
		dialTimeout:  defaultDialTimeout,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect establishes the client and runs a Ping liveness probe under a
// bounded timeout. Calling Connect on an already-connected board re-probes
// without reopening the client.
func (b *RedisBoard) Connect(ctx context.Context) error {
	if b.client == nil {
		b.client = redis.NewClient(&redis.Options{
			Addr:         b.addr,
			Username:     b.username,
			Password:     b.password,
			DB:           b.db,
			DialTimeout:  b.dialTimeout,
			ReadTimeout:  b.readTimeout,
			WriteTimeout: b.writeTimeout,
		})
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := b.client.Ping(probeCtx).Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, b.addr, err)
	}

	if b.logger != nil {
		b.logger.Info(ctx, "connected to ranking store", logger.String("addr", b.addr), logger.Int("db", b.db))
	}
	return nil
}

// EnsureBoards initializes every timeframe's ordered set. Existing boards
// are left untouched, so repeated calls are no-ops.
func (b *RedisBoard) EnsureBoards(ctx context.Context) error {
	for _, tf := range timeframe.All() {
		exists, err := b.client.Exists(ctx, tf.Key()).Result()
		if err != nil {
			return fmt.Errorf("check board %s: %w", tf, err)
		}
		if exists != 0 {
			continue
		}
		// Touch the key atomically so concurrent readers never observe
		// the placeholder member.
		pipe := b.client.TxPipeline()
		pipe.ZAdd(ctx, tf.Key(), redis.Z{Score: 0, Member: initMember})
		pipe.ZRem(ctx, tf.Key(), initMember)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("init board %s: %w", tf, err)
		}
		if b.logger != nil {
			b.logger.Info(ctx, "initialized empty board", logger.String("timeframe", tf.String()))
		}
	}
	return nil
}

// UpsertScore writes pnl as wallet's score in each named timeframe.
// The write goes out as one pipelined request; the pipeline is a unit of
// transmission, not a transaction, so a failure leaves the affected
// timeframes in an unknown state.
func (b *RedisBoard) UpsertScore(ctx context.Context, wallet string, pnl float64, tfs ...timeframe.Timeframe) error {
	if len(tfs) == 0 {
		tfs = timeframe.All()
	}

	start := time.Now()
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tf := range tfs {
			pipe.ZAdd(ctx, tf.Key(), redis.Z{Score: pnl, Member: wallet})
		}
		return nil
	})
	metrics.RecordBoardUpdateLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBoardUpdateError()
		return fmt.Errorf("upsert score for %s: %w", wallet, err)
	}
	metrics.RecordWalletsUpserted(1)
	return nil
}

// BatchUpsert applies all updates to each named timeframe, one ZADD per
// timeframe carrying the members in submitted order. Duplicate wallets
// within a batch resolve last-write-wins because the store processes the
// members of a single ZADD left to right.
func (b *RedisBoard) BatchUpsert(ctx context.Context, updates []model.PnlUpdate, tfs ...timeframe.Timeframe) error {
	if len(updates) == 0 {
		return nil
	}
	if len(tfs) == 0 {
		tfs = timeframe.All()
	}

	members := make([]redis.Z, len(updates))
	for i, u := range updates {
		members[i] = redis.Z{Score: u.PnlUSD, Member: u.Wallet}
	}

	start := time.Now()
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tf := range tfs {
			pipe.ZAdd(ctx, tf.Key(), members...)
		}
		return nil
	})
	metrics.RecordBoardUpdateLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBoardUpdateError()
		return fmt.Errorf("batch upsert %d updates: %w", len(updates), err)
	}
	metrics.RecordWalletsUpserted(len(updates))
	return nil
}

// Remove deletes wallet from every timeframe's board. Removing a wallet
// that is absent from a timeframe is a no-op there, not an error.
func (b *RedisBoard) Remove(ctx context.Context, wallet string) error {
	start := time.Now()
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tf := range timeframe.All() {
			pipe.ZRem(ctx, tf.Key(), wallet)
		}
		return nil
	})
	metrics.RecordBoardUpdateLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBoardUpdateError()
		return fmt.Errorf("remove %s: %w", wallet, err)
	}
	metrics.RecordWalletRemoved()
	return nil
}

// TopN returns the top n entries of tf, ranks derived from position.
func (b *RedisBoard) TopN(ctx context.Context, tf timeframe.Timeframe, n int) ([]Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	start := time.Now()
	zs, err := b.client.ZRevRangeWithScores(ctx, tf.Key(), 0, int64(n-1)).Result()
	metrics.RecordBoardQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBoardQueryError()
		return nil, fmt.Errorf("top %d on %s: %w", n, tf, err)
	}
	return entriesFromZ(zs, 1, tf), nil
}

// Rank returns wallet's score and 1-based rank in tf. The store's native
// descending rank is 0-based, so the position is shifted by one.
func (b *RedisBoard) Rank(ctx context.Context, wallet string, tf timeframe.Timeframe) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordBoardQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	score, err := b.client.ZScore(ctx, tf.Key(), wallet).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("%s on %s: %w", wallet, tf, ErrNotRanked)
	}
	if err != nil {
		metrics.RecordBoardQueryError()
		return Entry{}, fmt.Errorf("score of %s on %s: %w", wallet, tf, err)
	}

	idx, err := b.client.ZRevRank(ctx, tf.Key(), wallet).Result()
	if errors.Is(err, redis.Nil) {
		// Removed between the two reads; report as not ranked.
		return Entry{}, fmt.Errorf("%s on %s: %w", wallet, tf, ErrNotRanked)
	}
	if err != nil {
		metrics.RecordBoardQueryError()
		return Entry{}, fmt.Errorf("rank of %s on %s: %w", wallet, tf, err)
	}

	return Entry{
		Rank:   int(idx) + 1,
		Wallet: wallet,
		PnlUSD: score,
		Period: tf,
	}, nil
}

// RankRange returns the entries at 1-based inclusive ranks [start, end].
// The bounds translate to the store's 0-based descending index range.
func (b *RedisBoard) RankRange(ctx context.Context, tf timeframe.Timeframe, start, end int) ([]Entry, error) {
	if start < 1 {
		start = 1
	}
	if end < start {
		return []Entry{}, nil
	}

	began := time.Now()
	zs, err := b.client.ZRevRangeWithScores(ctx, tf.Key(), int64(start-1), int64(end-1)).Result()
	metrics.RecordBoardQueryLatency(float64(time.Since(began).Milliseconds()))
	if err != nil {
		metrics.RecordBoardQueryError()
		return nil, fmt.Errorf("range [%d,%d] on %s: %w", start, end, tf, err)
	}
	return entriesFromZ(zs, start, tf), nil
}

// Count returns the number of ranked wallets in tf. A missing key counts
// as an empty board.
func (b *RedisBoard) Count(ctx context.Context, tf timeframe.Timeframe) (int64, error) {
	start := time.Now()
	n, err := b.client.ZCard(ctx, tf.Key()).Result()
	metrics.RecordBoardQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordBoardQueryError()
		return 0, fmt.Errorf("size of %s: %w", tf, err)
	}
	metrics.UpdateBoardSize(tf.String(), n)
	return n, nil
}

// Stats reports, per timeframe, the wallet count plus the highest and
// lowest score. The average is the mean of only those two scores; the
// shortcut is kept deliberately for compatibility with consumers of the
// existing stats shape.
func (b *RedisBoard) Stats(ctx context.Context) (map[timeframe.Timeframe]Stats, error) {
	out := make(map[timeframe.Timeframe]Stats, len(timeframe.All()))
	for _, tf := range timeframe.All() {
		total, err := b.Count(ctx, tf)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			out[tf] = Stats{}
			continue
		}

		top, err := b.client.ZRevRangeWithScores(ctx, tf.Key(), 0, 0).Result()
		if err != nil {
			metrics.RecordBoardQueryError()
			return nil, fmt.Errorf("top score of %s: %w", tf, err)
		}
		bottom, err := b.client.ZRangeWithScores(ctx, tf.Key(), 0, 0).Result()
		if err != nil {
			metrics.RecordBoardQueryError()
			return nil, fmt.Errorf("bottom score of %s: %w", tf, err)
		}
		if len(top) == 0 || len(bottom) == 0 {
			// Board emptied between the count and the range reads.
			out[tf] = Stats{}
			continue
		}

		topPnl := top[0].Score
		bottomPnl := bottom[0].Score
		avg := (topPnl + bottomPnl) / 2
		out[tf] = Stats{
			TotalWallets: total,
			TopPnl:       &topPnl,
			BottomPnl:    &bottomPnl,
			AveragePnl:   &avg,
		}
	}
	return out, nil
}

// DropBoards deletes every timeframe's ordered set outright. Subsequent
// reads treat the missing keys as empty boards until EnsureBoards runs.
func (b *RedisBoard) DropBoards(ctx context.Context) error {
	if err := b.client.Del(ctx, timeframe.Keys()...).Err(); err != nil {
		metrics.RecordBoardUpdateError()
		return fmt.Errorf("drop boards: %w", err)
	}
	if b.logger != nil {
		b.logger.Warn(ctx, "dropped all leaderboards")
	}
	return nil
}

// Close releases the store connection.
func (b *RedisBoard) Close() error {
	if b.client == nil {
		return nil
	}
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close store client: %w", err)
	}
	return nil
}

// entriesFromZ converts raw (member, score) pairs into entries ranked from
// firstRank upward.
func entriesFromZ(zs []redis.Z, firstRank int, tf timeframe.Timeframe) []Entry {
	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		wallet, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Rank:   firstRank + i,
			Wallet: wallet,
			PnlUSD: z.Score,
			Period: tf,
		})
	}
	return entries
}
