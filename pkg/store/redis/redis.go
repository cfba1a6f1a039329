// Package redis implements the ledger store on Redis.
// Amounts are stored as scale-4 fixed-point integers so balance arithmetic
// stays exact inside Lua; every mutation runs as one Lua script, which
// Redis executes atomically.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
)

// amountScale is the fixed-point scale for stored amounts (4 decimal places).
const amountScale = 4

// Config holds Redis connection configuration.
type Config struct {
	Name string
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default Redis configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "ledger:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// appendScript assigns the next id, pushes the log entry, applies the
// signed delta to the balance, and records the owner, all atomically.
// KEYS: seq, log, balance, owners. ARGV: kind, amount (minor units),
// owner, timestamp (unix seconds).
var appendScript = rueidis.NewLuaScript(`
local id = redis.call('INCR', KEYS[1])
local delta = tonumber(ARGV[2])
if ARGV[1] == 'Expense' then delta = -delta end
local entry = cjson.encode({id = id, ts = tonumber(ARGV[4]), kind = ARGV[1], amount = tonumber(ARGV[2])})
redis.call('RPUSH', KEYS[2], entry)
local balance = redis.call('INCRBY', KEYS[3], delta)
redis.call('SADD', KEYS[4], ARGV[3])
return {id, balance}
`)

// deleteScript removes the entry with the given id and rewrites the
// balance as the signed sum over the remaining entries.
// KEYS: log, balance. ARGV: id.
var deleteScript = rueidis.NewLuaScript(`
local entries = redis.call('LRANGE', KEYS[1], 0, -1)
local target = nil
local balance = 0
for _, raw in ipairs(entries) do
  local e = cjson.decode(raw)
  if e.id == tonumber(ARGV[1]) then
    target = raw
  elseif e.kind == 'Expense' then
    balance = balance - e.amount
  else
    balance = balance + e.amount
  end
end
if target == nil then
  return redis.error_reply('NOTFOUND')
end
redis.call('LREM', KEYS[1], 1, target)
redis.call('SET', KEYS[2], balance)
return balance
`)

// logEntry is the JSON shape of one list element.
type logEntry struct {
	ID     int64  `json:"id"`
	Ts     int64  `json:"ts"`
	Kind   string `json:"kind"`
	Amount int64  `json:"amount"`
}

// Store is the Redis-backed ledger store.
type Store struct {
	client rueidis.Client
	config Config
	name   string
}

// New creates a Redis store and verifies connectivity.
func New(cfg Config) (*Store, error) {
	if cfg.Name == "" {
		cfg.Name = "redis"
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis store: no address configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{cfg.Addr},
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ConnWriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis store: create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: ping: %w", err)
	}

	return &Store{client: client, config: cfg, name: cfg.Name}, nil
}

func (s *Store) key(parts ...string) string {
	return s.config.KeyPrefix + strings.Join(parts, ":")
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ledger.ErrStorageUnavailable, op, err)
}

// toMinor converts an amount to scale-4 fixed point, rounding half-up.
func toMinor(amount decimal.Decimal) int64 {
	return amount.Round(amountScale).Shift(amountScale).IntPart()
}

// fromMinor converts scale-4 fixed point back to a decimal amount.
func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -amountScale)
}

// Append runs the append script; id assignment, log push, balance update
// and owner registration commit as one atomic unit.
func (s *Store) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	ts := time.Now().UTC().Truncate(time.Second)

	resp := appendScript.Exec(ctx, s.client,
		[]string{s.key("seq"), s.key("log", owner), s.key("balance", owner), s.key("owners")},
		[]string{string(kind), strconv.FormatInt(toMinor(amount), 10), owner, strconv.FormatInt(ts.Unix(), 10)},
	)
	if err := resp.Error(); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("append", err)
	}

	vals, err := resp.AsIntSlice()
	if err != nil || len(vals) != 2 {
		return ledger.Transaction{}, decimal.Zero, storageErr("append reply", err)
	}

	tx := ledger.Transaction{
		ID:        vals[0],
		Timestamp: ts,
		Kind:      kind,
		Amount:    fromMinor(toMinor(amount)),
		Owner:     owner,
	}
	return tx, fromMinor(vals[1]), nil
}

// CurrentBalance reads the balance key, zero if it does not exist.
func (s *Store) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key("balance", owner)).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, storageErr("get balance", err)
	}

	minor, err := resp.AsInt64()
	if err != nil {
		return decimal.Zero, storageErr("parse balance", err)
	}
	return fromMinor(minor), nil
}

// History reads the owner's log list and returns it most-recent-first.
func (s *Store) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	resp := s.client.Do(ctx, s.client.B().Lrange().Key(s.key("log", owner)).Start(0).Stop(-1).Build())
	if err := resp.Error(); err != nil {
		return nil, storageErr("read log", err)
	}

	raws, err := resp.AsStrSlice()
	if err != nil {
		return nil, storageErr("read log reply", err)
	}

	txs := make([]ledger.Transaction, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var e logEntry
		if err := json.Unmarshal([]byte(raws[i]), &e); err != nil {
			return nil, storageErr("decode log entry", err)
		}
		txs = append(txs, ledger.Transaction{
			ID:        e.ID,
			Timestamp: time.Unix(e.Ts, 0).UTC(),
			Kind:      ledger.Kind(e.Kind),
			Amount:    fromMinor(e.Amount),
			Owner:     owner,
		})
	}
	return txs, nil
}

// DeleteTransaction runs the delete script; removal and balance rewrite
// commit as one atomic unit.
func (s *Store) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	resp := deleteScript.Exec(ctx, s.client,
		[]string{s.key("log", owner), s.key("balance", owner)},
		[]string{strconv.FormatInt(id, 10)},
	)
	if err := resp.Error(); err != nil {
		if strings.Contains(err.Error(), "NOTFOUND") {
			return decimal.Zero, ledger.ErrTransactionNotFound
		}
		return decimal.Zero, storageErr("delete", err)
	}

	minor, err := resp.AsInt64()
	if err != nil {
		return decimal.Zero, storageErr("delete reply", err)
	}
	return fromMinor(minor), nil
}

// Owners reads the owner set.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	resp := s.client.Do(ctx, s.client.B().Smembers().Key(s.key("owners")).Build())
	if err := resp.Error(); err != nil {
		return nil, storageErr("read owners", err)
	}
	owners, err := resp.AsStrSlice()
	if err != nil {
		return nil, storageErr("read owners reply", err)
	}
	return owners, nil
}

// Name returns the store identifier.
func (s *Store) Name() string {
	return s.name
}

// Close closes the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

var _ ledger.Store = (*Store)(nil)
