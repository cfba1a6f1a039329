// Package postgres implements the ledger store on PostgreSQL.
// The transaction log and the materialized balance are separate tables;
// every mutation runs in a database transaction that locks the owner's
// balance row, so writers for one owner serialize while other owners
// proceed independently.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "finance_tracker",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store is the PostgreSQL-backed ledger store.
type Store struct {
	db   *sql.DB
	name string
}

// New opens a connection pool, verifies connectivity, and creates the
// tables if they do not exist.
func New(cfg Config) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	s := &Store{db: db, name: "postgres"}
	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: init tables: %w", err)
	}

	return s, nil
}

func (s *Store) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			owner TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount NUMERIC(20,4) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner_id ON transactions(owner, id DESC)`,
		`CREATE TABLE IF NOT EXISTS balances (
			owner TEXT PRIMARY KEY,
			amount NUMERIC(20,4) NOT NULL DEFAULT 0
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// storageErr maps a database failure to the retryable storage sentinel,
// preserving the underlying detail in the message.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ledger.ErrStorageUnavailable, op, err)
}

// Append inserts the transaction and updates the balance row inside one
// database transaction. The balance row is locked FOR UPDATE, which is the
// per-owner critical section.
func (s *Store) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("begin", err)
	}
	defer dbTx.Rollback()

	// Lazily create the balance row so FOR UPDATE has something to lock.
	if _, err := dbTx.ExecContext(ctx,
		`INSERT INTO balances (owner, amount) VALUES ($1, 0) ON CONFLICT (owner) DO NOTHING`,
		owner,
	); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("ensure balance", err)
	}

	var balance decimal.Decimal
	if err := dbTx.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE owner = $1 FOR UPDATE`,
		owner,
	).Scan(&balance); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("lock balance", err)
	}

	tx := ledger.Transaction{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Kind:      kind,
		Amount:    amount,
		Owner:     owner,
	}
	if err := dbTx.QueryRowContext(ctx,
		`INSERT INTO transactions (owner, kind, amount, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		owner, string(kind), amount, tx.Timestamp,
	).Scan(&tx.ID); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("insert transaction", err)
	}

	newBalance := balance.Add(kind.Signed(amount))
	if _, err := dbTx.ExecContext(ctx,
		`UPDATE balances SET amount = $2 WHERE owner = $1`,
		owner, newBalance,
	); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("update balance", err)
	}

	if err := dbTx.Commit(); err != nil {
		return ledger.Transaction{}, decimal.Zero, storageErr("commit", err)
	}
	return tx, newBalance, nil
}

// CurrentBalance reads the balance row, zero for unknown owners.
func (s *Store) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE owner = $1`,
		owner,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, storageErr("query balance", err)
	}
	return balance, nil
}

// History returns the owner's transactions most-recent-first by id.
func (s *Store) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, kind, amount FROM transactions WHERE owner = $1 ORDER BY id DESC`,
		owner,
	)
	if err != nil {
		return nil, storageErr("query history", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx := ledger.Transaction{Owner: owner}
		var kind string
		if err := rows.Scan(&tx.ID, &tx.Timestamp, &kind, &tx.Amount); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		tx.Kind = ledger.Kind(kind)
		tx.Timestamp = tx.Timestamp.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate history", err)
	}
	return txs, nil
}

// DeleteTransaction removes one transaction and recomputes the balance as
// the signed sum over the remaining set, all inside one database
// transaction holding the owner's balance row lock.
func (s *Store) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, storageErr("begin", err)
	}
	defer dbTx.Rollback()

	var locked decimal.Decimal
	err = dbTx.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE owner = $1 FOR UPDATE`,
		owner,
	).Scan(&locked)
	if err == sql.ErrNoRows {
		return decimal.Zero, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return decimal.Zero, storageErr("lock balance", err)
	}

	res, err := dbTx.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner = $1 AND id = $2`,
		owner, id,
	)
	if err != nil {
		return decimal.Zero, storageErr("delete transaction", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return decimal.Zero, storageErr("rows affected", err)
	}
	if affected == 0 {
		return decimal.Zero, ledger.ErrTransactionNotFound
	}

	var balance decimal.Decimal
	if err := dbTx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'Income' THEN amount ELSE -amount END), 0)
		 FROM transactions WHERE owner = $1`,
		owner,
	).Scan(&balance); err != nil {
		return decimal.Zero, storageErr("recompute balance", err)
	}

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE balances SET amount = $2 WHERE owner = $1`,
		owner, balance,
	); err != nil {
		return decimal.Zero, storageErr("update balance", err)
	}

	if err := dbTx.Commit(); err != nil {
		return decimal.Zero, storageErr("commit", err)
	}
	return balance, nil
}

// Owners lists the owners with a balance row.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner FROM balances`)
	if err != nil {
		return nil, storageErr("query owners", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, storageErr("scan owner", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// Name returns the store identifier.
func (s *Store) Name() string {
	return s.name
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ ledger.Store = (*Store)(nil)
