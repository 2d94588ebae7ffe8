package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts and transaction records in PostgreSQL.
// Conditional writes rely on the version column; the two-account commit runs
// inside a single database transaction with rows locked in ascending id
// order so opposite-direction transfers cannot deadlock.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, acct Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, owner_id, number, type, balance, version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acct.ID, acct.OwnerID, acct.Number, string(acct.Type), acct.Balance, acct.Version, acct.CreatedAt.UTC())
	if err != nil {
		return storeErr("create account", err)
	}
	return nil
}

// GetAccount fetches an account snapshot by id.
func (s *PostgresStore) GetAccount(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, number, type, balance, version, created_at
        FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// AccountsForOwner lists the owner's accounts in creation order.
func (s *PostgresStore) AccountsForOwner(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, number, type, balance, version, created_at
        FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accounts", err)
	}
	return out, nil
}

// NumberExists reports whether the account number is taken.
func (s *PostgresStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE number = $1)`, number).Scan(&exists); err != nil {
		return false, storeErr("check number", err)
	}
	return exists, nil
}

// PutAccountIfVersionMatches performs a compare-and-swap on the balance.
func (s *PostgresStore) PutAccountIfVersionMatches(ctx context.Context, acct Account, expected int64) error {
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET balance = $2, version = $3
        WHERE id = $1 AND version = $4`, acct.ID, acct.Balance, expected+1, expected)
	if err != nil {
		return storeErr("put account", err)
	}
	if cmd.RowsAffected() == 0 {
		if _, err := s.GetAccount(ctx, acct.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

// CommitTransfer applies both version-guarded account writes in one database
// transaction.
func (s *PostgresStore) CommitTransfer(ctx context.Context, from, to Account, expectedFrom, expectedTo int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("begin commit", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock rows in ascending id order regardless of transfer direction.
	first, second := from.ID, to.ID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		var v int64
		if err := tx.QueryRow(ctx, `SELECT version FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&v); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return storeErr("lock account", err)
		}
		expected := expectedFrom
		if id == to.ID {
			expected = expectedTo
		}
		if v != expected {
			return ErrVersionConflict
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2, version = $3 WHERE id = $1`,
		from.ID, from.Balance, expectedFrom+1); err != nil {
		return storeErr("debit account", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2, version = $3 WHERE id = $1`,
		to.ID, to.Balance, expectedTo+1); err != nil {
		return storeErr("credit account", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit transfer", err)
	}
	return nil
}

// AppendTransaction inserts a record and returns it with the assigned
// sequence number.
func (s *PostgresStore) AppendTransaction(ctx context.Context, rec TransactionRecord) (TransactionRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	row := s.db.QueryRow(ctx, `INSERT INTO transactions
        (id, client_ref, from_account_id, to_account_id, amount, kind, status, description, created_at)
        VALUES (gen_random_uuid(), NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)
        RETURNING id, seq`,
		rec.ClientRef, rec.FromAccountID, rec.ToAccountID, rec.Amount,
		string(rec.Type), string(rec.Status), rec.Description, rec.CreatedAt)
	if err := row.Scan(&rec.ID, &rec.Seq); err != nil {
		return TransactionRecord{}, storeErr("append transaction", err)
	}
	return rec, nil
}

// UpdateTransactionStatus moves a pending record to a terminal status.
// Terminal records are never rewritten.
func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus) error {
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $2
        WHERE id = $1 AND status = $3`, id, string(status), string(StatusPending))
	if err != nil {
		return storeErr("update status", err)
	}
	if cmd.RowsAffected() == 0 {
		rec, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status == status {
			return nil
		}
		return fmt.Errorf("transaction %s already terminal (%s)", id, rec.Status)
	}
	return nil
}

// GetTransaction fetches a record by id.
func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (TransactionRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT id, seq, COALESCE(client_ref, ''), COALESCE(from_account_id::text, ''),
        COALESCE(to_account_id::text, ''), amount, kind, status, description, created_at
        FROM transactions WHERE id = $1`, id)
	rec, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, ErrTransactionNotFound
		}
		return TransactionRecord{}, err
	}
	return rec, nil
}

// FindTransactionByClientRef resolves a caller idempotency anchor.
func (s *PostgresStore) FindTransactionByClientRef(ctx context.Context, ref string) (TransactionRecord, bool, error) {
	row := s.db.QueryRow(ctx, `SELECT id, seq, COALESCE(client_ref, ''), COALESCE(from_account_id::text, ''),
        COALESCE(to_account_id::text, ''), amount, kind, status, description, created_at
        FROM transactions WHERE client_ref = $1`, ref)
	rec, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, false, nil
		}
		return TransactionRecord{}, false, err
	}
	return rec, true, nil
}

// TransactionsForAccount returns one page of history, newest first.
func (s *PostgresStore) TransactionsForAccount(ctx context.Context, accountID string, page, pageSize int) ([]TransactionRecord, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	rows, err := s.db.Query(ctx, `SELECT id, seq, COALESCE(client_ref, ''), COALESCE(from_account_id::text, ''),
        COALESCE(to_account_id::text, ''), amount, kind, status, description, created_at
        FROM transactions
        WHERE from_account_id = $1 OR to_account_id = $1
        ORDER BY created_at DESC, seq DESC
        LIMIT $2 OFFSET $3`, accountID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list transactions", err)
	}
	return out, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acct      Account
		kind      string
		createdAt time.Time
	)
	if err := row.Scan(&acct.ID, &acct.OwnerID, &acct.Number, &kind, &acct.Balance, &acct.Version, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, storeErr("scan account", err)
	}
	acct.Type = AccountType(kind)
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

func scanTransaction(row pgx.Row) (TransactionRecord, error) {
	var (
		rec    TransactionRecord
		kind   string
		status string
	)
	if err := row.Scan(&rec.ID, &rec.Seq, &rec.ClientRef, &rec.FromAccountID, &rec.ToAccountID,
		&rec.Amount, &kind, &status, &rec.Description, &rec.CreatedAt); err != nil {
		return TransactionRecord{}, err
	}
	rec.Type = TransactionType(kind)
	rec.Status = TransactionStatus(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
