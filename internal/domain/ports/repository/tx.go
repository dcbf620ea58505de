package repository

import "context"

// Tx is an opaque transaction handle owned by the storage backend
// (pgx.Tx for Postgres, *sql.Tx for SQLite). Repositories accept NoTX for
// the non-transactional path.
type Tx interface{}

var NoTX Tx

type TxOptions struct {
	Serializable bool
	ReadOnly     bool
}

// TransactionManager runs fn inside one transaction. fn returning an error
// rolls everything back.
type TransactionManager interface {
	WithTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
