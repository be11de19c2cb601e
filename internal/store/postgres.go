package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres is the remote document store: one jsonb row per (collection, id).
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type documentRow struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r documentRow) document() Document {
	return Document{ID: r.ID, Data: json.RawMessage(r.Data), UpdatedAt: r.UpdatedAt}
}

// EnsureTable creates the documents table when migrations have not run.
func (p *Postgres) EnsureTable(ctx context.Context) error {
	var tblName sql.NullString
	if err := p.db.QueryRowContext(ctx, "SELECT to_regclass('public.documents')").Scan(&tblName); err != nil {
		return err
	}
	if tblName.Valid {
		return nil
	}
	const ddl = `CREATE TABLE documents (
		collection varchar(32) NOT NULL,
		id varchar(32) NOT NULL,
		data jsonb NOT NULL DEFAULT '{}'::jsonb,
		updated_at timestamptz NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	const q = `SELECT id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`
	var row documentRow
	if err := p.db.GetContext(ctx, &row, q, collection, id); err != nil {
		return Document{}, classify(err)
	}
	return row.document(), nil
}

func (p *Postgres) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data, updated_at FROM documents WHERE collection = $1`)
	args := []any{collection}
	for _, f := range filters {
		args = append(args, f.Field, pq.Array(f.Values))
		fmt.Fprintf(&sb, ` AND COALESCE(data->>$%d::text, '') = ANY($%d::text[])`, len(args)-1, len(args))
	}
	sb.WriteString(` ORDER BY updated_at`)

	var rows []documentRow
	if err := p.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, classify(err)
	}
	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.document())
	}
	return out, nil
}

func (p *Postgres) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	const q = `INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := p.db.ExecContext(ctx, q, collection, id, string(data)); err != nil {
		return classify(err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	res, err := p.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the store sentinels. Connection,
// resource and operator-intervention classes, and network errors from the
// dial or socket, count as unavailable.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}
