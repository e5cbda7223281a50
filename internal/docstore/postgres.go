package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"teamboard/api/internal/util"
)

// Open connects to Postgres with the same pool settings the rest of the API
// assumes.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the single document table the gateway owns.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			parent_id  TEXT NOT NULL DEFAULT '',
			id         TEXT NOT NULL,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, parent_id, id)
		);
		CREATE INDEX IF NOT EXISTS documents_scope_idx ON documents (collection, parent_id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Postgres implements Gateway on a single JSONB table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) DB() *sql.DB {
	return p.db
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Create(ctx context.Context, collection, parentID string, data map[string]any) (Entity, error) {
	doc, err := json.Marshal(data)
	if err != nil {
		return Entity{}, fmt.Errorf("marshal document: %w", err)
	}

	entity := Entity{ID: util.NewID("")}
	const insert = `
		INSERT INTO documents (collection, parent_id, id, doc)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	if err := p.db.QueryRowContext(ctx, insert, collection, parentID, entity.ID, doc).
		Scan(&entity.CreatedAt, &entity.UpdatedAt); err != nil {
		return Entity{}, fmt.Errorf("insert document: %w", err)
	}
	entity.Data, err = normalize(data)
	if err != nil {
		return Entity{}, err
	}
	return entity, nil
}

func (p *Postgres) GetByID(ctx context.Context, collection, parentID, id string) (Entity, error) {
	const query = `
		SELECT id, doc, created_at, updated_at FROM documents
		WHERE collection = $1 AND parent_id = $2 AND id = $3
	`
	entity, err := scanEntity(p.db.QueryRowContext(ctx, query, collection, parentID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("get document: %w", err)
	}
	return entity, nil
}

func (p *Postgres) GetAll(ctx context.Context, collection, parentID string) ([]Entity, error) {
	const query = `
		SELECT id, doc, created_at, updated_at FROM documents
		WHERE collection = $1 AND parent_id = $2
		ORDER BY created_at, id
	`
	rows, err := p.db.QueryContext(ctx, query, collection, parentID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

func (p *Postgres) GetByFilter(ctx context.Context, collection, parentID string, filters []Filter) ([]Entity, error) {
	var (
		conditions []string
		args       = []any{collection, parentID}
	)
	for _, filter := range filters {
		value, err := json.Marshal(filter.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal filter value: %w", err)
		}
		args = append(args, string(value))
		switch filter.Op {
		case OpEqual:
			conditions = append(conditions, fmt.Sprintf("doc->%s = $%d::jsonb", quoteLiteral(filter.Field), len(args)))
		case OpArrayContains:
			conditions = append(conditions, fmt.Sprintf("doc->%s @> $%d::jsonb", quoteLiteral(filter.Field), len(args)))
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", filter.Op)
		}
	}

	query := `
		SELECT id, doc, created_at, updated_at FROM documents
		WHERE collection = $1 AND parent_id = $2
	`
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter documents: %w", err)
	}
	defer rows.Close()
	return collectEntities(rows)
}

func (p *Postgres) Update(ctx context.Context, collection, parentID, id string, patch map[string]any) (Entity, error) {
	doc, err := json.Marshal(patch)
	if err != nil {
		return Entity{}, fmt.Errorf("marshal patch: %w", err)
	}

	const update = `
		UPDATE documents SET doc = doc || $4::jsonb, updated_at = now()
		WHERE collection = $1 AND parent_id = $2 AND id = $3
		RETURNING id, doc, created_at, updated_at
	`
	entity, err := scanEntity(p.db.QueryRowContext(ctx, update, collection, parentID, id, doc))
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("update document: %w", err)
	}
	return entity, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, parentID, id string) error {
	const del = `DELETE FROM documents WHERE collection = $1 AND parent_id = $2 AND id = $3`
	result, err := p.db.ExecContext(ctx, del, collection, parentID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Count(ctx context.Context, collection, parentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE collection = $1 AND parent_id = $2`
	var count int
	if err := p.db.QueryRowContext(ctx, query, collection, parentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (Entity, error) {
	var (
		entity Entity
		raw    []byte
	)
	if err := row.Scan(&entity.ID, &raw, &entity.CreatedAt, &entity.UpdatedAt); err != nil {
		return Entity{}, err
	}
	if err := json.Unmarshal(raw, &entity.Data); err != nil {
		return Entity{}, fmt.Errorf("decode document: %w", err)
	}
	return entity, nil
}

func collectEntities(rows *sql.Rows) ([]Entity, error) {
	entities := []Entity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return entities, nil
}

// quoteLiteral renders a field name as a SQL string literal for the JSONB
// path operators. Field names come from code, not user input, but escape
// quotes anyway.
func quoteLiteral(field string) string {
	return "'" + strings.ReplaceAll(field, "'", "''") + "'"
}
