package comment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed entity store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrStoreNil
	}
	return &PostgresStore{pool: pool}, nil
}

const commentColumns = `id, user_id, text, created_at, parent_id, level, resource_kind, resource_id`

// Resolve implements resource.Resolver with an existence probe against the
// table owning the referenced kind.
func (s *PostgresStore) Resolve(ctx context.Context, key resource.Key) error {
	var table string
	switch key.Kind {
	case resource.KindUser:
		table = "users"
	case resource.KindPost:
		table = "posts"
	case resource.KindComment:
		table = "comments"
	default:
		return fmt.Errorf("%w: %q", resource.ErrUnknownKind, key.Kind)
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, key.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("comment: failed to resolve %q: %w", key, err)
	}
	if !exists {
		return fmt.Errorf("%w: %q", resource.ErrNotFound, key)
	}
	return nil
}

// GetComment returns the comment by id.
func (s *PostgresStore) GetComment(ctx context.Context, id int64) (*Comment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)

	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
		}
		return nil, fmt.Errorf("comment: failed to read comment %d: %w", id, err)
	}
	return c, nil
}

// CreateComment inserts a new comment. Nesting level derives from the
// parent inside the insert, so it cannot drift from the tree.
func (s *PostgresStore) CreateComment(ctx context.Context, c *Comment) error {
	if c.ParentID != nil {
		parent, err := s.GetComment(ctx, *c.ParentID)
		if err != nil {
			return err
		}
		if parent.Resource != c.Resource {
			return ErrParentMismatch
		}
		c.Level = parent.Level + 1
	} else {
		c.Level = 0
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO comments (user_id, text, parent_id, level, resource_kind, resource_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		c.UserID, c.Text, c.ParentID, c.Level, string(c.Resource.Kind), c.Resource.ID)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("comment: failed to insert comment: %w", err)
	}
	return nil
}

// UpdateCommentText replaces the comment's text.
func (s *PostgresStore) UpdateCommentText(ctx context.Context, id int64, text string) (*Comment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE comments SET text = $2 WHERE id = $1
		RETURNING `+commentColumns, id, text)

	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
		}
		return nil, fmt.Errorf("comment: failed to update comment %d: %w", id, err)
	}
	return c, nil
}

// DeleteComment removes the comment by id.
func (s *PostgresStore) DeleteComment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("comment: failed to delete comment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	return nil
}

// IsLeaf reports whether the comment has no children.
func (s *PostgresStore) IsLeaf(ctx context.Context, id int64) (bool, error) {
	var exists, hasChildren bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1),
		       EXISTS (SELECT 1 FROM comments WHERE parent_id = $1)`, id).
		Scan(&exists, &hasChildren)
	if err != nil {
		return false, fmt.Errorf("comment: failed to check children of comment %d: %w", id, err)
	}
	if !exists {
		return false, fmt.Errorf("%w: comment %d", resource.ErrNotFound, id)
	}
	return !hasChildren, nil
}

// History streams the matching comments directly off a pgx cursor, so the
// export worker never holds more than one row in memory.
func (s *PostgresStore) History(ctx context.Context, q HistoryQuery) (export.RecordIterator, error) {
	query := `SELECT ` + commentColumns + ` FROM comments
		WHERE user_id = $1 AND resource_kind = $2 AND resource_id = $3`
	args := []any{q.OwnerID, string(q.Resource.Kind), q.Resource.ID}

	if q.DateFrom != nil {
		args = append(args, *q.DateFrom)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if q.DateTo != nil {
		args = append(args, *q.DateTo)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("comment: failed to query history: %w", err)
	}
	return &rowsIterator{rows: rows}, nil
}

// GetPost returns the post by id.
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx, `SELECT id, text FROM posts WHERE id = $1`, id).Scan(&p.ID, &p.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: post %d", resource.ErrNotFound, id)
		}
		return nil, fmt.Errorf("comment: failed to read post %d: %w", id, err)
	}
	return &p, nil
}

// UpdatePostText replaces the post's text.
func (s *PostgresStore) UpdatePostText(ctx context.Context, id int64, text string) (*Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx, `
		UPDATE posts SET text = $2 WHERE id = $1
		RETURNING id, text`, id, text).Scan(&p.ID, &p.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: post %d", resource.ErrNotFound, id)
		}
		return nil, fmt.Errorf("comment: failed to update post %d: %w", id, err)
	}
	return &p, nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var (
		c    Comment
		kind string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Text, &c.CreatedAt, &c.ParentID, &c.Level, &kind, &c.Resource.ID)
	if err != nil {
		return nil, err
	}
	c.Resource.Kind = resource.Kind(kind)
	return &c, nil
}

// rowsIterator adapts a pgx result set to export.RecordIterator. Closing is
// the caller's job through the io.Closer it also implements.
type rowsIterator struct {
	rows    pgx.Rows
	current export.Record
	err     error
}

func (it *rowsIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	c, err := scanComment(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.current = c.Record()
	return true
}

func (it *rowsIterator) Record() export.Record {
	return it.current
}

func (it *rowsIterator) Err() error {
	return it.err
}

func (it *rowsIterator) Close() error {
	it.rows.Close()
	return nil
}
