package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// one writer at a time; also keeps a :memory: database alive
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Timestamps are stored as unix nanoseconds so that expiry comparisons
// are plain integer comparisons.
func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS identities (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		use_count INTEGER NOT NULL DEFAULT 0,
		use_limit INTEGER NOT NULL,
		ttl_hours INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_owner_target_active ON links(owner_id, target) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_links_expiry ON links(deleted, expires_at);

	CREATE TABLE IF NOT EXISTS link_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_link_events_code ON link_events(code, owner_id);
	`
	_, err := db.Exec(query)
	return err
}

const linkColumns = `id, code, target, owner_id, use_count, use_limit, ttl_hours, created_at, updated_at, deleted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var l domain.Link
	var createdAt, updatedAt int64
	var deleted int

	if err := row.Scan(&l.ID, &l.Code, &l.Target, &l.OwnerID, &l.UseCount, &l.UseLimit, &l.TTLHours,
		&createdAt, &updatedAt, &deleted); err != nil {
		return nil, err
	}
	l.CreatedAt = fromNanos(createdAt)
	l.UpdatedAt = fromNanos(updatedAt)
	l.Deleted = deleted != 0
	return &l, nil
}

func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = ? AND deleted = 0`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) GetAnyByCode(ctx context.Context, code string) (*domain.Link, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = ?`, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE code = ?)`, code).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) ExistsActiveTargetForOwner(ctx context.Context, ownerID, target string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM links WHERE owner_id = ? AND target = ? AND deleted = 0)`,
		ownerID, target).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (code, target, owner_id, use_count, use_limit, ttl_hours, created_at, updated_at, expires_at, deleted)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		link.Code, link.Target, link.OwnerID, link.UseCount, link.UseLimit, link.TTLHours,
		toNanos(link.CreatedAt), toNanos(link.UpdatedAt), toNanos(link.ExpiresAt()), boolInt(link.Deleted),
	)
	if err != nil {
		return translateLinkError(err, link)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) IncrementUseCount(ctx context.Context, code string, now time.Time) (*domain.Link, error) {
	query := `UPDATE links SET use_count = use_count + 1
			  WHERE code = ? AND deleted = 0 AND expires_at >= ? AND use_count < use_limit
			  RETURNING ` + linkColumns

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code, toNanos(now)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) UpdateFields(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	query := `UPDATE links SET target = ?, use_limit = ?, ttl_hours = ?, expires_at = created_at + ?, updated_at = ?
			  WHERE code = ? AND deleted = 0 AND use_count <= ?
			  RETURNING ` + linkColumns

	ttl := int64(time.Duration(link.TTLHours) * time.Hour)
	stored, err := scanLink(r.db.QueryRowContext(ctx, query,
		link.Target, link.UseLimit, link.TTLHours, ttl, toNanos(link.UpdatedAt),
		link.Code, link.UseLimit,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateLinkError(err, link)
	}
	return stored, nil
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, code string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET deleted = 1, updated_at = ? WHERE code = ? AND deleted = 0`,
		toNanos(at), code)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *SQLiteRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE deleted = 0 AND expires_at < ? ORDER BY id ASC`
	return r.queryLinks(ctx, query, toNanos(now))
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	return r.queryLinks(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id ASC`)
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	var identity domain.Identity
	var createdAt int64

	err := r.db.QueryRowContext(ctx, `SELECT id, created_at FROM identities WHERE id = ?`, id).Scan(&identity.ID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	identity.CreatedAt = fromNanos(createdAt)
	return &identity, nil
}

func (r *SQLiteRepository) ExistsIdentity(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM identities WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) SaveIdentity(ctx context.Context, identity *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO identities (id, created_at) VALUES (?, ?)`,
		identity.ID, toNanos(identity.CreatedAt))
	if err != nil && isUniqueViolation(err, "identities.id") {
		return ports.ErrIdentityTaken
	}
	return err
}

func (r *SQLiteRepository) RecordEvent(ctx context.Context, event *domain.LinkEvent) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO link_events (code, owner_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.Code, event.OwnerID, string(event.Kind), event.Detail, toNanos(event.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, code, ownerID string) ([]domain.LinkEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, owner_id, kind, detail, created_at FROM link_events
		 WHERE code = ? AND owner_id = ? ORDER BY id ASC`, code, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LinkEvent
	for rows.Next() {
		var e domain.LinkEvent
		var kind string
		var detail sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Code, &e.OwnerID, &kind, &detail, &createdAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		e.Detail = detail.String
		e.CreatedAt = fromNanos(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func translateLinkError(err error, link *domain.Link) error {
	switch {
	case isUniqueViolation(err, "links.code"):
		return ports.ErrCodeTaken
	case isUniqueViolation(err, "links.owner_id"):
		return fmt.Errorf("%w: user %s already has an active link to %s", domain.ErrConflict, link.OwnerID, link.Target)
	}
	return err
}

// Both drivers report constraint failures as text only.
func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
