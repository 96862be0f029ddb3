// Package sqlstore implements ports.Store on database/sql. One adapter covers
// the local sqlite file, a cloud postgres and mysql; only the DDL type names,
// placeholders and the upsert clause differ per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"kaya-scraper/internal/domain"
)

const tableName = "sends"

// sendColumns is the persisted column order; send_id leads as the key,
// gym_id is the partition column.
var sendColumns = []string{
	"send_id",
	"date",
	"gym_id",
	"gym",
	"climb_type",
	"grade",
	"stiffness",
	"user_id",
	"username",
	"first_name",
	"last_name",
	"height",
	"ape_index",
	"photo_url",
	"is_private",
	"bio",
	"limit_grade_bouldering",
	"limit_grade_routes",
	"is_premium",
	"climb_id",
	"climb_name",
	"ascent_count",
	"color",
	"comment",
	"rating",
}

// intColumns and floatColumns get integer/float DDL types; everything else
// is text. Booleans are stored as 0/1 integers.
var intColumns = map[string]bool{
	"stiffness": true, "is_private": true, "is_premium": true,
	"ascent_count": true, "rating": true,
}

var floatColumns = map[string]bool{
	"height": true, "ape_index": true,
}

// Client implements ports.Store against a sends table.
type Client struct {
	db      *sql.DB
	dialect string
	table   string
	log     *slog.Logger

	mu      sync.Mutex
	created bool
}

// NewClient opens the store. driver is one of sqlite, postgres, mysql; for
// postgres an optional schema qualifies the table name.
func NewClient(ctx context.Context, driver, dsn, schema string, log *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("sqlstore: DSN is required")
	}
	var driverName string
	switch driver {
	case "sqlite":
		driverName = "sqlite"
		if !strings.HasPrefix(dsn, "file:") {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("sqlstore: creating db directory: %w", err)
				}
			}
		}
	case "postgres":
		driverName = "pgx"
	case "mysql":
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("sqlstore: unknown driver %q", driver)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}

	table := tableName
	if schema != "" && driver == "postgres" {
		table = schema + "." + tableName
	}
	return &Client{db: db, dialect: driver, table: table, log: log}, nil
}

// ExistingSendIDs returns the natural keys already persisted for a gym.
func (c *Client) ExistingSendIDs(ctx context.Context, gymID string) (map[string]struct{}, error) {
	if err := c.ensureTable(ctx); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT DISTINCT send_id FROM %s WHERE gym_id = %s", c.table, c.placeholder(1))
	rows, err := c.db.QueryContext(ctx, q, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// UpsertAscents writes a batch with row-level upserts keyed on send_id:
// insert when absent, otherwise overwrite every non-key column. Creates the
// table on first use. Safe to call repeatedly with overlapping keys.
func (c *Client) UpsertAscents(ctx context.Context, ascents []domain.Ascent) error {
	if len(ascents) == 0 {
		return nil
	}
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, c.upsertSQL())
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, a := range ascents {
		if _, err := stmt.ExecContext(ctx, bindAscent(a)...); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Info("upserted ascents", slog.Int("count", len(ascents)))
	return nil
}

// Close closes the underlying DB. Not wired via interface to keep ports minimal.
func (c *Client) Close() error { return c.db.Close() }

// ensureTable lazily creates the sends table on first use.
func (c *Client) ensureTable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.created {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, c.createSQL()); err != nil {
		return fmt.Errorf("sqlstore: creating table %s: %w", c.table, err)
	}
	c.created = true
	return nil
}

func (c *Client) createSQL() string {
	keyType, textType, intType, floatType := "TEXT PRIMARY KEY", "TEXT", "INTEGER", "REAL"
	switch c.dialect {
	case "postgres":
		floatType = "DOUBLE PRECISION"
	case "mysql":
		keyType = "VARCHAR(64) PRIMARY KEY"
		floatType = "DOUBLE"
	}
	defs := make([]string, 0, len(sendColumns))
	for _, col := range sendColumns {
		switch {
		case col == "send_id":
			defs = append(defs, col+" "+keyType)
		case intColumns[col]:
			defs = append(defs, col+" "+intType)
		case floatColumns[col]:
			defs = append(defs, col+" "+floatType)
		default:
			defs = append(defs, col+" "+textType)
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.table, strings.Join(defs, ", "))
}

func (c *Client) upsertSQL() string {
	phs := make([]string, len(sendColumns))
	for i := range sendColumns {
		phs[i] = c.placeholder(i + 1)
	}
	sets := make([]string, 0, len(sendColumns)-1)
	for _, col := range sendColumns {
		if col == "send_id" {
			continue
		}
		if c.dialect == "mysql" {
			sets = append(sets, fmt.Sprintf("%s=VALUES(%s)", col, col))
		} else {
			sets = append(sets, fmt.Sprintf("%s=excluded.%s", col, col))
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.table, strings.Join(sendColumns, ", "), strings.Join(phs, ", "))
	if c.dialect == "mysql" {
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return insert + " ON CONFLICT (send_id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (c *Client) placeholder(n int) string {
	if c.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// bindAscent flattens an ascent into the column order, with booleans coerced
// to 0/1 integers (absent means 0).
func bindAscent(a domain.Ascent) []any {
	return []any{
		a.SendID,
		a.Date,
		a.GymID,
		a.Gym,
		a.ClimbType,
		a.Grade,
		a.Stiffness,
		a.UserID,
		a.Username,
		a.FirstName,
		a.LastName,
		a.Height,
		a.ApeIndex,
		a.PhotoURL,
		boolToInt(a.IsPrivate),
		a.Bio,
		a.LimitGradeBouldering,
		a.LimitGradeRoutes,
		boolToInt(a.IsPremium),
		a.ClimbID,
		a.ClimbName,
		a.AscentCount,
		a.Color,
		a.Comment,
		a.Rating,
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
