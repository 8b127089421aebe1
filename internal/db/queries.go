package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the typed history queries.
type Queries struct {
	db DBTX
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Trend is a row of the trends table.
type Trend struct {
	ID              int64
	Room            string
	DescriptionHash string
	Brand           string
	Product         string
	Persona         sql.NullString
	Description     string
	Image           sql.NullString
	Hashtags        string
	Label           string
	ShownAt         time.Time
}

const createTrend = `
INSERT INTO trends (room, description_hash, brand, product, persona, description, image, hashtags, label, shown_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateTrendParams are the columns of a new trends row.
type CreateTrendParams struct {
	Room            string
	DescriptionHash string
	Brand           string
	Product         string
	Persona         sql.NullString
	Description     string
	Image           sql.NullString
	Hashtags        string
	Label           string
	ShownAt         time.Time
}

// CreateTrend inserts a displayed trend and returns its ID.
func (q *Queries) CreateTrend(ctx context.Context, arg CreateTrendParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTrend,
		arg.Room,
		arg.DescriptionHash,
		arg.Brand,
		arg.Product,
		arg.Persona,
		arg.Description,
		arg.Image,
		arg.Hashtags,
		arg.Label,
		arg.ShownAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const createNarration = `
INSERT INTO narrations (trend_id, room, outcome, error, finished_at)
VALUES (?, ?, ?, ?, ?)
`

// CreateNarrationParams are the columns of a new narrations row.
type CreateNarrationParams struct {
	TrendID    sql.NullInt64
	Room       string
	Outcome    string
	Error      sql.NullString
	FinishedAt time.Time
}

// CreateNarration records the terminal event of a narration.
func (q *Queries) CreateNarration(ctx context.Context, arg CreateNarrationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createNarration,
		arg.TrendID,
		arg.Room,
		arg.Outcome,
		arg.Error,
		arg.FinishedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listRecentTrends = `
SELECT id, room, description_hash, brand, product, persona, description, image, hashtags, label, shown_at
FROM trends
WHERE room = ?
ORDER BY id DESC
LIMIT ?
`

// ListRecentTrends returns the latest trends shown in room, newest first.
func (q *Queries) ListRecentTrends(ctx context.Context, room string, limit int64) ([]*Trend, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTrends, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Trend
	for rows.Next() {
		var i Trend
		if err := rows.Scan(
			&i.ID,
			&i.Room,
			&i.DescriptionHash,
			&i.Brand,
			&i.Product,
			&i.Persona,
			&i.Description,
			&i.Image,
			&i.Hashtags,
			&i.Label,
			&i.ShownAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTrendsByRoom = `
SELECT room, COUNT(*) AS count
FROM trends
GROUP BY room
ORDER BY room
`

// CountTrendsByRoomRow is a row of CountTrendsByRoom.
type CountTrendsByRoomRow struct {
	Room  string
	Count int64
}

// CountTrendsByRoom counts displayed trends per room.
func (q *Queries) CountTrendsByRoom(ctx context.Context) ([]CountTrendsByRoomRow, error) {
	rows, err := q.db.QueryContext(ctx, countTrendsByRoom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountTrendsByRoomRow
	for rows.Next() {
		var i CountTrendsByRoomRow
		if err := rows.Scan(&i.Room, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countNarrationsByOutcome = `
SELECT outcome, COUNT(*) AS count
FROM narrations
WHERE room = ?
GROUP BY outcome
ORDER BY outcome
`

// CountNarrationsByOutcomeRow is a row of CountNarrationsByOutcome.
type CountNarrationsByOutcomeRow struct {
	Outcome string
	Count   int64
}

// CountNarrationsByOutcome counts narrations in room per terminal event.
func (q *Queries) CountNarrationsByOutcome(ctx context.Context, room string) ([]CountNarrationsByOutcomeRow, error) {
	rows, err := q.db.QueryContext(ctx, countNarrationsByOutcome, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountNarrationsByOutcomeRow
	for rows.Next() {
		var i CountNarrationsByOutcomeRow
		if err := rows.Scan(&i.Outcome, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
