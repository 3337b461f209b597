package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/message"
)

type messageRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	UserPublicID string    `db:"user_public_id"`
	UserName     string    `db:"user_name"`
	CourseID     int       `db:"course_id"`
	ParentID     *int      `db:"parent_id"`
	Content      string    `db:"content"`
	Timestamp    time.Time `db:"timestamp"`
}

func (r messageRow) unrow() message.Message {
	return message.Message{
		ID:           r.ID,
		UserID:       r.UserID,
		UserPublicID: r.UserPublicID,
		UserName:     r.UserName,
		CourseID:     r.CourseID,
		ParentID:     r.ParentID,
		Content:      r.Content,
		Timestamp:    r.Timestamp,
	}
}

const messageSelect = `
	SELECT m.id, m.user_id, u.public_id AS user_public_id, u.name AS user_name,
	       m.course_id, m.parent_id, m.content, m.timestamp
	FROM messages m
	JOIN users u ON u.id = m.user_id`

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	const query = `
		INSERT INTO messages (user_id, course_id, parent_id, content, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		msg.UserID, msg.CourseID, msg.ParentID, msg.Content, msg.Timestamp,
	).Scan(&msg.ID)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) GetMessageByID(ctx context.Context, id int) (message.Message, error) {
	var row messageRow
	if err := repo.db.GetContext(ctx, &row, messageSelect+" WHERE m.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "getting message")
	}
	return row.unrow(), nil
}

func (repo messageRepository) FilterMessages(ctx context.Context, filter message.QueryFilter, ordering []core.DBOrdering) ([]message.Message, int, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CourseID != 0 {
		conds = append(conds, "m.course_id = "+arg(filter.CourseID))
	}
	if filter.UserPublicID != "" {
		conds = append(conds, "u.public_id = "+arg(filter.UserPublicID))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM messages m JOIN users u ON u.id = m.user_id" + where
	var total int
	if err := repo.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting messages")
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "timestamp", Ascending: true}}
	}
	ords := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		ords = append(ords, "m."+ord.String())
	}
	query := messageSelect + where + " ORDER BY " + strings.Join(ords, ", ")
	query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filter.PerPage), arg(filter.Offset()))

	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering messages")
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.unrow())
	}
	return msgs, total, nil
}

func (repo messageRepository) UpdateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE messages SET content = $1 WHERE id = $2", msg.Content, msg.ID)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "updating message")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return message.Message{}, message.ErrNotFound
	}
	return repo.GetMessageByID(ctx, msg.ID)
}

func (repo messageRepository) DeleteMessagesByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM messages WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting messages")
	}
	return nil
}
