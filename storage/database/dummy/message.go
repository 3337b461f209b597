package dummydb

import (
	"context"
	"sort"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/message"
)

type messageRepository struct {
	db    *messageTable
	users *userTable
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db.message, users: db.user}
}

// annotate fills the author fields the SQL repository gets from a join.
func (repo *messageRepository) annotate(msg message.Message) message.Message {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[msg.UserID]; ok {
		msg.UserPublicID = usr.PublicID
		msg.UserName = usr.Name
	}
	return msg
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	repo.db.seq++
	msg.ID = repo.db.seq
	stored := msg
	repo.db.table[msg.ID] = &stored
	repo.db.Unlock()

	return repo.annotate(msg), nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id int) (message.Message, error) {
	repo.db.RLock()
	msg, ok := repo.db.table[id]
	repo.db.RUnlock()

	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	return repo.annotate(*msg), nil
}

func (repo *messageRepository) FilterMessages(ctx context.Context, filter message.QueryFilter, ordering []core.DBOrdering) ([]message.Message, int, error) {
	repo.db.RLock()
	msgs := make([]message.Message, 0, len(repo.db.table))
	for _, msg := range repo.db.table {
		msgs = append(msgs, *msg)
	}
	repo.db.RUnlock()

	filtered := msgs[:0]
	for _, msg := range msgs {
		msg = repo.annotate(msg)
		if filter.CourseID != 0 && msg.CourseID != filter.CourseID {
			continue
		}
		if filter.UserPublicID != "" && msg.UserPublicID != filter.UserPublicID {
			continue
		}
		filtered = append(filtered, msg)
	}
	total := len(filtered)

	ascending := true
	if len(ordering) > 0 {
		ascending = ordering[0].Ascending
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if ascending {
			return filtered[i].Timestamp.Before(filtered[j].Timestamp)
		}
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	offset := filter.Offset()
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + filter.PerPage
	if filter.PerPage == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (repo *messageRepository) UpdateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	cur, ok := repo.db.table[msg.ID]
	if !ok {
		repo.db.Unlock()
		return message.Message{}, message.ErrNotFound
	}
	cur.Content = msg.Content
	updated := *cur
	repo.db.Unlock()

	return repo.annotate(updated), nil
}

func (repo *messageRepository) DeleteMessagesByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
