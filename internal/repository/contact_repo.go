package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-contacts-api/internal/model"
)

const contactColumns = `id, name, surname, email, phone, birthday, info, user_id, created_at, updated_at`

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func scanContact(row pgx.Row) (model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Email, &c.Phone, &c.Birthday, &c.Info,
		&c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *ContactRepository) queryContacts(ctx context.Context, op string, sql string, args ...any) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	contacts := make([]model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return contacts, nil
}

func (r *ContactRepository) List(ctx context.Context, userID string, page model.Page) ([]model.Contact, error) {
	return r.queryContacts(ctx, "list contacts",
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Offset)
}

func (r *ContactRepository) ListAll(ctx context.Context, page model.Page) ([]model.Contact, error) {
	return r.queryContacts(ctx, "list all contacts",
		`SELECT `+contactColumns+` FROM contacts ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
}

func (r *ContactRepository) Get(ctx context.Context, userID string, id int64) (model.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Contact{}, model.ErrContactNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) FindByName(ctx context.Context, userID string, pattern string) ([]model.Contact, error) {
	return r.queryContacts(ctx, "find contacts by name",
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 AND name ILIKE $2 ORDER BY id`,
		userID, pattern)
}

func (r *ContactRepository) FindBySurname(ctx context.Context, userID string, pattern string) ([]model.Contact, error) {
	return r.queryContacts(ctx, "find contacts by surname",
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 AND surname ILIKE $2 ORDER BY id`,
		userID, pattern)
}

func (r *ContactRepository) FindByEmail(ctx context.Context, userID string, email string) (model.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 AND email = $2`, userID, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Contact{}, model.ErrContactNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("find contact by email: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) FindByBirthday(ctx context.Context, userID string, window model.DateWindow) ([]model.Contact, error) {
	return r.queryContacts(ctx, "find contacts by birthday",
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = $1 AND birthday IS NOT NULL AND birthday BETWEEN $2 AND $3
		 ORDER BY birthday, id`,
		userID, window.From, window.To)
}

func (r *ContactRepository) Create(ctx context.Context, c model.Contact) (model.Contact, error) {
	created, err := scanContact(r.pool.QueryRow(ctx,
		`INSERT INTO contacts (name, surname, email, phone, birthday, info, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+contactColumns,
		c.Name, c.Surname, c.Email, c.Phone, c.Birthday, c.Info, c.UserID, time.Now().UTC()))
	if isUniqueViolation(err) {
		return model.Contact{}, model.ErrConflict
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return created, nil
}

func (r *ContactRepository) Update(ctx context.Context, c model.Contact) (model.Contact, error) {
	updated, err := scanContact(r.pool.QueryRow(ctx,
		`UPDATE contacts
		 SET name = $3, surname = $4, email = $5, phone = $6, birthday = $7, info = $8, updated_at = $9
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+contactColumns,
		c.ID, c.UserID, c.Name, c.Surname, c.Email, c.Phone, c.Birthday, c.Info, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Contact{}, model.ErrContactNotFound
	}
	if isUniqueViolation(err) {
		return model.Contact{}, model.ErrConflict
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return updated, nil
}

func (r *ContactRepository) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrContactNotFound
	}
	return nil
}
