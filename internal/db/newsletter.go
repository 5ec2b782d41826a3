package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadySubscribed is returned when the email is already on the list.
var ErrAlreadySubscribed = errors.New("already subscribed")

type NewsletterStore struct {
	pool *pgxpool.Pool
}

func NewNewsletterStore(pool *pgxpool.Pool) *NewsletterStore {
	return &NewsletterStore{pool: pool}
}

// Subscribe adds an email to the list. Duplicates surface as
// ErrAlreadySubscribed via the unique constraint rather than a pre-check.
func (s *NewsletterStore) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.pool.Exec(ctx,
		`INSERT INTO newsletter_subscribers (email) VALUES ($1)`, email)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return err
	}
	return nil
}

// ActiveEmails lists every subscribed address for a marketing send.
func (s *NewsletterStore) ActiveEmails(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email FROM newsletter_subscribers WHERE unsubscribed_at IS NULL ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
