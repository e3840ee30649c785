package pgshipping

import (
	"context"
	"time"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) GetCredential(ctx context.Context, merchantID int64) (*models.Credential, error) {
	var c models.Credential
	err := s.db.QueryRow(ctx, `
SELECT merchant_id, email, secret, created_at, updated_at
FROM shiprocket_credentials
WHERE merchant_id = $1
`, merchantID).Scan(&c.MerchantID, &c.Email, &c.Secret, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select credential")
	}

	plain, err := s.sealer.Open(c.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "open credential secret")
	}
	c.Secret = plain
	return &c, nil
}

// SaveCredential inserts or replaces the merchant's credential.
func (s *Storage) SaveCredential(ctx context.Context, c models.Credential) error {
	sealed, err := s.sealer.Seal(c.Secret)
	if err != nil {
		return errors.Wrap(err, "seal credential secret")
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `
INSERT INTO shiprocket_credentials (merchant_id, email, secret, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (merchant_id)
DO UPDATE SET email = EXCLUDED.email, secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at
`, c.MerchantID, c.Email, sealed, now)
	return errors.Wrap(err, "upsert credential")
}

// CredentialEmailTaken reports whether another merchant already saved email.
func (s *Storage) CredentialEmailTaken(ctx context.Context, email string, merchantID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM shiprocket_credentials
  WHERE lower(email) = lower($1) AND merchant_id <> $2
)`, email, merchantID).Scan(&taken)
	if err != nil {
		return false, errors.Wrap(err, "check credential email")
	}
	return taken, nil
}
