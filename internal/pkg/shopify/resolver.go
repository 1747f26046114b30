package shopify

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/security"
)

var ErrShopNotInstalled = errors.New("shop is not installed")

// Resolver builds an Admin API client from the stored offline session.
type Resolver struct {
	sessions repository.ShopSessionRepository
	cipher   *security.TokenCipher

	// BaseURL is passed to every client, used by tests.
	BaseURL string
}

func NewResolver(sessions repository.ShopSessionRepository, cipher *security.TokenCipher) *Resolver {
	return &Resolver{sessions: sessions, cipher: cipher}
}

func (r *Resolver) ClientFor(ctx context.Context, shop string) (*Client, error) {
	sess, err := r.sessions.GetByShop(shop)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShopNotInstalled
	}
	if err != nil {
		return nil, err
	}
	if !sess.IsInstalled() || sess.AccessTokenEnc == "" {
		return nil, ErrShopNotInstalled
	}
	token, err := r.cipher.Open(shop, sess.AccessTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for %s: %w", shop, err)
	}
	c := NewClient(shop, token)
	c.BaseURL = r.BaseURL
	return c, nil
}
