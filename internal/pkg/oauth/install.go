package oauth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/security"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

// Installer stores the offline token of a shop that finished OAuth.
type Installer struct {
	sessions repository.ShopSessionRepository
	cipher   *security.TokenCipher
	now      func() time.Time
}

func NewInstaller(sessions repository.ShopSessionRepository, cipher *security.TokenCipher) *Installer {
	return &Installer{sessions: sessions, cipher: cipher, now: time.Now}
}

// Complete seals accessToken and upserts the ShopSession. Reinstalling a shop
// replaces the stored token.
func (i *Installer) Complete(ctx context.Context, shop, accessToken string, scopes []string) (*models.ShopSession, error) {
	_ = ctx
	shop = shopcontext.NormalizeShop(shop)
	if !shopcontext.IsValidShopDomain(shop) {
		return nil, ErrInvalidShop
	}

	sealed, err := i.cipher.Seal(shop, accessToken)
	if err != nil {
		return nil, err
	}

	sess := &models.ShopSession{
		Shop:           shop,
		AccessTokenEnc: sealed,
		Scope:          strings.Join(scopes, ","),
		InstalledAt:    i.now(),
	}
	if err := i.sessions.Upsert(sess); err != nil {
		return nil, err
	}
	log.Infof("[OAuth] Installed on %s (scope=%s)", shop, sess.Scope)
	return sess, nil
}

// Uninstall drops the stored token after app/uninstalled.
func (i *Installer) Uninstall(ctx context.Context, shop string) error {
	_ = ctx
	if err := i.sessions.MarkUninstalled(shop); err != nil {
		return err
	}
	log.Infof("[OAuth] Uninstalled from %s", shop)
	return nil
}
