package languages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shoplock"
	"github.com/ManuelReschke/LingoFox/internal/pkg/usage"
)

var (
	ErrDefaultLanguage  = errors.New("Cannot delete default language")
	ErrDefaultRequired  = errors.New("Cannot unset default language, choose another default instead")
	ErrLanguageNotFound = errors.New("language not found")
	ErrLanguageExists   = errors.New("language already exists")
)

// CreateInput is the form data of a new language.
type CreateInput struct {
	Code      string `json:"code" form:"code"`
	Name      string `json:"name" form:"name"`
	IsDefault bool   `json:"isDefault" form:"isDefault"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name      *string `json:"name,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// Service manages the per-shop target languages.
type Service struct {
	db      *gorm.DB
	checker *entitlements.Checker
	tracker *usage.Tracker
	locker  shoplock.Locker
}

func NewService(db *gorm.DB, checker *entitlements.Checker, tracker *usage.Tracker, locker shoplock.Locker) *Service {
	if tracker == nil {
		tracker = usage.NewTracker(db)
	}
	if checker == nil {
		checker = entitlements.NewChecker(db, tracker)
	}
	if locker == nil {
		locker = shoplock.NewLocalLocker()
	}
	return &Service{db: db, checker: checker, tracker: tracker, locker: locker}
}

// NotFoundError matches ErrLanguageNotFound and names the missing code.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Language %s not found", e.Code)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrLanguageNotFound
}

func notFound(code string) error {
	return &NotFoundError{Code: code}
}

// Create adds a language after the language limit check. Setting it as the
// default clears the previous default in the same transaction.
func (s *Service) Create(ctx context.Context, shop string, in CreateInput) (*models.Language, error) {
	lang := &models.Language{
		Shop:      strings.TrimSpace(shop),
		Code:      strings.TrimSpace(in.Code),
		Name:      strings.TrimSpace(in.Name),
		IsDefault: in.IsDefault,
	}
	if err := lang.Validate(); err != nil {
		return nil, err
	}

	err := s.locker.WithLock(ctx, lang.Shop, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repos := repository.NewRepositories(tx)
			if _, err := repos.Language.GetByCode(lang.Shop, lang.Code); err == nil {
				return fmt.Errorf("%w: %s", ErrLanguageExists, lang.Code)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			check, err := s.checker.WithTx(tx).CheckLanguageLimit(ctx, lang.Shop)
			if err != nil {
				return err
			}
			if !check.Allowed {
				return entitlements.NewLimitError("Language", check)
			}

			if err := s.tracker.WithTx(tx).Increment(ctx, lang.Shop, usage.KindLanguages, 1); err != nil {
				return err
			}
			if lang.IsDefault {
				if err := repos.Language.UnsetDefaults(lang.Shop); err != nil {
					return err
				}
			}
			return repos.Language.Create(lang)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Languages] Added %s (%s) for %s", lang.Code, lang.Name, lang.Shop)
	return lang, nil
}

// List returns the default language first, then the rest by name.
func (s *Service) List(ctx context.Context, shop string) ([]models.Language, error) {
	return repository.NewRepositories(s.db.WithContext(ctx)).Language.ListByShop(shop)
}

func (s *Service) Get(ctx context.Context, shop, code string) (*models.Language, error) {
	lang, err := repository.NewRepositories(s.db.WithContext(ctx)).Language.GetByCode(shop, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(code)
	}
	return lang, err
}

// GetDefault returns the shop's default language or nil when none is set.
func (s *Service) GetDefault(ctx context.Context, shop string) (*models.Language, error) {
	lang, err := repository.NewRepositories(s.db.WithContext(ctx)).Language.GetDefault(shop)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return lang, err
}

func (s *Service) Update(ctx context.Context, shop, code string, in UpdateInput) (*models.Language, error) {
	var out *models.Language
	err := s.locker.WithLock(ctx, shop, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repos := repository.NewRepositories(tx)
			lang, err := repos.Language.GetByCode(shop, code)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(code)
			}
			if err != nil {
				return err
			}

			if in.Name != nil {
				lang.Name = strings.TrimSpace(*in.Name)
			}
			if in.IsDefault != nil {
				if !*in.IsDefault && lang.IsDefault {
					return ErrDefaultRequired
				}
				if *in.IsDefault && !lang.IsDefault {
					if err := repos.Language.UnsetDefaults(shop); err != nil {
						return err
					}
				}
				lang.IsDefault = *in.IsDefault
			}
			if err := lang.Validate(); err != nil {
				return err
			}
			if err := repos.Language.Update(lang); err != nil {
				return err
			}
			out = lang
			return nil
		})
	})
	return out, err
}

// SetDefault makes code the single default language of the shop.
func (s *Service) SetDefault(ctx context.Context, shop, code string) (*models.Language, error) {
	isDefault := true
	return s.Update(ctx, shop, code, UpdateInput{IsDefault: &isDefault})
}

// Delete removes a non-default language together with all its translations
// and gives its slot back to the language limit.
func (s *Service) Delete(ctx context.Context, shop, code string) error {
	return s.locker.WithLock(ctx, shop, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repos := repository.NewRepositories(tx)
			lang, err := repos.Language.GetByCode(shop, code)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(code)
			}
			if err != nil {
				return err
			}
			if lang.IsDefault {
				return ErrDefaultLanguage
			}
			if err := s.tracker.WithTx(tx).Release(ctx, shop, usage.KindLanguages, 1); err != nil {
				return err
			}

			removed, err := repos.Translation.DeleteByLanguage(shop, code)
			if err != nil {
				return err
			}
			if err := repos.Language.Delete(shop, code); err != nil {
				return err
			}
			log.Infof("[Languages] Removed %s for %s (%d translations)", code, shop, removed)
			return nil
		})
	})
}
