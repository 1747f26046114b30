package translations

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
	"github.com/ManuelReschke/LingoFox/internal/pkg/languages"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shoplock"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translator"
	"github.com/ManuelReschke/LingoFox/internal/pkg/usage"
)

var (
	ErrTranslationNotFound = errors.New("translation not found")
	ErrFeatureUnavailable  = errors.New("Auto-translate is not available on your plan")
	ErrEmptySourceText     = errors.New("source text is required")
)

// SaveInput is one translated field. Empty Status means draft, empty
// MarketID means the translation applies to every market.
type SaveInput struct {
	ResourceType    string `json:"resourceType" form:"resourceType"`
	ResourceID      string `json:"resourceId" form:"resourceId"`
	Field           string `json:"field" form:"field"`
	LanguageCode    string `json:"languageCode" form:"languageCode"`
	MarketID        string `json:"marketId,omitempty" form:"marketId"`
	TranslatedValue string `json:"translatedValue" form:"translatedValue"`
	Status          string `json:"status,omitempty" form:"status"`
	AutoTranslated  bool   `json:"autoTranslated,omitempty" form:"autoTranslated"`
}

func (in SaveInput) model(shop string) *models.Translation {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.TranslationStatusDraft
	}
	return &models.Translation{
		Shop:            strings.TrimSpace(shop),
		ResourceType:    strings.TrimSpace(in.ResourceType),
		ResourceID:      strings.TrimSpace(in.ResourceID),
		Field:           strings.TrimSpace(in.Field),
		LanguageCode:    strings.TrimSpace(in.LanguageCode),
		MarketID:        strings.TrimSpace(in.MarketID),
		TranslatedValue: in.TranslatedValue,
		Status:          status,
		AutoTranslated:  in.AutoTranslated,
	}
}

// AutoTranslateInput asks the translator for one field and stores the result.
type AutoTranslateInput struct {
	ResourceType   string
	ResourceID     string
	Field          string
	SourceLanguage string
	LanguageCode   string
	MarketID       string
	Text           string
	Context        string
}

// Stats summarises the stored translations of a shop.
type Stats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByLanguage map[string]int64 `json:"byLanguage"`
}

type Service struct {
	db         *gorm.DB
	checker    *entitlements.Checker
	tracker    *usage.Tracker
	locker     shoplock.Locker
	translator translator.Provider
}

func NewService(db *gorm.DB, checker *entitlements.Checker, tracker *usage.Tracker, locker shoplock.Locker, provider translator.Provider) *Service {
	if tracker == nil {
		tracker = usage.NewTracker(db)
	}
	if checker == nil {
		checker = entitlements.NewChecker(db, tracker)
	}
	if locker == nil {
		locker = shoplock.NewLocalLocker()
	}
	if provider == nil {
		provider = translator.Placeholder{}
	}
	return &Service{db: db, checker: checker, tracker: tracker, locker: locker, translator: provider}
}

func (s *Service) repos(ctx context.Context) *repository.Repositories {
	return repository.NewRepositories(s.db.WithContext(ctx))
}

// Save upserts a translation on its unique key and counts it against the
// monthly translation quota.
func (s *Service) Save(ctx context.Context, shop string, in SaveInput) (*models.Translation, error) {
	t := in.model(shop)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := s.locker.WithLock(ctx, t.Shop, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.save(ctx, tx, t)
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) save(ctx context.Context, tx *gorm.DB, t *models.Translation) error {
	repos := repository.NewRepositories(tx)
	if _, err := repos.Language.GetByCode(t.Shop, t.LanguageCode); errors.Is(err, gorm.ErrRecordNotFound) {
		return &languages.NotFoundError{Code: t.LanguageCode}
	} else if err != nil {
		return err
	}

	res, err := s.checker.WithTx(tx).CheckUsageLimits(ctx, t.Shop, usage.KindTranslations)
	if err != nil {
		return err
	}
	if !res.Allowed {
		check := res.Checks[usage.KindTranslations]
		if check.Reason == "" {
			check.Reason = res.Reason
		}
		return entitlements.NewLimitError("Translation", &check)
	}

	if err := repos.Translation.Upsert(t); err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	return s.tracker.WithTx(tx).Increment(ctx, t.Shop, usage.KindTranslations, 1)
}

// BulkSave saves the inputs in order and stops at the first failure. The
// translations saved before the failure are kept and returned.
func (s *Service) BulkSave(ctx context.Context, shop string, inputs []SaveInput) ([]models.Translation, error) {
	out := make([]models.Translation, 0, len(inputs))
	for i, in := range inputs {
		t, err := s.Save(ctx, shop, in)
		if err != nil {
			return out, fmt.Errorf("translation %d: %w", i, err)
		}
		out = append(out, *t)
	}
	return out, nil
}

// List returns the translations of one resource, optionally for one market.
func (s *Service) List(ctx context.Context, shop, resourceType, resourceID, marketID string) ([]models.Translation, error) {
	return s.repos(ctx).Translation.ListByResource(shop, resourceType, resourceID, marketID)
}

func (s *Service) Get(ctx context.Context, key repository.TranslationKey) (*models.Translation, error) {
	t, err := s.repos(ctx).Translation.Get(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranslationNotFound
	}
	return t, err
}

// Update changes value and status of an existing translation. An empty
// status resets it to draft.
func (s *Service) Update(ctx context.Context, key repository.TranslationKey, translatedValue, status string) (*models.Translation, error) {
	if status == "" {
		status = models.TranslationStatusDraft
	}
	switch status {
	case models.TranslationStatusDraft, models.TranslationStatusReview, models.TranslationStatusPublished:
	default:
		return nil, fmt.Errorf("invalid status %q", status)
	}

	t, err := s.repos(ctx).Translation.Update(key, translatedValue, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranslationNotFound
	}
	return t, err
}

func (s *Service) Delete(ctx context.Context, key repository.TranslationKey) error {
	err := s.repos(ctx).Translation.Delete(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTranslationNotFound
	}
	return err
}

func (s *Service) Stats(ctx context.Context, shop string) (*Stats, error) {
	repo := s.repos(ctx).Translation
	total, err := repo.CountByShop(shop)
	if err != nil {
		return nil, err
	}
	byStatus, err := repo.CountGroupedBy(shop, "status")
	if err != nil {
		return nil, err
	}
	byLanguage, err := repo.CountGroupedBy(shop, "language_code")
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, ByStatus: byStatus, ByLanguage: byLanguage}, nil
}

// Search lists the newest translations matching filter.
func (s *Service) Search(ctx context.Context, shop string, filter repository.TranslationFilter) ([]models.Translation, error) {
	return s.repos(ctx).Translation.Search(shop, filter)
}

// AutoTranslate machine-translates one field for plans that include it and
// stores the result as an auto-translated draft.
func (s *Service) AutoTranslate(ctx context.Context, shop string, in AutoTranslateInput) (*models.Translation, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptySourceText
	}
	allowed, err := s.checker.CheckFeatureAccess(ctx, shop, entitlements.FeatureAutoTranslate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrFeatureUnavailable
	}

	source := in.SourceLanguage
	if source == "" {
		if def, err := s.repos(ctx).Language.GetDefault(shop); err == nil {
			source = def.Code
		} else {
			source = "en"
		}
	}

	res, err := s.translator.Translate(ctx, translator.Options{
		SourceLanguage: source,
		TargetLanguage: in.LanguageCode,
		Text:           in.Text,
		Context:        in.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("auto-translate failed: %w", err)
	}
	log.Debugf("[Translations] %s translated %s/%s %s to %s", res.Provider, in.ResourceType, in.ResourceID, in.Field, in.LanguageCode)

	return s.Save(ctx, shop, SaveInput{
		ResourceType:    in.ResourceType,
		ResourceID:      in.ResourceID,
		Field:           in.Field,
		LanguageCode:    in.LanguageCode,
		MarketID:        in.MarketID,
		TranslatedValue: res.TranslatedText,
		Status:          models.TranslationStatusDraft,
		AutoTranslated:  true,
	})
}
