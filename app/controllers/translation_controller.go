package controllers

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/cache"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translations"
)

const (
	translationListLimit   = 100
	marketsSyncedKeyPrefix = "markets:synced:"
)

var (
	resourceTypes       = []string{models.ResourceTypeProduct, models.ResourceTypeCollection, models.ResourceTypePage}
	translationStatuses = []string{models.TranslationStatusDraft, models.TranslationStatusReview, models.TranslationStatusPublished}
)

var errJobsUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "Background jobs are not available")

// resourceParams returns the resource type and the unescaped resource id.
// Shopify GIDs contain slashes and travel path-escaped.
func resourceParams(c *fiber.Ctx) (string, string) {
	id := c.Params("resourceId")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return c.Params("resourceType"), id
}

func (ac *AppController) HandleTranslations(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	filter := repository.TranslationFilter{
		ResourceType: c.Query("resourceType", "all"),
		LanguageCode: c.Query("language", "all"),
		Status:       c.Query("status", "all"),
		Limit:        translationListLimit,
	}
	list, err := ac.Translations.Search(ctx, shop, filter)
	if err != nil {
		return ac.renderError(c, err)
	}
	langs, err := ac.Languages.List(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}

	return ac.render(c, "translations", "Translations", fiber.Map{
		"Translations":  list,
		"Languages":     langs,
		"Filter":        filter,
		"ResourceTypes": resourceTypes,
		"Statuses":      translationStatuses,
	})
}

// HandleSelect lists the store's resources of one type together with its
// markets. Markets are refreshed from Shopify first; when that fails the
// stored markets are shown and a background refresh is queued.
func (ac *AppController) HandleSelect(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	resourceType := c.Query("type", models.ResourceTypePage)
	if !models.IsSupportedResourceType(resourceType) {
		return ac.renderError(c, fiber.NewError(fiber.StatusBadRequest, "Invalid resource"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := ac.client(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	resources, err := client.ListResources(ctx, resourceType, shopify.DefaultListLimit)
	if err != nil {
		return ac.renderError(c, err)
	}

	ac.syncMarkets(ctx, shop, client)
	mkts, err := ac.Markets.List(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}

	return ac.render(c, "select", "Select "+resourceType, fiber.Map{
		"ResourceType": resourceType,
		"Resources":    resources,
		"Markets":      mkts,
	})
}

func (ac *AppController) HandleEditor(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	resourceType, resourceID := resourceParams(c)
	if !models.IsSupportedResourceType(resourceType) {
		return ac.renderError(c, fiber.NewError(fiber.StatusBadRequest, "Invalid resource"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := ac.client(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	resource, err := client.FetchResource(ctx, resourceType, resourceID)
	if err != nil {
		return ac.renderError(c, err)
	}

	langs, err := ac.Languages.List(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	selected := c.Query("language")
	if selected == "" && len(langs) > 0 {
		selected = langs[0].Code
	}

	list, err := ac.Translations.List(ctx, shop, resourceType, resourceID, c.Query("market"))
	if err != nil {
		return ac.renderError(c, err)
	}
	values := make(map[string]string)
	for _, t := range list {
		if t.LanguageCode == selected {
			values[t.Field] = t.TranslatedValue
		}
	}

	return ac.render(c, "editor", resource.Title, fiber.Map{
		"Resource":         resource,
		"Languages":        langs,
		"SelectedLanguage": selected,
		"Translations":     list,
		"Values":           values,
	})
}

// HandleEditorPost runs one of the save, sync, autoTranslate and queueSync
// actions on a resource.
func (ac *AppController) HandleEditorPost(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	resourceType, resourceID := resourceParams(c)
	if !models.IsSupportedResourceType(resourceType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid resource"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	languageCode := strings.TrimSpace(c.FormValue("languageCode"))
	marketID := strings.TrimSpace(c.FormValue("marketId"))

	switch c.FormValue("action") {
	case "save":
		t, err := ac.Translations.Save(ctx, shop, translations.SaveInput{
			ResourceType:    resourceType,
			ResourceID:      resourceID,
			Field:           c.FormValue("field"),
			LanguageCode:    languageCode,
			MarketID:        marketID,
			TranslatedValue: c.FormValue("translatedValue"),
			Status:          c.FormValue("status"),
		})
		if err != nil {
			return RespondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "translation": t})

	case "sync":
		client, err := ac.client(ctx, shop)
		if err != nil {
			return RespondError(c, err)
		}
		res, err := ac.Syncer.SyncTranslation(ctx, client, shop, resourceType, resourceID, languageCode, marketID)
		if err != nil {
			return RespondError(c, err)
		}
		return c.JSON(res)

	case "autoTranslate":
		field := c.FormValue("field")
		text := c.FormValue("text")
		if strings.TrimSpace(text) == "" {
			client, err := ac.client(ctx, shop)
			if err != nil {
				return RespondError(c, err)
			}
			resource, err := client.FetchResource(ctx, resourceType, resourceID)
			if err != nil {
				return RespondError(c, err)
			}
			text = resource.FieldValue(field)
		}
		t, err := ac.Translations.AutoTranslate(ctx, shop, translations.AutoTranslateInput{
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Field:        field,
			LanguageCode: languageCode,
			MarketID:     marketID,
			Text:         text,
			Context:      resourceType + " " + field,
		})
		if err != nil {
			return RespondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "translation": t})

	case "queueSync":
		if ac.Jobs == nil {
			return RespondError(c, errJobsUnavailable)
		}
		payload := jobqueue.SyncTranslationJobPayload{
			Shop:         shop,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			LanguageCode: languageCode,
			MarketID:     marketID,
		}
		job, err := ac.Jobs.EnqueueJob(ctx, jobqueue.JobTypeSyncTranslation, shop, payload.ToMap())
		if err != nil {
			return RespondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "jobId": job.ID})

	default:
		return c.JSON(fiber.Map{"success": false})
	}
}

// HandleBackup queues a snapshot of the shop's translations.
func (ac *AppController) HandleBackup(c *fiber.Ctx) error {
	if ac.Jobs == nil {
		return RespondError(c, errJobsUnavailable)
	}
	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	payload := jobqueue.ShopJobPayload{Shop: shop}
	job, err := ac.Jobs.EnqueueJob(ctx, jobqueue.JobTypeBackupTranslations, shop, payload.ToMap())
	if errors.Is(err, jobqueue.ErrUnknownJobType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Translation backups are not enabled"})
	}
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": job.ID})
}

// syncMarkets refreshes the shop's markets at most once per MarketsSyncTTL.
// A failed sync is handed to the job queue.
func (ac *AppController) syncMarkets(ctx context.Context, shop string, client ShopClient) {
	key := marketsSyncedKeyPrefix + shop
	if ac.MarketsSyncTTL > 0 {
		if _, err := cache.Get(key); err == nil {
			return
		}
	}

	if _, err := ac.Markets.Sync(ctx, shop, client); err != nil {
		log.Warnf("[Markets] Sync for %s failed: %v", shop, err)
		if ac.Jobs != nil {
			payload := jobqueue.ShopJobPayload{Shop: shop}
			if _, qerr := ac.Jobs.EnqueueJob(ctx, jobqueue.JobTypeSyncMarkets, shop, payload.ToMap()); qerr != nil {
				log.Warnf("[Markets] Could not queue market sync for %s: %v", shop, qerr)
			}
		}
		return
	}

	if ac.MarketsSyncTTL > 0 {
		if err := cache.Set(key, time.Now().UTC().Format(time.RFC3339), ac.MarketsSyncTTL); err != nil {
			log.Warnf("[Markets] Could not remember sync for %s: %v", shop, err)
		}
	}
}
