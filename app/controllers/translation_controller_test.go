package controllers

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/cache"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
)

var editorPath = "/app/translations/product/" + url.PathEscape(testProduct)

func seedLanguages(t *testing.T, e *testEnv) {
	require.NoError(t, e.db.Create(&models.Language{Shop: testShop, Code: "en", Name: "English", IsDefault: true}).Error)
	require.NoError(t, e.db.Create(&models.Language{Shop: testShop, Code: "fr", Name: "French"}).Error)
}

func TestEditorPage(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)
	seedLanguages(t, e)

	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"save"}, "field": {"title"}, "languageCode": {"fr"}, "translatedValue": {"Chemise en lin"},
	}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	resp, body = e.do(t, httptest.NewRequest(fiber.MethodGet, editorPath+"?language=fr", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Linen Shirt")
	assert.Contains(t, body, "Chemise en lin")

	resp, _ = e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/blog/1", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/product/404", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestEditorSaveAndSync(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)
	seedLanguages(t, e)

	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{"action": {"sync"}, "languageCode": {"fr"}}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decodeJSON(t, body)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "No published translations found", out["message"])

	resp, body = e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"save"}, "field": {"title"}, "languageCode": {"fr"},
		"translatedValue": {"Chemise en lin"}, "status": {"published"},
	}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, decodeJSON(t, body)["success"])

	resp, body = e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{"action": {"sync"}, "languageCode": {"fr"}}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeJSON(t, body)["success"])
	assert.Equal(t, "Chemise en lin", e.client.updated[testProduct]["title"])
}

func TestEditorSaveErrors(t *testing.T) {
	e := newTestEnv(t)
	seedLanguages(t, e)

	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"save"}, "field": {"title"}, "languageCode": {"fr"}, "translatedValue": {"x"},
	}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No active subscription", decodeJSON(t, body)["error"])

	seedSubscription(t, e.db, billing.PlanBasic)
	resp, body = e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"save"}, "field": {"title"}, "languageCode": {"de"}, "translatedValue": {"x"},
	}))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Language de not found", decodeJSON(t, body)["error"])

	resp, body = e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{"action": {"translateAll"}}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeJSON(t, body)["success"])
}

func TestEditorAutoTranslate(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanPro)
	seedLanguages(t, e)

	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"autoTranslate"}, "field": {"title"}, "languageCode": {"fr"},
	}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var stored models.Translation
	require.NoError(t, e.db.Where("shop = ? AND field = ? AND language_code = ?", testShop, "title", "fr").First(&stored).Error)
	assert.Equal(t, "[Translated from en to fr]: Linen Shirt", stored.TranslatedValue)
	assert.True(t, stored.AutoTranslated)
	assert.Equal(t, models.TranslationStatusDraft, stored.Status)
}

func TestEditorAutoTranslateRequiresPlan(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)
	seedLanguages(t, e)

	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"autoTranslate"}, "field": {"title"}, "languageCode": {"fr"},
	}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Auto-translate is not available on your plan", decodeJSON(t, body)["error"])
}

func TestEditorQueueSync(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
		"action": {"queueSync"}, "languageCode": {"fr"}, "marketId": {"gid://shopify/Market/1"},
	}))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode, body)
	assert.Equal(t, "job-sync_translation", decodeJSON(t, body)["jobId"])

	require.Len(t, e.jobs.enqueued, 1)
	payload, err := jobqueue.SyncTranslationJobPayloadFromMap(e.jobs.enqueued[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, testProduct, payload.ResourceID)
	assert.Equal(t, "fr", payload.LanguageCode)
	assert.Equal(t, "gid://shopify/Market/1", payload.MarketID)

	e.ac.Jobs = nil
	resp, _ = e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{"action": {"queueSync"}}))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestSelectSyncsMarkets(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/select?type=product", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Linen Shirt")
	assert.Contains(t, body, "Europe")

	var count int64
	require.NoError(t, e.db.Model(&models.Market{}).Where("shop = ?", testShop).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, e.jobs.enqueued)

	resp, _ = e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/select?type=blog", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSelectThrottlesMarketSync(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	e := newTestEnv(t)
	e.ac.MarketsSyncTTL = time.Minute

	for i := 0; i < 2; i++ {
		resp, _ := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/select", nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 1, e.client.marketFetches)

	mr.FastForward(2 * time.Minute)
	resp, _ := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/select", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, e.client.marketFetches)
}

func TestSelectQueuesMarketSyncOnFailure(t *testing.T) {
	e := newTestEnv(t)
	e.client.marketsErr = errors.New("throttled")

	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations/select", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No pages found")
	require.Len(t, e.jobs.enqueued, 1)
	assert.Equal(t, jobqueue.JobTypeSyncMarkets, e.jobs.enqueued[0].Type)
}

func TestTranslationsListFilters(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)
	seedLanguages(t, e)
	for _, lang := range []string{"en", "fr"} {
		resp, body := e.do(t, formRequest(fiber.MethodPost, editorPath, url.Values{
			"action": {"save"}, "field": {"title"}, "languageCode": {lang},
			"translatedValue": {fmt.Sprintf("title-%s", lang)},
		}))
		require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	}

	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app/translations?language=fr", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "title-fr")
	assert.NotContains(t, body, "title-en")
}

func TestBackup(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, httptest.NewRequest(fiber.MethodPost, "/app/translations/backup", nil))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job-backup_translations", decodeJSON(t, body)["jobId"])

	e.jobs.err = fmt.Errorf("%w: %s", jobqueue.ErrUnknownJobType, jobqueue.JobTypeBackupTranslations)
	resp, body = e.do(t, httptest.NewRequest(fiber.MethodPost, "/app/translations/backup", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Translation backups are not enabled", decodeJSON(t, body)["error"])
}
