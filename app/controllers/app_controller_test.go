package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LingoFox/internal/pkg/languages"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shoplock"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translator"
	"github.com/ManuelReschke/LingoFox/views"
)

const (
	testShop    = "demo.myshopify.com"
	testProduct = "gid://shopify/Product/1"
	testSecret  = "shpss_test_secret"
)

type fakeClient struct {
	resources     map[string]*shopify.Resource
	markets       []shopify.Market
	marketsErr    error
	marketFetches int
	updated       map[string]map[string]string
	createReq     *billing.CreateSubscriptionRequest
	remoteStatus  string
	cancelled     bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		resources: map[string]*shopify.Resource{
			models.ResourceTypeProduct + "/" + testProduct: {
				ID:    testProduct,
				Type:  models.ResourceTypeProduct,
				Title: "Linen Shirt",
				Fields: []shopify.Field{
					{Field: "title", Value: "Linen Shirt", Type: "string"},
					{Field: "body_html", Value: "<p>Soft linen</p>", Type: "html"},
				},
			},
		},
		markets:      []shopify.Market{{ID: "gid://shopify/Market/1", Name: "Europe", Enabled: true}},
		remoteStatus: "ACTIVE",
	}
}

func (f *fakeClient) CreateAppSubscription(ctx context.Context, req billing.CreateSubscriptionRequest) (*billing.CreateSubscriptionResult, error) {
	f.createReq = &req
	return &billing.CreateSubscriptionResult{
		Subscription:    &billing.AppSubscription{ID: "gid://shopify/AppSubscription/1", Name: req.Name, Status: "PENDING"},
		ConfirmationURL: "https://demo.myshopify.com/admin/charges/1/confirm",
	}, nil
}

func (f *fakeClient) GetAppSubscription(ctx context.Context, id string) (*billing.AppSubscription, error) {
	return &billing.AppSubscription{ID: id, Status: f.remoteStatus}, nil
}

func (f *fakeClient) CancelAppSubscription(ctx context.Context, id string) (*billing.CancelSubscriptionResult, error) {
	f.cancelled = true
	return &billing.CancelSubscriptionResult{Subscription: &billing.AppSubscription{ID: id, Status: "CANCELLED"}}, nil
}

func (f *fakeClient) record(id string, fields map[string]string) ([]string, error) {
	if f.updated == nil {
		f.updated = map[string]map[string]string{}
	}
	f.updated[id] = fields
	return nil, nil
}

func (f *fakeClient) UpdateProduct(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record(id, fields)
}

func (f *fakeClient) UpdateCollection(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record(id, fields)
}

func (f *fakeClient) UpdatePage(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record(id, fields)
}

func (f *fakeClient) FetchMarkets(ctx context.Context) ([]shopify.Market, error) {
	f.marketFetches++
	return f.markets, f.marketsErr
}

func (f *fakeClient) FetchResource(ctx context.Context, resourceType, id string) (*shopify.Resource, error) {
	if !models.IsSupportedResourceType(resourceType) {
		return nil, shopify.ErrUnsupportedResource
	}
	r, ok := f.resources[resourceType+"/"+id]
	if !ok {
		return nil, shopify.ErrResourceNotFound
	}
	return r, nil
}

func (f *fakeClient) ListResources(ctx context.Context, resourceType string, limit int) ([]shopify.Resource, error) {
	var out []shopify.Resource
	for _, r := range f.resources {
		if r.Type == resourceType {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeJobs struct {
	enqueued []jobqueue.Job
	err      error
}

func (f *fakeJobs) EnqueueJob(ctx context.Context, jobType jobqueue.JobType, shop string, payload map[string]interface{}) (*jobqueue.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	job := jobqueue.Job{ID: "job-" + string(jobType), Type: jobType, Shop: shop, Payload: payload, Status: jobqueue.JobStatusPending}
	f.enqueued = append(f.enqueued, job)
	return &job, nil
}

func (f *fakeJobs) GetShopJob(ctx context.Context, shop, jobID string) (*jobqueue.Job, error) {
	for _, j := range f.enqueued {
		if j.ID == jobID && j.Shop == shop {
			return &j, nil
		}
	}
	return nil, jobqueue.ErrJobNotFound
}

type testEnv struct {
	app    *fiber.App
	ac     *AppController
	db     *gorm.DB
	client *fakeClient
	jobs   *fakeJobs
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels...))
	return db
}

// seedSubscription stores an active subscription of plan with its caps.
func seedSubscription(t *testing.T, db *gorm.DB, plan billing.PlanID) *models.Subscription {
	def, ok := billing.FindPlan(plan)
	require.True(t, ok)
	sub := &models.Subscription{
		Shop:                  testShop,
		PlanID:                string(def.ID),
		PlanName:              def.Name,
		Status:                models.SubscriptionStatusActive,
		ShopifySubscriptionID: "gid://shopify/AppSubscription/1",
	}
	require.NoError(t, db.Create(sub).Error)
	require.NoError(t, db.Create(def.Caps.UsageLimit(sub.ID)).Error)
	return sub
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	ac := NewAppController(db, shoplock.NewLocalLocker(), translator.Placeholder{})
	client := newFakeClient()
	jobs := &fakeJobs{}
	ac.Clients = func(ctx context.Context, shop string) (ShopClient, error) { return client, nil }
	ac.Jobs = jobs
	ac.APIKey = "test-key"
	ac.APISecret = testSecret
	ac.PublicURL = "https://app.example.com"

	app := fiber.New(fiber.Config{Views: views.NewEngine()})
	app.Use(func(c *fiber.Ctx) error {
		shopcontext.Set(c, shopcontext.ShopContext{Shop: testShop, Authenticated: true})
		return c.Next()
	})
	mountRoutes(app, ac)
	return &testEnv{app: app, ac: ac, db: db, client: client, jobs: jobs}
}

func mountRoutes(app *fiber.App, ac *AppController) {
	app.Get("/healthz", ac.HandleHealth)
	app.Get("/app", ac.HandleDashboard)
	app.Get("/app/languages", ac.HandleLanguages)
	app.Post("/app/languages", ac.HandleLanguagesPost)
	app.Get("/app/subscription/plans", ac.HandlePlans)
	app.Get("/app/subscription/checkout", ac.HandleCheckout)
	app.Post("/app/subscription/checkout", ac.HandleCheckoutPost)
	app.Get("/app/subscription/manage", ac.HandleManage)
	app.Post("/app/subscription/manage", ac.HandleManagePost)
	app.Get("/app/subscription/success", ac.HandleSuccess)
	app.Get("/app/translations", ac.HandleTranslations)
	app.Get("/app/translations/select", ac.HandleSelect)
	app.Post("/app/translations/backup", ac.HandleBackup)
	app.Get("/app/translations/:resourceType/:resourceId", ac.HandleEditor)
	app.Post("/app/translations/:resourceType/:resourceId", ac.HandleEditorPost)
	app.Post("/webhooks/app_subscriptions/update", ac.HandleSubscriptionWebhook)
	app.Post("/webhooks/products/update", ac.HandleProductsWebhook)
	app.Post("/webhooks/app/uninstalled", ac.HandleUninstalledWebhook)
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func decodeJSON(t *testing.T, body string) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"limit", entitlements.NewLimitError("Language", &entitlements.LimitCheck{Current: 2, Limit: 2}), fiber.StatusBadRequest},
		{"external", billing.NewExternalError(nil, "Failed"), fiber.StatusBadRequest},
		{"invalid plan", billing.ErrInvalidPlan, fiber.StatusBadRequest},
		{"default language", languages.ErrDefaultLanguage, fiber.StatusBadRequest},
		{"language not found", &languages.NotFoundError{Code: "de"}, fiber.StatusNotFound},
		{"resource not found", shopify.ErrResourceNotFound, fiber.StatusNotFound},
		{"no subscription", billing.ErrNoSubscription, fiber.StatusNotFound},
		{"not installed", shopify.ErrShopNotInstalled, fiber.StatusUnauthorized},
		{"lock", shoplock.ErrLockTimeout, fiber.StatusConflict},
		{"fiber", fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestErrorMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "Internal server error", errorMessage(errors.New("dsn leaked"), fiber.StatusInternalServerError))
	assert.Equal(t, "Language de not found", errorMessage(&languages.NotFoundError{Code: "de"}, fiber.StatusNotFound))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON(t, body)["status"])
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanPro)
	require.NoError(t, e.db.Create(&models.Language{Shop: testShop, Code: "fr", Name: "French", IsDefault: true}).Error)

	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Pro (active)")
	assert.Contains(t, body, "French (fr)")
	assert.Contains(t, body, "Languages: 0 / 5")
}

func TestDashboardWithoutSubscription(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, httptest.NewRequest(fiber.MethodGet, "/app", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No active subscription")
	assert.Contains(t, body, "No languages yet")
}
