package contentsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
)

const testShop = "demo.myshopify.com"

type call struct {
	kind   string
	id     string
	fields map[string]string
}

type fakeUpdater struct {
	calls      []call
	userErrors []string
	err        error
}

func (f *fakeUpdater) record(kind, id string, fields map[string]string) ([]string, error) {
	f.calls = append(f.calls, call{kind: kind, id: id, fields: fields})
	return f.userErrors, f.err
}

func (f *fakeUpdater) UpdateProduct(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record("product", id, fields)
}

func (f *fakeUpdater) UpdateCollection(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record("collection", id, fields)
}

func (f *fakeUpdater) UpdatePage(ctx context.Context, id string, fields map[string]string) ([]string, error) {
	return f.record("page", id, fields)
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

func seed(t *testing.T, db *gorm.DB, rt, id, field, lang, market, value, status string) {
	require.NoError(t, db.Create(&models.Translation{
		Shop: testShop, ResourceType: rt, ResourceID: id, Field: field, LanguageCode: lang,
		MarketID: market, TranslatedValue: value, Status: status,
	}).Error)
}

func TestSyncProduct(t *testing.T) {
	db := setupTestDB(t)
	id := "gid://shopify/Product/1"
	seed(t, db, "product", id, "title", "fr", "", "Chemise", "published")
	seed(t, db, "product", id, "description", "fr", "", "<p>Bleue</p>", "published")
	seed(t, db, "product", id, "handle", "fr", "", "chemise", "published")
	seed(t, db, "product", id, "title", "de", "", "Hemd", "draft")

	up := &fakeUpdater{}
	res, err := NewSyncer(db).SyncTranslation(context.Background(), up, testShop, "product", id, "fr", "")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Message: "Product translation synced"}, res)
	require.Len(t, up.calls, 1)
	assert.Equal(t, map[string]string{"title": "Chemise", "descriptionHtml": "<p>Bleue</p>"}, up.calls[0].fields)
	assert.Equal(t, id, up.calls[0].id)
}

func TestSyncPageAndCollection(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db, "page", "gid://shopify/Page/1", "body", "fr", "", "<p>Bonjour</p>", "published")
	seed(t, db, "collection", "gid://shopify/Collection/1", "title", "fr", "", "Été", "published")

	up := &fakeUpdater{}
	s := NewSyncer(db)

	res, err := s.SyncTranslation(context.Background(), up, testShop, "page", "gid://shopify/Page/1", "fr", "")
	require.NoError(t, err)
	assert.Equal(t, "Page translation synced", res.Message)

	res, err = s.SyncTranslation(context.Background(), up, testShop, "collection", "gid://shopify/Collection/1", "fr", "")
	require.NoError(t, err)
	assert.Equal(t, "Collection translation synced", res.Message)

	require.Len(t, up.calls, 2)
	assert.Equal(t, map[string]string{"body": "<p>Bonjour</p>"}, up.calls[0].fields)
	assert.Equal(t, "collection", up.calls[1].kind)
}

func TestSyncFailures(t *testing.T) {
	db := setupTestDB(t)
	id := "gid://shopify/Product/1"
	seed(t, db, "product", id, "handle", "fr", "", "chemise", "published")
	seed(t, db, "product", id, "title", "de", "", "Hemd", "published")
	seed(t, db, "product", id, "title", "it", "", "Camicia", "draft")
	seed(t, db, "blog", "gid://shopify/Blog/1", "title", "fr", "", "Journal", "published")
	s := NewSyncer(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		updater *fakeUpdater
		rt      string
		id      string
		lang    string
		want    string
	}{
		{"only drafts", &fakeUpdater{}, "product", id, "it", MsgNoPublished},
		{"no rows", &fakeUpdater{}, "product", id, "es", MsgNoPublished},
		{"unmapped field", &fakeUpdater{}, "product", id, "fr", MsgNoFields},
		{"unsupported type", &fakeUpdater{}, "blog", "gid://shopify/Blog/1", "fr", MsgUnsupportedType},
		{"user errors", &fakeUpdater{userErrors: []string{"Title is too long", "Handle taken"}}, "product", id, "de", "Title is too long, Handle taken"},
		{"transport error", &fakeUpdater{err: errors.New("graphql: throttled")}, "product", id, "de", "graphql: throttled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.SyncTranslation(ctx, tt.updater, testShop, tt.rt, tt.id, tt.lang, "")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
		})
	}
}

func TestSyncMarketScoped(t *testing.T) {
	db := setupTestDB(t)
	id := "gid://shopify/Product/1"
	seed(t, db, "product", id, "title", "fr", "", "Chemise", "published")
	seed(t, db, "product", id, "title", "fr", "gid://shopify/Market/1", "Chemise (CA)", "published")

	up := &fakeUpdater{}
	res, err := NewSyncer(db).SyncTranslation(context.Background(), up, testShop, "product", id, "fr", "gid://shopify/Market/1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Chemise (CA)", up.calls[0].fields["title"])
}
