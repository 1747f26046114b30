package models

// AllModels lists every table managed by AutoMigrate.
var AllModels = []interface{}{
	&ShopSession{},
	&Subscription{},
	&UsageLimit{},
	&UsageTracking{},
	&Language{},
	&Translation{},
	&Market{},
	&WebhookEvent{},
}
