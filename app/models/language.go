package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Language struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Shop      string    `gorm:"type:varchar(191);not null;index:ux_languages_shop_code,unique,priority:1" json:"shop" validate:"required"`
	Code      string    `gorm:"type:varchar(16);not null;index:ux_languages_shop_code,unique,priority:2" json:"code" validate:"required,min=2,max=16"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	IsDefault bool      `gorm:"default:false;index" json:"is_default"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *Language) Validate() error {
	v := validator.New()
	return v.Struct(l)
}
