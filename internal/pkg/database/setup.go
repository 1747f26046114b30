package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared database handle set up by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Dialector builds the GORM dialector selected by DB_DIALECT (mysql, postgres
// or sqlite). MySQL is the default.
func Dialector() (gorm.Dialector, string, error) {
	dialect := strings.ToLower(strings.TrimSpace(env.GetEnv("DB_DIALECT", "mysql")))
	switch dialect {
	case "postgres":
		dsn := env.GetEnv("POSTGRES_DSN", "")
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				env.GetEnv("DB_HOST", "127.0.0.1"),
				env.GetEnv("DB_USER", ""),
				env.GetEnv("DB_PASSWORD", ""),
				env.GetEnv("DB_NAME", ""),
				env.GetEnv("DB_PORT", "5432"),
			)
		}
		return postgres.Open(dsn), dialect, nil
	case "sqlite":
		return sqlite.Open(env.GetEnv("SQLITE_PATH", "lingofox.db")), dialect, nil
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_PORT", "3306"),
			env.GetEnv("DB_NAME", ""),
		)
		return mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), "mysql", nil
	default:
		return nil, dialect, fmt.Errorf("unsupported DB_DIALECT %q", dialect)
	}
}

func SetupDatabase() {
	dialector, dialect, err := Dialector()
	if err != nil {
		panic(err)
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(dialector, &gorm.Config{})
		if err == nil {
			if err = Migrate(DB); err != nil {
				panic(fmt.Errorf("auto migrate failed: %w", err))
			}
			log.Infof("[Database] Connected (dialect=%s)", dialect)
			return
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// Migrate creates or updates every application table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.AllModels...)
}
