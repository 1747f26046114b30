package views

import (
	"embed"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed *.html layouts/*.html
var FS embed.FS

// NewEngine returns the template engine over the embedded views.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(FS), ".html")
	engine.AddFunc("capLabel", capLabel)
	engine.AddFunc("fmtTime", fmtTime)
	engine.AddFunc("pathEscape", url.PathEscape)
	engine.AddFunc("price", func(v float64) string { return fmt.Sprintf("%.2f", v) })
	return engine
}

func capLabel(v int) string {
	if v < 0 {
		return "Unlimited"
	}
	return fmt.Sprintf("%d", v)
}

func fmtTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
