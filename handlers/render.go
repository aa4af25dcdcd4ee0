package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"

	"github.com/SkillsGen/trainers/schedule"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template receives.
type page struct {
	Title    string
	CSRF     template.HTML
	Message  string
	Next     string
	Schedule []schedule.EnrichedBooking
	PCQ      schedule.BookingPCQs
}

func (h *Handler) pageData(c echo.Context, p page) page {
	p.CSRF = csrf.TemplateField(c.Request())
	return p
}

// Renderer executes the embedded HTML templates for echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates. Dates are shown in loc.
func NewRenderer(loc *time.Location) *Renderer {
	md := goldmark.New()
	funcs := template.FuncMap{
		// Raw HTML in notes is dropped by goldmark's default renderer.
		"markdown": func(s string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(s), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(s))
			}
			return template.HTML(buf.String())
		},
		"date": func(t time.Time) string {
			return t.In(loc).Format("Mon 02 Jan 2006 15:04")
		},
		"cell": func(v any) string {
			switch v := v.(type) {
			case nil:
				return ""
			case time.Time:
				return v.In(loc).Format("02 Jan 2006 15:04")
			}
			return fmt.Sprint(v)
		},
	}
	return &Renderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
