package server

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"dropzone/internal/session"
)

// The listing page is the one rendering surface: it consumes items and
// their remaining TTL and nothing else, so a different front end can
// replace it without touching the storage core.

var pageTmpl = template.Must(template.New("session").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>dropzone</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
table { width: 100%; border-collapse: collapse; }
td, th { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #ddd; }
.kind { color: #666; font-size: .85em; }
</style>
</head>
<body>
<h1>dropzone</h1>
<p>Session <code>{{.Session}}</code>. Files expire {{.TTL}} after upload.</p>
<form method="post" action="/s/{{.Session}}/files" enctype="multipart/form-data">
<input type="file" name="file" multiple>
<button type="submit">Upload</button>
</form>
{{if .Rows}}
<table>
<tr><th>Name</th><th>Kind</th><th>Size</th><th>Expires in</th></tr>
{{range .Rows}}
<tr>
<td><a href="/s/{{$.Session}}/f/{{.ID}}">{{.Name}}</a></td>
<td class="kind">{{.Kind}}</td>
<td>{{.Size}}</td>
<td>{{.Remaining}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No files to show.</p>
{{end}}
</body>
</html>
`))

type pageRow struct {
	ID        string
	Name      string
	Kind      session.MediaKind
	Size      string
	Remaining time.Duration
}

type pageData struct {
	Session session.ID
	TTL     time.Duration
	Rows    []pageRow
}

func (s *Server) renderSessionPage(w http.ResponseWriter, sid session.ID, items []session.Item) {
	now := time.Now()
	data := pageData{Session: sid, TTL: s.cfg.TTL}
	for _, it := range items {
		remaining := s.cfg.TTL - now.Sub(it.CreatedAt)
		if remaining < 0 {
			remaining = 0
		}
		data.Rows = append(data.Rows, pageRow{
			ID:        it.ID,
			Name:      it.DisplayName,
			Kind:      it.MediaKind,
			Size:      humanSize(it.SizeBytes),
			Remaining: remaining.Truncate(time.Second),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render session page")
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
