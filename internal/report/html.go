package report

import (
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
)

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{ .Title }}</title>
<style>
  body { font: 15px/1.5 system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2933; }
  h1 { margin-bottom: 0; }
  .meta { color: #7b8794; margin-top: .25rem; }
  .verdict { display: inline-block; padding: .4rem .9rem; border-radius: 4px; font-weight: 600; color: #fff; }
  .verdict.ok { background: #2f9e44; }
  .verdict.fail { background: #c92a2a; }
  .counts { display: grid; grid-template-columns: repeat(4, 1fr); gap: .75rem; margin: 1.5rem 0; }
  .counts div { border: 1px solid #e4e7eb; border-radius: 4px; padding: .75rem; text-align: center; }
  .counts b { display: block; font-size: 1.6rem; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 1.5rem; }
  th, td { text-align: left; padding: .5rem; border-bottom: 1px solid #e4e7eb; vertical-align: top; }
  th { background: #f5f7fa; }
  .lvl { font-size: .75rem; text-transform: uppercase; font-weight: 700; }
  .lvl-critical { color: #862e9c; }
  .lvl-high { color: #c92a2a; }
  .lvl-medium { color: #e67700; }
  .lvl-info { color: #1971c2; }
  .empty { color: #7b8794; font-style: italic; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta">{{ .GeneratedAt }}</p>
{{ if .Passed }}<span class="verdict ok">Passed, score {{ .Score }}/100</span>{{ else }}<span class="verdict fail">Failed, score {{ .Score }}/100</span>{{ end }}

<section class="counts">
  <div><b class="lvl-critical">{{ index .Stats "critical" }}</b>Critical</div>
  <div><b class="lvl-high">{{ index .Stats "high" }}</b>High</div>
  <div><b class="lvl-medium">{{ index .Stats "medium" }}</b>Medium</div>
  <div><b class="lvl-info">{{ index .Stats "info" }}</b>Recommendations</div>
</section>

{{ if .Findings }}
<table>
  <thead><tr><th>Level</th><th>Service</th><th>Finding</th><th>Remediation</th></tr></thead>
  <tbody>
  {{ range .Findings }}
    <tr>
      <td class="lvl lvl-{{ .Level }}">{{ .Level }}</td>
      <td>{{ .Source }}</td>
      <td>{{ .Description }}</td>
      <td>{{ .Advice }}</td>
    </tr>
  {{ end }}
  </tbody>
</table>
{{ else }}
<p class="empty">No security findings.</p>
{{ end }}

{{ with .Compliant }}<p><b>Compliant services:</b> {{ join . ", " }}</p>{{ end }}
</body>
</html>
`

var htmlReport = template.Must(template.New("report").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(reportTemplate))

type htmlData struct {
	Title       string
	GeneratedAt string
	Passed      bool
	Score       int
	Stats       map[string]int
	Findings    []core.Finding
	Compliant   []string
}

// WriteHTML renders a self-contained HTML page for r.
func WriteHTML(w io.Writer, title string, r *security.Review) error {
	findings := r.Findings()
	stats := map[string]int{"critical": 0, "high": 0, "medium": 0, "info": 0}
	for _, f := range findings {
		l := strings.ToLower(f.Level)
		if _, ok := stats[l]; ok {
			stats[l]++
		} else {
			stats["info"]++
		}
	}
	data := htmlData{
		Title:       title,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Passed:      r.Gate(),
		Stats:       stats,
		Findings:    findings,
	}
	if r != nil {
		data.Score = r.Score
		data.Compliant = r.CompliantServices
	}
	return htmlReport.Execute(w, data)
}

func GenerateHTML(r *security.Review, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteHTML(f, "scaffold-ai Security Review", r)
}
