package codegen

import (
	"context"
	"embed"
	"text/template"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

//go:embed templates/web/*.tmpl
var webTemplates embed.FS

var web = template.Must(template.New("web").Delims("[[", "]]").ParseFS(webTemplates, "templates/web/*.tmpl"))

type webData struct {
	Title       string
	HasAuth     bool
	HasAPI      bool
	HasDatabase bool
	HasStorage  bool
	AuthName    string
	APIName     string
	TableName   string
	BucketName  string
}

// webFile is one scaffold file and the condition that emits it.
type webFile struct {
	path     string
	template string
	when     func(webData) bool
}

var webFiles = []webFile{
	{"app/layout.tsx", "layout.tsx.tmpl", func(webData) bool { return true }},
	{"app/page.tsx", "page.tsx.tmpl", func(webData) bool { return true }},
	{"components/AuthProvider.tsx", "AuthProvider.tsx.tmpl", func(d webData) bool { return d.HasAuth }},
	{"lib/api.ts", "api.ts.tmpl", func(d webData) bool { return d.HasAPI }},
	{"components/DataTable.tsx", "DataTable.tsx.tmpl", func(d webData) bool { return d.HasDatabase }},
	{"components/FileUpload.tsx", "FileUpload.tsx.tmpl", func(d webData) bool { return d.HasStorage }},
}

// Frontend scaffolds a Next.js app for graphs that contain a frontend node.
// Without one it renders nothing.
type Frontend struct{}

func (Frontend) Name() string { return DialectFrontend }

func (Frontend) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	if g == nil {
		return nil, nil
	}

	var data webData
	hasFrontend := false
	first := func(dst *string, n graph.Node, fallback string) {
		if *dst != "" {
			return
		}
		*dst = n.Label
		if *dst == "" {
			*dst = fallback
		}
	}
	for _, n := range g.Nodes {
		switch graph.ResolveType(n) {
		case graph.TypeFrontend:
			hasFrontend = true
			first(&data.Title, n, "Scaffold AI App")
		case graph.TypeAuth:
			data.HasAuth = true
			first(&data.AuthName, n, "User Pool")
		case graph.TypeAPI:
			data.HasAPI = true
			first(&data.APIName, n, "API")
		case graph.TypeDatabase:
			data.HasDatabase = true
			first(&data.TableName, n, "Data Items")
		case graph.TypeStorage:
			data.HasStorage = true
			first(&data.BucketName, n, "Uploads")
		}
	}
	if !hasFrontend {
		return nil, nil
	}

	var files []File
	for _, f := range webFiles {
		if !f.when(data) {
			continue
		}
		content, err := execute(web.Lookup(f.template), data)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: webDir + "/" + f.path, Content: content})
	}
	return files, nil
}
