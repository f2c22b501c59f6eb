package httpapi

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed assets/*
var embeddedAssets embed.FS

var (
	assetsFS     fs.FS
	pageTemplate *template.Template
)

func init() {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		assetsFS = embeddedAssets
	} else {
		assetsFS = sub
	}
	pageTemplate = template.Must(template.New("index.html").ParseFS(assetsFS, "index.html"))
}
