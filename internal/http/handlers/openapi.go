package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed openapi.json
var openAPISpec []byte

// openAPIInfo is the part of the embedded document the docs page needs.
var openAPIInfo = mustOpenAPIInfo(openAPISpec)

type apiInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

func mustOpenAPIInfo(doc []byte) apiInfo {
	var parsed struct {
		Info apiInfo `json:"info"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		panic("openapi.json: " + err.Error())
	}
	return parsed.Info
}

var redocPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} {{.Version}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body {
        margin: 0;
        padding: 0;
      }
      redoc {
        display: block;
        height: 100vh;
      }
    </style>
  </head>
  <body>
    <redoc spec-url="/v1/openapi.json"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

// OpenAPIJSON serves the embedded document with the requesting host as its
// server, so "try it" calls reach this instance.
func (a *App) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.Unmarshal(openAPISpec, &doc); err != nil {
		a.Logger.Error().Err(err).Msg("openapi: embedded document unreadable")
		http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
		return
	}
	doc["servers"] = []map[string]string{{"url": requestOrigin(r)}}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := redocPage.Execute(&buf, openAPIInfo); err != nil {
		http.Error(w, "docs unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
