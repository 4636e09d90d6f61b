package handlers

import (
	"html/template"
	"net/http"

	"battery-platform/pkg/logging"
)

const (
	apiTitle   = "Battery Platform API"
	apiVersion = "1.0.0"

	openAPIPath      = "/api/docs/openapi.json"
	swaggerUIVersion = "5.10.0"
)

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@{{.UIVersion}}/swagger-ui.css">
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; padding:0; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@{{.UIVersion}}/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@{{.UIVersion}}/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: {{.SpecURL}},
                dom_id: '#swagger-ui',
                deepLinking: true,
                tryItOutEnabled: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                plugins: [SwaggerUIBundle.plugins.DownloadUrl],
                layout: "StandaloneLayout"
            });
        };
    </script>
</body>
</html>`))

type swaggerPageData struct {
	Title     string
	SpecURL   string
	UIVersion string
}

// SwaggerUI serves the interactive API documentation backed by the OpenAPI document
func (h *BatteryHandler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := swaggerPage.Execute(w, swaggerPageData{
		Title:     apiTitle,
		SpecURL:   openAPIPath,
		UIVersion: swaggerUIVersion,
	})
	if err != nil {
		h.logger.Error(r.Context(), "[DOCS_RENDER_ERROR] Failed to render API docs", logging.Fields{
			"endpoint": "/api/docs",
		}, err)
	}
}
