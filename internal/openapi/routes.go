package openapi

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/strefethen/spotify-hub-go/internal/api"
	"github.com/strefethen/spotify-hub-go/internal/apperrors"
)

var defaultSpecPaths = []string{
	"assets/openapi/spotify-hub.v1.yaml",
	"../assets/openapi/spotify-hub.v1.yaml",
}

// RegisterRoutes wires OpenAPI document routes to the router.
func RegisterRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/openapi", api.Handler(serveOpenAPIYAML()))
	router.Method(http.MethodGet, "/v1/openapi.json", api.Handler(serveOpenAPIJSON()))
}

// findSpecPath locates the OpenAPI document, preferring an explicit override.
func findSpecPath() string {
	if envPath := os.Getenv("OPENAPI_SPEC_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range defaultSpecPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}

	return ""
}

func readSpec() ([]byte, error) {
	specPath := findSpecPath()
	if specPath == "" {
		return nil, apperrors.NewInternalError("OpenAPI document not found")
	}
	spec, err := os.ReadFile(specPath)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to read OpenAPI document")
	}
	return spec, nil
}

func serveOpenAPIYAML() api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		spec, err := readSpec()
		if err != nil {
			return err
		}

		w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
		return nil
	}
}

func serveOpenAPIJSON() api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		spec, err := readSpec()
		if err != nil {
			return err
		}

		var parsed any
		if err := yaml.Unmarshal(spec, &parsed); err != nil {
			return apperrors.NewInternalError("Failed to parse OpenAPI document")
		}

		return api.WriteJSON(w, http.StatusOK, parsed)
	}
}
