package v0

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// HealthBody is the response body for the health endpoint.
type HealthBody struct {
	Status string `json:"status" doc:"Service status" example:"ok"`
}

// PingBody is the response body for the ping endpoint.
type PingBody struct {
	Pong bool `json:"pong" doc:"Always true"`
}

// VersionBody carries build information.
type VersionBody struct {
	Version   string `json:"version" doc:"Release version"`
	GitCommit string `json:"gitCommit,omitempty" doc:"Git commit the binary was built from"`
	BuildTime string `json:"buildTime,omitempty" doc:"Build timestamp"`
}

// RegisterHealthEndpoint registers the health check endpoint.
func RegisterHealthEndpoint(api huma.API, pathPrefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/health",
		Summary:     "Health check",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*Response[HealthBody], error) {
		return &Response[HealthBody]{Body: HealthBody{Status: "ok"}}, nil
	})
}

// RegisterPingEndpoint registers the ping endpoint.
func RegisterPingEndpoint(api huma.API, pathPrefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ping" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/ping",
		Summary:     "Ping",
		Tags:        []string{"ping"},
	}, func(ctx context.Context, input *struct{}) (*Response[PingBody], error) {
		return &Response[PingBody]{Body: PingBody{Pong: true}}, nil
	})
}

// RegisterVersionEndpoint registers the version endpoint.
func RegisterVersionEndpoint(api huma.API, pathPrefix string, versionInfo *VersionBody) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/version",
		Summary:     "Version information",
		Tags:        []string{"version"},
	}, func(ctx context.Context, input *struct{}) (*Response[VersionBody], error) {
		return &Response[VersionBody]{Body: *versionInfo}, nil
	})
}
