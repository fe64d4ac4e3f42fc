package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/jordigilh/reliefnet/pkg/geo"
	sharedErrors "github.com/jordigilh/reliefnet/pkg/shared/errors"
	sharedhttp "github.com/jordigilh/reliefnet/pkg/shared/http"
)

// HTTPExternalRouter implements ExternalRouter against the collaborator
// routing service's REST protocol (spec §6): POST
// {coordinates, options.avoid_polygons}, expect a GeoJSON FeatureCollection
// whose first feature carries the route geometry and a distance/duration
// summary. Any non-200 status or malformed body is reported as an error so
// the caller falls back.
type HTTPExternalRouter struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPExternalRouter builds a client authenticated with a static bearer
// token, layered over pkg/shared/http's router-tuned transport.
func NewHTTPExternalRouter(baseURL, apiKey string, timeout time.Duration) *HTTPExternalRouter {
	base := sharedhttp.NewClient(sharedhttp.RouterClientConfig(timeout))
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
	return &HTTPExternalRouter{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   base.Timeout,
			Transport: &oauth2.Transport{Source: tokenSource, Base: base.Transport},
		},
	}
}

type routeRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Options     *routeOptions `json:"options,omitempty"`
}

type routeOptions struct {
	AvoidPolygons *AvoidArea `json:"avoid_polygons,omitempty"`
}

type routeFeatureCollection struct {
	Features []routeFeature `json:"features"`
}

type routeFeature struct {
	Geometry   routeGeometry   `json:"geometry"`
	Properties routeProperties `json:"properties"`
}

type routeGeometry struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type routeProperties struct {
	Summary routeSummary `json:"summary"`
}

type routeSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// Route implements ExternalRouter.
func (c *HTTPExternalRouter) Route(ctx context.Context, origin, destination geo.Location, avoid *AvoidArea) (ExternalRouteResult, error) {
	body := routeRequest{
		Coordinates: [][2]float64{{origin.Lon, origin.Lat}, {destination.Lon, destination.Lat}},
	}
	if avoid != nil {
		body.Options = &routeOptions{AvoidPolygons: avoid}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return ExternalRouteResult{}, sharedErrors.FailedTo("encode router request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return ExternalRouteResult{}, sharedErrors.FailedTo("build router request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return ExternalRouteResult{}, sharedErrors.NetworkError("route", c.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ExternalRouteResult{}, fmt.Errorf("external router returned status %d", resp.StatusCode)
	}

	var fc routeFeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return ExternalRouteResult{}, sharedErrors.ParseError("router response", "geojson", err)
	}
	if len(fc.Features) == 0 {
		return ExternalRouteResult{}, fmt.Errorf("external router returned no features")
	}

	first := fc.Features[0]
	geometry := make([]geo.Location, len(first.Geometry.Coordinates))
	for i, coord := range first.Geometry.Coordinates {
		geometry[i] = geo.Location{Lon: coord[0], Lat: coord[1]}
	}

	return ExternalRouteResult{
		Geometry:    geometry,
		DistanceM:   first.Properties.Summary.Distance,
		DurationSec: first.Properties.Summary.Duration,
	}, nil
}
