// Package vehicles reads GTFS-RT vehicle positions and service alerts and
// turns them into observations for the resolver.
package vehicles

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/transit-strips/poller/internal/geo"
	"github.com/transit-strips/poller/internal/resolver"
)

// Client fetches GTFS-RT feeds over HTTP.
type Client struct {
	opts   Options
	trips  TripIndex
	client *http.Client
	now    func() time.Time
}

// NewClient creates a feed client. trips may be nil.
func NewClient(opts Options, trips TripIndex) *Client {
	return &Client{
		opts:  opts,
		trips: trips,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// FetchObservations returns one observation per vehicle that has a position,
// a route, a direction and a stop.
func (c *Client) FetchObservations(ctx context.Context) ([]resolver.Observation, error) {
	feed, err := c.fetchFeed(ctx, c.opts.VehiclePositionsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle positions: %w", err)
	}

	observations, skipped := observationsFromFeed(feed, c.trips)
	if skipped.Total() > 0 {
		log.Printf("Feed: skipped %d vehicles (no position %d, no route %d, no direction %d, no stop %d)",
			skipped.Total(), skipped.NoPosition, skipped.NoRoute, skipped.NoDirection, skipped.NoStop)
	}
	return observations, nil
}

// FetchDisabledStops returns stop ids currently out of service according to
// the alerts feed. Without an alerts URL it returns nil.
func (c *Client) FetchDisabledStops(ctx context.Context) (map[string]bool, error) {
	if c.opts.AlertsURL == "" {
		return nil, nil
	}
	feed, err := c.fetchFeed(ctx, c.opts.AlertsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	return disabledStopsFromFeed(feed, c.now()), nil
}

func observationsFromFeed(feed *gtfs.FeedMessage, trips TripIndex) ([]resolver.Observation, Skipped) {
	var skipped Skipped
	observations := make([]resolver.Observation, 0, len(feed.Entity))

	for _, entity := range feed.Entity {
		vehicle := entity.Vehicle
		if vehicle == nil {
			continue
		}

		obs := resolver.Observation{VehicleID: "entity:" + entity.GetId()}
		if vehicle.Vehicle != nil && vehicle.Vehicle.Id != nil {
			obs.VehicleID = *vehicle.Vehicle.Id
		}

		if vehicle.Position == nil {
			skipped.NoPosition++
			continue
		}
		obs.Position = geo.Coordinate{
			Lat: float64(vehicle.Position.GetLatitude()),
			Lon: float64(vehicle.Position.GetLongitude()),
		}

		hasDirection := false
		if trip := vehicle.Trip; trip != nil {
			obs.RouteID = trip.GetRouteId()
			if trip.DirectionId != nil {
				obs.Direction = int(*trip.DirectionId)
				hasDirection = true
			}
			if trips != nil && trip.TripId != nil && (obs.RouteID == "" || !hasDirection) {
				if route, dir, ok := trips.Trip(*trip.TripId); ok {
					if obs.RouteID == "" {
						obs.RouteID = route
					}
					if !hasDirection {
						obs.Direction = dir
						hasDirection = true
					}
				}
			}
		}

		switch {
		case obs.RouteID == "":
			skipped.NoRoute++
			continue
		case !hasDirection:
			skipped.NoDirection++
			continue
		}

		obs.TargetStop = vehicle.GetStopId()
		if obs.TargetStop == "" {
			skipped.NoStop++
			continue
		}

		observations = append(observations, obs)
	}

	return observations, skipped
}

func disabledStopsFromFeed(feed *gtfs.FeedMessage, now time.Time) map[string]bool {
	disabled := make(map[string]bool)
	for _, entity := range feed.Entity {
		alert := entity.Alert
		if alert == nil || !disablingEffects[alert.GetEffect()] || !activeAt(alert, now) {
			continue
		}
		for _, ie := range alert.InformedEntity {
			if ie.StopId != nil && *ie.StopId != "" {
				disabled[*ie.StopId] = true
			}
		}
	}
	return disabled
}

// activeAt reports whether any active period covers now. Alerts without
// periods are always active.
func activeAt(alert *gtfs.Alert, now time.Time) bool {
	if len(alert.ActivePeriod) == 0 {
		return true
	}
	ts := uint64(now.Unix())
	for _, period := range alert.ActivePeriod {
		if period.Start != nil && ts < *period.Start {
			continue
		}
		if period.End != nil && *period.End != 0 && ts > *period.End {
			continue
		}
		return true
	}
	return false
}

// fetchFeed fetches a GTFS-RT feed from the given URL
func (c *Client) fetchFeed(ctx context.Context, rawURL string) (*gtfs.FeedMessage, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("no feed url configured")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	if c.opts.APIKey != "" {
		q := u.Query()
		q.Set("key", c.opts.APIKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}
