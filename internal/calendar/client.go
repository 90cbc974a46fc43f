// Package calendar wraps the Google Calendar API behind the
// domain.EventProvider interface.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gys/internal/models"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrSyncTokenInvalid is returned when the provider rejects a sync token
// as expired. The caller schedules a full resync instead of retrying.
var ErrSyncTokenInvalid = errors.New("calendar: sync token invalid")

const maxResultsPerPage = 2500

type Client struct {
	svc        *gcal.Service
	calendarID string
	location   *time.Location
}

// NewClient builds a service-account backed Calendar client. tzName is
// the presentation timezone for event start dates (the studio runs on
// Europe/Istanbul).
func NewClient(ctx context.Context, credentialsFile, calendarID, tzName string) (*Client, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", tzName, err)
	}

	return &Client{svc: svc, calendarID: calendarID, location: loc}, nil
}

// ListWindow fetches every event in [from, to), following page tokens
// until the provider reports exhaustion, then bootstraps a sync token so
// the next pass can take the delta path. Time-bounded listings cannot
// carry a sync token themselves, so the token comes from a second,
// fields-limited listing.
func (c *Client) ListWindow(ctx context.Context, from, to time.Time) ([]*models.CalendarEvent, string, error) {
	var out []*models.CalendarEvent

	call := c.svc.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(maxResultsPerPage)

	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, "", fmt.Errorf("list events: %w", err)
		}
		for _, ev := range resp.Items {
			out = append(out, c.convert(ev))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	token, err := c.bootstrapSyncToken(ctx)
	if err != nil {
		return nil, "", err
	}
	return out, token, nil
}

// bootstrapSyncToken pages a listing compatible with sync tokens until
// the provider issues one. Items are excluded from the response, only
// the paging and sync tokens travel.
func (c *Client) bootstrapSyncToken(ctx context.Context) (string, error) {
	pageToken := ""
	for {
		call := c.svc.Events.List(c.calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			MaxResults(maxResultsPerPage).
			Fields("nextPageToken", "nextSyncToken")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("bootstrap sync token: %w", err)
		}
		if resp.NextPageToken == "" {
			return resp.NextSyncToken, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Changes returns every event changed since syncToken, cancelled ones
// included, plus the next token to persist. A 410 from the provider maps
// to ErrSyncTokenInvalid.
func (c *Client) Changes(ctx context.Context, syncToken string) ([]*models.CalendarEvent, string, error) {
	var out []*models.CalendarEvent

	call := c.svc.Events.List(c.calendarID).
		ShowDeleted(true).
		SingleEvents(true).
		SyncToken(syncToken).
		MaxResults(maxResultsPerPage)

	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			if isGone(err) {
				return nil, "", ErrSyncTokenInvalid
			}
			return nil, "", fmt.Errorf("list changes: %w", err)
		}
		for _, ev := range resp.Items {
			out = append(out, c.convert(ev))
		}
		if resp.NextPageToken == "" {
			return out, resp.NextSyncToken, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Watch opens a push channel pointing at address. The caller persists
// the returned record for notification validation.
func (c *Client) Watch(ctx context.Context, channelID, token, address string, ttl time.Duration) (*models.WebhookChannel, error) {
	req := &gcal.Channel{
		Id:         channelID,
		Type:       "web_hook",
		Address:    address,
		Token:      token,
		Expiration: time.Now().Add(ttl).UnixMilli(),
	}

	resp, err := c.svc.Events.Watch(c.calendarID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("watch calendar: %w", err)
	}

	return &models.WebhookChannel{
		ChannelID:  resp.Id,
		ResourceID: resp.ResourceId,
		Token:      token,
		Expiration: time.UnixMilli(resp.Expiration),
		CreatedAt:  time.Now(),
	}, nil
}

func (c *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := c.svc.Channels.Stop(&gcal.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("stop channel %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) convert(ev *gcal.Event) *models.CalendarEvent {
	start, ok := c.resolveStart(ev)
	return &models.CalendarEvent{
		ID:          ev.Id,
		Status:      ev.Status,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       start,
		HasStart:    ok,
	}
}

// resolveStart handles both timed and all-day events. All-day events get
// midnight in the presentation timezone.
func (c *Client) resolveStart(ev *gcal.Event) (time.Time, bool) {
	if ev.Start == nil {
		return time.Time{}, false
	}
	if ev.Start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(c.location), true
	}
	if ev.Start.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", ev.Start.Date, c.location)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusGone
}
