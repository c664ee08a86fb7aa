package monitoring

import (
	"context"

	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const searchNotificationDestinationsQuery = `
query($accountId: Int!, $name: String!) {
	actor {
		account(id: $accountId) {
			aiNotifications {
				destinations(filters: { name: $name }) {
					entities {
						id
						name
					}
				}
			}
		}
	}
}`

const createNotificationDestinationMutation = `
mutation($accountId: Int!, $name: String!, $recipient: String!) {
	aiNotificationsCreateDestination(
		accountId: $accountId
		destination: {
			name: $name
			type: EMAIL
			properties: { key: "email", value: $recipient }
		}
	) {
		destination {
			id
			name
		}
		error {
			__typename
		}
	}
}`

const searchNotificationChannelsQuery = `
query($accountId: Int!, $name: String!) {
	actor {
		account(id: $accountId) {
			aiNotifications {
				channels(filters: { name: $name }) {
					entities {
						id
						name
					}
				}
			}
		}
	}
}`

const createNotificationChannelMutation = `
mutation($accountId: Int!, $name: String!, $destinationId: ID!) {
	aiNotificationsCreateChannel(
		accountId: $accountId
		channel: {
			type: EMAIL
			name: $name
			destinationId: $destinationId
			product: IINT
			properties: []
		}
	) {
		channel {
			id
			name
		}
		error {
			__typename
		}
	}
}`

type destinationsSearchResponse struct {
	Actor struct {
		Account struct {
			AiNotifications struct {
				Destinations struct {
					Entities []Resource `json:"entities"`
				} `json:"destinations"`
			} `json:"aiNotifications"`
		} `json:"account"`
	} `json:"actor"`
}

type channelsSearchResponse struct {
	Actor struct {
		Account struct {
			AiNotifications struct {
				Channels struct {
					Entities []Resource `json:"entities"`
				} `json:"channels"`
			} `json:"aiNotifications"`
		} `json:"account"`
	} `json:"actor"`
}

// notificationError is the embedded error shape of aiNotifications
// mutations; only its type name is requested.
type notificationError struct {
	Typename string `json:"__typename"`
}

type destinationCreateResponse struct {
	AiNotificationsCreateDestination struct {
		Destination *Resource          `json:"destination"`
		Error       *notificationError `json:"error"`
	} `json:"aiNotificationsCreateDestination"`
}

type channelCreateResponse struct {
	AiNotificationsCreateChannel struct {
		Channel *Resource          `json:"channel"`
		Error   *notificationError `json:"error"`
	} `json:"aiNotificationsCreateChannel"`
}

// NotificationDestination finds an email notification destination by
// exact name; no match means (nil, nil).
func (p *Provisioner) NotificationDestination(ctx context.Context, name string) (*Resource, error) {
	resp := destinationsSearchResponse{}
	err := p.client.Query(ctx, searchNotificationDestinationsQuery, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return firstExactMatch(resp.Actor.Account.AiNotifications.Destinations.Entities, name), nil
}

// CreateNotificationDestination creates an email destination delivering
// to recipient.
func (p *Provisioner) CreateNotificationDestination(ctx context.Context, name, recipient string) (*Resource, error) {
	resp := destinationCreateResponse{}
	err := p.client.Query(ctx, createNotificationDestinationMutation, map[string]interface{}{
		"name":      name,
		"recipient": recipient,
	}, &resp)
	if err != nil {
		return nil, err
	}
	result := resp.AiNotificationsCreateDestination
	if result.Error != nil {
		return nil, nerdgraph.NewAPIError("unexpected NerdGraph error: %+v", *result.Error)
	}
	if result.Destination == nil {
		return nil, nerdgraph.NewAPIError("aiNotificationsCreateDestination returned no destination")
	}
	return result.Destination, nil
}

// NotificationChannel finds an email notification channel by exact
// name; no match means (nil, nil).
func (p *Provisioner) NotificationChannel(ctx context.Context, name string) (*Resource, error) {
	resp := channelsSearchResponse{}
	err := p.client.Query(ctx, searchNotificationChannelsQuery, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return firstExactMatch(resp.Actor.Account.AiNotifications.Channels.Entities, name), nil
}

// CreateNotificationChannel creates an email channel for incident
// intelligence that sends through the given destination.
func (p *Provisioner) CreateNotificationChannel(ctx context.Context, name, destinationID string) (*Resource, error) {
	resp := channelCreateResponse{}
	err := p.client.Query(ctx, createNotificationChannelMutation, map[string]interface{}{
		"name":          name,
		"destinationId": destinationID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	result := resp.AiNotificationsCreateChannel
	if result.Error != nil {
		return nil, nerdgraph.NewAPIError("unexpected NerdGraph error: %+v", *result.Error)
	}
	if result.Channel == nil {
		return nil, nerdgraph.NewAPIError("aiNotificationsCreateChannel returned no channel")
	}
	return result.Channel, nil
}

func (p *Provisioner) ensureNotificationDestination(ctx context.Context, name, recipient string) (*Resource, error) {
	return p.ensure(ctx, "notification destination",
		func(ctx context.Context) (*Resource, error) {
			return p.NotificationDestination(ctx, name)
		},
		func(ctx context.Context) (*Resource, error) {
			return p.CreateNotificationDestination(ctx, name, recipient)
		})
}

func (p *Provisioner) ensureNotificationChannel(ctx context.Context, name, destinationID string) (*Resource, error) {
	return p.ensure(ctx, "notification channel",
		func(ctx context.Context) (*Resource, error) {
			return p.NotificationChannel(ctx, name)
		},
		func(ctx context.Context) (*Resource, error) {
			return p.CreateNotificationChannel(ctx, name, destinationID)
		})
}
