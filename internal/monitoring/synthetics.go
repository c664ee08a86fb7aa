package monitoring

import (
	"context"
	"fmt"

	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const searchSyntheticsMonitorsQuery = `
query($query: String!) {
	actor {
		entitySearch(query: $query) {
			results {
				entities {
					guid
					name
				}
			}
		}
	}
}`

const createSyntheticsMonitorMutation = `
mutation($accountId: Int!, $monitor: SyntheticsCreateSimpleMonitorInput!) {
	syntheticsCreateSimpleMonitor(accountId: $accountId, monitor: $monitor) {
		monitor {
			id
			name
		}
		errors {
			description
			type
		}
	}
}`

type entitySearchResponse struct {
	Actor struct {
		EntitySearch struct {
			Results struct {
				Entities []monitorEntity `json:"entities"`
			} `json:"results"`
		} `json:"entitySearch"`
	} `json:"actor"`
}

// monitorEntity is a synthetics monitor as entity search reports it;
// the guid is what the rest of the API accepts as the monitor id.
type monitorEntity struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type monitorCreateResponse struct {
	SyntheticsCreateSimpleMonitor struct {
		Monitor *Resource       `json:"monitor"`
		Errors  []mutationError `json:"errors"`
	} `json:"syntheticsCreateSimpleMonitor"`
}

// mutationError is the embedded error shape synthetics and workflow
// mutations report on, even when the response itself succeeds.
type mutationError struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// simpleMonitorInput is the SyntheticsCreateSimpleMonitorInput payload.
type simpleMonitorInput struct {
	Name      string           `json:"name"`
	Period    string           `json:"period"`
	URI       string           `json:"uri"`
	Status    string           `json:"status"`
	Locations monitorLocations `json:"locations"`
}

type monitorLocations struct {
	Public []string `json:"public"`
}

// SyntheticsMonitor finds a synthetics monitor by exact name through
// entity search; the entity guid serves as the monitor identifier. No
// match means (nil, nil).
func (p *Provisioner) SyntheticsMonitor(ctx context.Context, name string) (*Resource, error) {
	resp := entitySearchResponse{}
	err := p.client.Query(ctx, searchSyntheticsMonitorsQuery, map[string]interface{}{
		"query": fmt.Sprintf("domain = 'SYNTH' AND type = 'MONITOR' AND name = '%s'", name),
	}, &resp)
	if err != nil {
		return nil, err
	}
	monitors := resp.Actor.EntitySearch.Results.Entities
	resources := make([]Resource, 0, len(monitors))
	for _, monitor := range monitors {
		resources = append(resources, Resource{ID: monitor.GUID, Name: monitor.Name})
	}
	return firstExactMatch(resources, name), nil
}

// CreateSyntheticsMonitor creates an enabled simple ping monitor that
// requests uri on the given period from the given public locations.
func (p *Provisioner) CreateSyntheticsMonitor(ctx context.Context, name, uri, period string, locations []string) (*Monitor, error) {
	resp := monitorCreateResponse{}
	err := p.client.Query(ctx, createSyntheticsMonitorMutation, map[string]interface{}{
		"monitor": simpleMonitorInput{
			Name:      name,
			Period:    period,
			URI:       uri,
			Status:    "ENABLED",
			Locations: monitorLocations{Public: locations},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	result := resp.SyntheticsCreateSimpleMonitor
	if len(result.Errors) > 0 {
		return nil, nerdgraph.NewAPIError("unexpected NerdGraph error: %+v", result.Errors)
	}
	if result.Monitor == nil {
		return nil, nerdgraph.NewAPIError("syntheticsCreateSimpleMonitor returned no monitor")
	}
	return &Monitor{Resource: *result.Monitor, URI: uri}, nil
}

func (p *Provisioner) ensureSyntheticsMonitor(ctx context.Context, monitorURL string) (*Resource, error) {
	return p.ensure(ctx, fmt.Sprintf("synthetics monitor %s", monitorURL),
		func(ctx context.Context) (*Resource, error) {
			return p.SyntheticsMonitor(ctx, monitorURL)
		},
		func(ctx context.Context) (*Resource, error) {
			monitor, err := p.CreateSyntheticsMonitor(
				ctx, monitorURL, monitorURL, p.period, p.locations)
			if err != nil {
				return nil, err
			}
			return &monitor.Resource, nil
		})
}
