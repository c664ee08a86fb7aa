package monitoring

import (
	"context"

	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const searchAlertPoliciesQuery = `
query($accountId: Int!, $name: String!) {
	actor {
		account(id: $accountId) {
			alerts {
				policiesSearch(searchCriteria: { nameLike: $name }) {
					policies {
						id
						name
					}
				}
			}
		}
	}
}`

const createAlertPolicyMutation = `
mutation($accountId: Int!, $name: String!) {
	alertsPolicyCreate(
		accountId: $accountId
		policy: { name: $name, incidentPreference: PER_CONDITION }
	) {
		id
		name
	}
}`

type policiesSearchResponse struct {
	Actor struct {
		Account struct {
			Alerts struct {
				PoliciesSearch struct {
					Policies []Resource `json:"policies"`
				} `json:"policiesSearch"`
			} `json:"alerts"`
		} `json:"account"`
	} `json:"actor"`
}

type policyCreateResponse struct {
	AlertsPolicyCreate *Resource `json:"alertsPolicyCreate"`
}

// AlertPolicy finds an alert policy by exact name. The search endpoint
// matches names loosely, so the result is narrowed to the first exact
// match; no match means (nil, nil).
func (p *Provisioner) AlertPolicy(ctx context.Context, name string) (*Resource, error) {
	resp := policiesSearchResponse{}
	err := p.client.Query(ctx, searchAlertPoliciesQuery, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return firstExactMatch(resp.Actor.Account.Alerts.PoliciesSearch.Policies, name), nil
}

// CreateAlertPolicy creates an alert policy that opens one incident per
// condition.
func (p *Provisioner) CreateAlertPolicy(ctx context.Context, name string) (*Resource, error) {
	resp := policyCreateResponse{}
	err := p.client.Query(ctx, createAlertPolicyMutation, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AlertsPolicyCreate == nil {
		return nil, nerdgraph.NewAPIError("alertsPolicyCreate returned no policy")
	}
	return resp.AlertsPolicyCreate, nil
}

func (p *Provisioner) ensureAlertPolicy(ctx context.Context, name string) (*Resource, error) {
	return p.ensure(ctx, "alert policy",
		func(ctx context.Context) (*Resource, error) {
			return p.AlertPolicy(ctx, name)
		},
		func(ctx context.Context) (*Resource, error) {
			return p.CreateAlertPolicy(ctx, name)
		})
}
