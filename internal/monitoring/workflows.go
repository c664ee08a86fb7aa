package monitoring

import (
	"context"
	"fmt"

	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const searchWorkflowsQuery = `
query($accountId: Int!, $name: String!) {
	actor {
		account(id: $accountId) {
			aiWorkflows {
				workflows(filters: { name: $name }) {
					entities {
						id
						name
					}
				}
			}
		}
	}
}`

const createWorkflowMutation = `
mutation($accountId: Int!, $name: String!, $filterName: String!, $policyIds: [String!]!, $channelId: ID!) {
	aiWorkflowsCreateWorkflow(
		accountId: $accountId
		createWorkflowData: {
			name: $name
			workflowEnabled: true
			destinationsEnabled: true
			mutingRulesHandling: NOTIFY_ALL_ISSUES
			issuesFilter: {
				name: $filterName
				type: FILTER
				predicates: [
					{
						attribute: "labels.policyIds"
						operator: EXACTLY_MATCHES
						values: $policyIds
					}
				]
			}
			destinationConfigurations: {
				channelId: $channelId
				notificationTriggers: [ACTIVATED, CLOSED]
			}
		}
	) {
		workflow {
			id
			name
		}
		errors {
			description
			type
		}
	}
}`

type workflowsSearchResponse struct {
	Actor struct {
		Account struct {
			AiWorkflows struct {
				Workflows struct {
					Entities []Resource `json:"entities"`
				} `json:"workflows"`
			} `json:"aiWorkflows"`
		} `json:"account"`
	} `json:"actor"`
}

type workflowCreateResponse struct {
	AiWorkflowsCreateWorkflow struct {
		Workflow *Resource       `json:"workflow"`
		Errors   []mutationError `json:"errors"`
	} `json:"aiWorkflowsCreateWorkflow"`
}

// workflowName derives the alert workflow name from the instance name.
func workflowName(instanceName string) string {
	return fmt.Sprintf("Alert intelligence workflow of %s instance", instanceName)
}

// Workflow finds the alert workflow of an instance by exact name; no
// match means (nil, nil).
func (p *Provisioner) Workflow(ctx context.Context, instanceName string) (*Resource, error) {
	name := workflowName(instanceName)
	resp := workflowsSearchResponse{}
	err := p.client.Query(ctx, searchWorkflowsQuery, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return firstExactMatch(resp.Actor.Account.AiWorkflows.Workflows.Entities, name), nil
}

// CreateWorkflow creates the alert workflow of an instance: issues from
// the given policy are routed to the given channel when incidents open
// and close. The API reports a name collision by returning a null
// workflow, which comes back as an error here.
func (p *Provisioner) CreateWorkflow(ctx context.Context, instanceName, policyID, channelID string) (*Resource, error) {
	resp := workflowCreateResponse{}
	err := p.client.Query(ctx, createWorkflowMutation, map[string]interface{}{
		"name":       workflowName(instanceName),
		"filterName": fmt.Sprintf("matching issues of %s instance", instanceName),
		"policyIds":  []string{policyID},
		"channelId":  channelID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	result := resp.AiWorkflowsCreateWorkflow
	if len(result.Errors) > 0 {
		return nil, nerdgraph.NewAPIError("unexpected NerdGraph error: %+v", result.Errors)
	}
	if result.Workflow == nil {
		return nil, nerdgraph.NewAPIError("a workflow with the given name already exists")
	}
	return result.Workflow, nil
}

func (p *Provisioner) ensureWorkflow(ctx context.Context, instanceName, policyID, channelID string) (*Resource, error) {
	return p.ensure(ctx, "alert workflow",
		func(ctx context.Context) (*Resource, error) {
			return p.Workflow(ctx, instanceName)
		},
		func(ctx context.Context) (*Resource, error) {
			return p.CreateWorkflow(ctx, instanceName, policyID, channelID)
		})
}
