package monitoring

import (
	"context"
	"fmt"

	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const searchAlertConditionsQuery = `
query($accountId: Int!, $name: String!) {
	actor {
		account(id: $accountId) {
			alerts {
				nrqlConditionsSearch(searchCriteria: { name: $name }) {
					nrqlConditions {
						id
						name
					}
				}
			}
		}
	}
}`

const createAlertConditionMutation = `
mutation($accountId: Int!, $policyId: ID!, $condition: AlertsNrqlConditionStaticInput!) {
	alertsNrqlConditionStaticCreate(
		accountId: $accountId
		policyId: $policyId
		condition: $condition
	) {
		id
		name
	}
}`

type conditionsSearchResponse struct {
	Actor struct {
		Account struct {
			Alerts struct {
				NrqlConditionsSearch struct {
					NrqlConditions []Resource `json:"nrqlConditions"`
				} `json:"nrqlConditionsSearch"`
			} `json:"alerts"`
		} `json:"account"`
	} `json:"actor"`
}

type conditionCreateResponse struct {
	AlertsNrqlConditionStaticCreate *Resource `json:"alertsNrqlConditionStaticCreate"`
}

// nrqlConditionInput is the AlertsNrqlConditionStaticInput payload.
type nrqlConditionInput struct {
	Name                      string              `json:"name"`
	Enabled                   bool                `json:"enabled"`
	Description               string              `json:"description"`
	ValueFunction             string              `json:"valueFunction"`
	ViolationTimeLimitSeconds int                 `json:"violationTimeLimitSeconds"`
	Nrql                      nrqlQuery           `json:"nrql"`
	Signal                    conditionSignal     `json:"signal"`
	Terms                     []conditionTerm     `json:"terms"`
	Expiration                conditionExpiration `json:"expiration"`
}

type nrqlQuery struct {
	Query string `json:"query"`
}

type conditionSignal struct {
	AggregationWindow int    `json:"aggregationWindow"`
	AggregationMethod string `json:"aggregationMethod"`
	AggregationDelay  int    `json:"aggregationDelay"`
	FillOption        string `json:"fillOption"`
	FillValue         int    `json:"fillValue"`
}

type conditionTerm struct {
	Threshold            int    `json:"threshold"`
	ThresholdOccurrences string `json:"thresholdOccurrences"`
	ThresholdDuration    int    `json:"thresholdDuration"`
	Operator             string `json:"operator"`
	Priority             string `json:"priority"`
}

type conditionExpiration struct {
	ExpirationDuration          int  `json:"expirationDuration"`
	OpenViolationOnExpiration   bool `json:"openViolationOnExpiration"`
	CloseViolationsOnExpiration bool `json:"closeViolationsOnExpiration"`
}

// conditionName derives the alert condition name from the monitor it
// watches.
func conditionName(monitorName string) string {
	return fmt.Sprintf("Lost signal for %s", monitorName)
}

// AlertCondition finds the lost-signal NRQL condition of a monitor by
// exact name; no match means (nil, nil).
func (p *Provisioner) AlertCondition(ctx context.Context, monitorName string) (*Resource, error) {
	name := conditionName(monitorName)
	resp := conditionsSearchResponse{}
	err := p.client.Query(ctx, searchAlertConditionsQuery, map[string]interface{}{
		"name": name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return firstExactMatch(resp.Actor.Account.Alerts.NrqlConditionsSearch.NrqlConditions, name), nil
}

// CreateAlertCondition attaches a static NRQL condition to the policy
// that counts failed checks of the monitor, opening a warning and then a
// critical incident as failures accumulate. Incidents whose signal goes
// quiet close on expiration instead of lingering.
func (p *Provisioner) CreateAlertCondition(ctx context.Context, monitorName, policyID string) (*Resource, error) {
	condition := nrqlConditionInput{
		Name:                      conditionName(monitorName),
		Enabled:                   true,
		Description:               fmt.Sprintf("Alert when %s is not responding", monitorName),
		ValueFunction:             "SUM",
		ViolationTimeLimitSeconds: 86400,
		Nrql: nrqlQuery{
			Query: fmt.Sprintf(
				"SELECT count(*) FROM SyntheticCheck WHERE monitorName = '%s' AND result = 'FAILED'",
				monitorName),
		},
		Signal: conditionSignal{
			AggregationWindow: 60,
			AggregationMethod: "EVENT_FLOW",
			AggregationDelay:  120,
			FillOption:        "STATIC",
			FillValue:         0,
		},
		Terms: []conditionTerm{
			{
				Threshold:            1,
				ThresholdOccurrences: "AT_LEAST_ONCE",
				ThresholdDuration:    360,
				Operator:             "ABOVE",
				Priority:             "WARNING",
			},
			{
				Threshold:            2,
				ThresholdOccurrences: "AT_LEAST_ONCE",
				ThresholdDuration:    660,
				Operator:             "ABOVE",
				Priority:             "CRITICAL",
			},
		},
		Expiration: conditionExpiration{
			ExpirationDuration:          660,
			OpenViolationOnExpiration:   false,
			CloseViolationsOnExpiration: true,
		},
	}

	resp := conditionCreateResponse{}
	err := p.client.Query(ctx, createAlertConditionMutation, map[string]interface{}{
		"policyId":  policyID,
		"condition": condition,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AlertsNrqlConditionStaticCreate == nil {
		return nil, nerdgraph.NewAPIError("alertsNrqlConditionStaticCreate returned no condition")
	}
	return resp.AlertsNrqlConditionStaticCreate, nil
}

func (p *Provisioner) ensureAlertCondition(ctx context.Context, monitorName, policyID string) (*Resource, error) {
	return p.ensure(ctx, fmt.Sprintf("alert condition for %s", monitorName),
		func(ctx context.Context) (*Resource, error) {
			return p.AlertCondition(ctx, monitorName)
		},
		func(ctx context.Context) (*Resource, error) {
			return p.CreateAlertCondition(ctx, monitorName, policyID)
		})
}
