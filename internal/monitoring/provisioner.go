// Package monitoring provisions the NewRelic resources that watch an
// Open edX instance: an alert policy, synthetic uptime monitors, email
// notification plumbing, and the alert workflow tying them together.
//
// Every resource is looked up by name before anything is created, so
// provisioning the same instance twice converges instead of piling up
// duplicates. NewRelic itself is the only state store.
package monitoring

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GraphQL is the transport surface the provisioner needs. It is
// satisfied by *nerdgraph.Client.
type GraphQL interface {
	Query(ctx context.Context, document string, variables map[string]interface{}, out interface{}) error
}

// Resource identifies one remote NewRelic object.
type Resource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Monitor is a synthetics monitor together with the URL it checks.
type Monitor struct {
	Resource
	URI string
}

// Provisioner ensures the monitoring resources for one Open edX
// instance exist, creating whatever a name lookup cannot find.
type Provisioner struct {
	client    GraphQL
	period    string
	locations []string
	log       *logrus.Entry
}

// NewProvisioner returns a Provisioner that creates synthetics monitors
// with the given check period and locations. A nil logger falls back to
// the standard logger.
func NewProvisioner(client GraphQL, period string, locations []string, logger *logrus.Entry) *Provisioner {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Provisioner{
		client:    client,
		period:    period,
		locations: locations,
		log:       logger,
	}
}

// policyName renders the alert policy name for an instance. Instance
// names appear in title case, matching how existing policies were named.
func policyName(instanceName string) string {
	return fmt.Sprintf("%s - Open edX Instance", cases.Title(language.English).String(instanceName))
}

// destinationName names both the notification destination and the
// notification channel of an instance.
func destinationName(instanceName string) string {
	return fmt.Sprintf("Default notification channel for %s", instanceName)
}

// firstExactMatch narrows a fuzzy search result down to the first entry
// whose name matches exactly, or nil when there is none.
func firstExactMatch(resources []Resource, name string) *Resource {
	for i := range resources {
		if resources[i].Name == name {
			return &resources[i]
		}
	}
	return nil
}

// ensure runs the lookup-then-create step every resource kind shares. A
// lookup hit is returned as is; otherwise the resource is created. The
// kind labels log lines and error context.
func (p *Provisioner) ensure(ctx context.Context, kind string,
	lookup func(context.Context) (*Resource, error),
	create func(context.Context) (*Resource, error),
) (*Resource, error) {
	resource, err := lookup(ctx)
	if err != nil {
		return nil, errors.Wrap(err, kind)
	}
	if resource != nil {
		p.log.WithFields(logrus.Fields{
			"id":   resource.ID,
			"name": resource.Name,
		}).Debugf("Found existing %s", kind)
		return resource, nil
	}
	resource, err = create(ctx)
	if err != nil {
		return nil, errors.Wrap(err, kind)
	}
	p.log.WithFields(logrus.Fields{
		"id":   resource.ID,
		"name": resource.Name,
	}).Infof("Created %s", kind)
	return resource, nil
}

// Provision realizes the full monitoring graph for one instance: the
// alert policy, then for each monitor group its notification
// destination, channel and alert workflow, then one synthetics monitor
// and one lost-signal condition per URL. Each step feeds the
// identifiers the next one consumes; the first failing step aborts the
// run.
//
// NewRelic has no create-if-absent primitive, so two runs racing
// against the same account can both miss a lookup and create duplicate
// resources. A single run never does.
func (p *Provisioner) Provision(ctx context.Context, instanceName string, monitors []MonitorConfig) error {
	policy, err := p.ensureAlertPolicy(ctx, policyName(instanceName))
	if err != nil {
		return err
	}

	for _, group := range monitors {
		destination, err := p.ensureNotificationDestination(
			ctx, destinationName(instanceName), group.Recipient)
		if err != nil {
			return err
		}

		channel, err := p.ensureNotificationChannel(
			ctx, destinationName(instanceName), destination.ID)
		if err != nil {
			return err
		}

		if _, err := p.ensureWorkflow(ctx, instanceName, policy.ID, channel.ID); err != nil {
			return err
		}

		for _, monitorURL := range group.URLs {
			monitor, err := p.ensureSyntheticsMonitor(ctx, monitorURL.String())
			if err != nil {
				return err
			}
			if _, err := p.ensureAlertCondition(ctx, monitor.Name, policy.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
