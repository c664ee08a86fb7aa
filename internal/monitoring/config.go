package monitoring

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/open-craft/openedx-newrelic/internal/util"
)

const (
	defaultMonitoringPeriod   = "EVERY_5_MINUTES"
	defaultMonitoringLocation = "AWS_US_EAST_1"
)

// Config holds everything one provisioning run needs. Values come from
// a YAML file and can be overridden through NEWRELIC_* environment
// variables.
type Config struct {
	AccountID          int               `yaml:"account_id" envconfig:"ACCOUNT_ID"`
	APIKey             util.StringSecret `yaml:"api_key" envconfig:"API_KEY"`
	Debug              bool              `yaml:"debug"`
	MonitoringLocation string            `yaml:"monitoring_location" envconfig:"MONITORING_LOCATION"`
	MonitoringPeriod   string            `yaml:"monitoring_period" envconfig:"MONITORING_PERIOD"`
	Name               string            `yaml:"name"`
	RegionCode         string            `yaml:"region_code" envconfig:"REGION_CODE"`
	SentryDsn          util.StringSecret `yaml:"sentry_dsn" envconfig:"SENTRY_DSN"`
	SyntheticsMonitors []MonitorConfig   `yaml:"synthetics_monitors"`
}

// MonitorConfig is one monitor group of the config file: who to notify
// and which URLs to watch.
type MonitorConfig struct {
	Recipient string     `yaml:"recipient"`
	URLs      []util.Url `yaml:"urls"`
}

// ReadConfig unmarshals the config file and slurps in its data.
func ReadConfig(path string) (c Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	return readConfig(f)
}

func readConfig(r io.Reader) (c Config, err error) {
	bts, err := ioutil.ReadAll(r)
	if err != nil {
		return
	}
	err = yaml.Unmarshal(bts, &c)
	if err != nil {
		return
	}

	err = envconfig.Process("newrelic", &c)
	if err != nil {
		return c, err
	}

	if c.MonitoringPeriod == "" {
		c.MonitoringPeriod = defaultMonitoringPeriod
	}
	if c.MonitoringLocation == "" {
		c.MonitoringLocation = defaultMonitoringLocation
	}

	return c, nil
}

// Validate reports the first missing required value. Provisioning
// assumes configuration that reaches it is complete.
func (c Config) Validate() error {
	if c.APIKey.Value == "" {
		return errors.New("api_key is required")
	}
	if c.AccountID == 0 {
		return errors.New("account_id is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	for i, group := range c.SyntheticsMonitors {
		if group.Recipient == "" {
			return errors.Errorf("synthetics_monitors[%d]: recipient is required", i)
		}
		if len(group.URLs) == 0 {
			return errors.Errorf("synthetics_monitors[%d]: at least one url is required", i)
		}
	}
	return nil
}
