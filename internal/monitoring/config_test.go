package monitoring

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	exampleConfig, err := os.Open("../../example.yaml")
	assert.NoError(t, err)
	defer exampleConfig.Close()

	c, err := readConfig(exampleConfig)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "NRAK-XXXXXXXXXXXXXXXXXXXXXXXXXXX", c.APIKey.Value)
	assert.Equal(t, 1234567, c.AccountID)
	assert.Equal(t, "us", c.RegionCode)
	assert.Equal(t, "demo", c.Name)
	require.Len(t, c.SyntheticsMonitors, 1)
	assert.Equal(t, "ops@demo.example.com", c.SyntheticsMonitors[0].Recipient)
	require.Len(t, c.SyntheticsMonitors[0].URLs, 2)
	assert.Equal(t, "https://demo.example.com/heartbeat",
		c.SyntheticsMonitors[0].URLs[0].String())
	assert.Equal(t, "EVERY_5_MINUTES", c.MonitoringPeriod)
	assert.Equal(t, "AWS_US_EAST_1", c.MonitoringLocation)
	assert.NoError(t, c.Validate())
}

func TestReadBadConfig(t *testing.T) {
	const exampleConfig = `--- api_key: :bad`
	r := strings.NewReader(exampleConfig)
	c, err := readConfig(r)

	assert.NotNil(t, err, "Should have encountered parsing error when reading invalid config file")
	assert.Equal(t, c, Config{}, "Parsing invalid config file should return zero struct")
}

func TestReadConfigDefaults(t *testing.T) {
	const config = `
api_key: secret
account_id: 1
name: demo
`
	c, err := readConfig(strings.NewReader(config))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "EVERY_5_MINUTES", c.MonitoringPeriod)
	assert.Equal(t, "AWS_US_EAST_1", c.MonitoringLocation)
}

func TestReadConfigEnvironmentOverrides(t *testing.T) {
	os.Setenv("NEWRELIC_API_KEY", "from-env")
	os.Setenv("NEWRELIC_ACCOUNT_ID", "7654321")
	os.Setenv("NEWRELIC_REGION_CODE", "eu")
	os.Setenv("NEWRELIC_MONITORING_PERIOD", "EVERY_10_MINUTES")
	defer func() {
		os.Unsetenv("NEWRELIC_API_KEY")
		os.Unsetenv("NEWRELIC_ACCOUNT_ID")
		os.Unsetenv("NEWRELIC_REGION_CODE")
		os.Unsetenv("NEWRELIC_MONITORING_PERIOD")
	}()

	const config = `
api_key: from-file
account_id: 1
region_code: us
name: demo
`
	c, err := readConfig(strings.NewReader(config))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "from-env", c.APIKey.Value)
	assert.Equal(t, 7654321, c.AccountID)
	assert.Equal(t, "eu", c.RegionCode)
	assert.Equal(t, "EVERY_10_MINUTES", c.MonitoringPeriod)
	assert.Equal(t, "demo", c.Name)
}

func TestValidate(t *testing.T) {
	const validConfig = `
api_key: secret
account_id: 1
name: demo
synthetics_monitors:
  - recipient: ops@demo.example.com
    urls:
      - https://demo.example.com/heartbeat
`
	c, err := readConfig(strings.NewReader(validConfig))
	require.NoError(t, err)
	assert.NoError(t, c.Validate())

	testCases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing api key", func(c *Config) { c.APIKey.Value = "" }, "api_key"},
		{"missing account id", func(c *Config) { c.AccountID = 0 }, "account_id"},
		{"missing name", func(c *Config) { c.Name = "" }, "name"},
		{"missing recipient", func(c *Config) { c.SyntheticsMonitors[0].Recipient = "" }, "recipient"},
		{"missing urls", func(c *Config) { c.SyntheticsMonitors[0].URLs = nil }, "url"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := readConfig(strings.NewReader(validConfig))
			require.NoError(t, err)
			tc.mutate(&c)
			err = c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
