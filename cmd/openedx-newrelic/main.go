package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/open-craft/openedx-newrelic/internal/monitoring"
	"github.com/open-craft/openedx-newrelic/internal/nerdgraph"
)

const sentryFlushTimeout = 10 * time.Second

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "openedx-newrelic",
		Short: "Manage NewRelic monitoring for Open edX instances",
	}
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "f", "", "The config file to read for settings.")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "create-alert-workflow",
		Short: "Create the alert policy, synthetic monitors and notification workflow of an instance",
		Args:  cobra.NoArgs,
		Run:   createAlertWorkflow,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createAlertWorkflow(cmd *cobra.Command, args []string) {
	if configFile == "" {
		logrus.Fatal("You must specify a config file")
	}

	conf, err := monitoring.ReadConfig(configFile)
	if err != nil {
		logrus.WithError(err).Fatal("Error reading config file")
	}
	if err := conf.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	defer consumePanic(conf.SentryDsn.Value)

	logger := logrus.StandardLogger()
	if conf.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.WithField("config", fmt.Sprintf("%+v", conf)).Debug("Loaded configuration")

	client := nerdgraph.NewClient(
		conf.APIKey.Value, conf.AccountID, conf.RegionCode,
		nerdgraph.WithLogger(logrus.NewEntry(logger)))
	provisioner := monitoring.NewProvisioner(
		client, conf.MonitoringPeriod, []string{conf.MonitoringLocation},
		logrus.NewEntry(logger))

	fmt.Printf("Setting up NewRelic monitoring for %s\n", conf.Name)

	if err := provisioner.Provision(cmd.Context(), conf.Name, conf.SyntheticsMonitors); err != nil {
		if initSentry(conf.SentryDsn.Value) {
			captureToSentry(err.Error())
		}
		logrus.WithError(err).Fatal("Could not set up NewRelic monitoring")
	}

	fmt.Printf("NewRelic monitoring is set up for %s\n", conf.Name)
}

// consumePanic reports a panic to Sentry, then lets it terminate the
// process. Call it deferred once configuration is known.
func consumePanic(dsn string) {
	p := recover()
	if p == nil {
		return
	}
	if initSentry(dsn) {
		captureToSentry(fmt.Sprintf("%v", p))
	}
	panic(p)
}

func initSentry(dsn string) bool {
	if dsn == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn: dsn,
	})
	if err != nil {
		logrus.WithError(err).Error("Error initializing Sentry client")
		return false
	}
	return true
}

func captureToSentry(message string) {
	event := sentry.NewEvent()
	event.Message = message
	hostname, _ := os.Hostname()
	if hostname != "" {
		event.ServerName = hostname
	}

	sentry.CaptureEvent(event)
	sentry.Flush(sentryFlushTimeout)
}
