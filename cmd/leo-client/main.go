// Command leo-client is a smoke-test entrypoint for the LEO client engine.
// It reads its configuration from the environment (LEO_HOST, LEO_PORT,
// LEO_USER, LEO_PASS, LEO_TIMEOUT_MS), connects, authenticates, fetches
// server INFO, and disconnects cleanly.
package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/leo/client"
	"github.com/opd-ai/leo/logging"
)

func main() {
	log := logging.For("main")
	cfg := client.ConfigFromEnv()

	c, err := client.Connect(cfg.Host, cfg.Port, cfg.Timeout)
	if err != nil {
		log.WithError(err).Error("connect failed")
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Auth(cfg.Username, cfg.Password); err != nil {
		log.WithError(err).Error("auth failed")
		os.Exit(1)
	}

	info, err := c.Info()
	if err != nil {
		log.WithError(err).Error("info failed")
		os.Exit(1)
	}
	fmt.Printf("connected to leo server %s (protocol v%d), capabilities: %v\n",
		info.Version, info.ProtocolVersion, info.Capabilities)

	if err := c.Bye(); err != nil {
		log.WithError(err).Error("bye failed")
		os.Exit(1)
	}
}
