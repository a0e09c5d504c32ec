// Package logging provides the structured, JSON-line logging shared by
// every LEO component. It is built on github.com/sirupsen/logrus, used
// across every LEO component, with a level-routing hook so error-level
// records land on stderr while everything else goes to stdout, matching
// the protocol's log record contract.
//
// Example:
//
//	logging.For("session").WithField("remote", addr).Info("handshake complete")
package logging
