// Package client implements the LEO client engine: the handshake initiator
// and request/response correlator that mirrors the server's session actor.
// A Client opens one TCP connection, performs the CLIENT_HELLO/SERVER_HELLO
// handshake, derives directional session keys, and then issues AUTH, PUT,
// GET, LIST, DEL, INFO, and BYE commands over the shared encrypted framing.
//
// Example:
//
//	c, err := client.Connect("localhost", 9443, client.DefaultTimeout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//	if err := c.Auth("user", "pass"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Put("/tmp/report.pdf", "reports/report.pdf"); err != nil {
//	    log.Fatal(err)
//	}
package client
