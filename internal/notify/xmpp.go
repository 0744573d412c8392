// Package notify sends operator-facing alerts (pipeline failures crossing a
// severity threshold) over XMPP. Grounded on the teacher's xmpp/xmpp.go.
package notify

import (
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/mattn/go-xmpp"
	log "github.com/sirupsen/logrus"
)

// Config configures the XMPP notifier. Zero-value Config disables sending:
// Send becomes a no-op that still logs the message it would have sent.
type Config struct {
	Host     string
	Jid      string
	Password string
	To       string
}

func (c Config) configured() bool {
	return c.Jid != "" && c.Password != "" && c.To != ""
}

// Notifier is the outbound alert contract the core pipeline depends on.
type Notifier interface {
	Send(message string) error
}

// XMPPNotifier sends messages through an XMPP server, grounded on the
// teacher's Xmpp type.
type XMPPNotifier struct {
	Config Config
}

func serverName(jid string) string {
	parts := strings.SplitN(jid, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Send delivers message as a chat stanza to Config.To. If Config is not
// fully populated, Send logs and returns nil rather than failing the
// calling pipeline over a missing notification channel.
func (n XMPPNotifier) Send(message string) error {
	if !n.Config.configured() {
		log.WithField("message", message).Info("notify: xmpp not configured, skipping")
		return nil
	}

	host := n.Config.Host
	if host == "" {
		host = serverName(n.Config.Jid)
	}

	xmpp.DefaultConfig = tls.Config{InsecureSkipVerify: true}

	options := xmpp.Options{
		Host:          host,
		User:          n.Config.Jid,
		Password:      n.Config.Password,
		NoTLS:         true,
		StartTLS:      true,
		Status:        "xa",
		StatusMessage: "nav-server",
	}

	talk, err := options.NewClient()
	if err != nil {
		return fmt.Errorf("notify: xmpp client: %w", err)
	}

	if _, err := talk.Send(xmpp.Chat{Remote: n.Config.To, Type: "chat", Text: message}); err != nil {
		return fmt.Errorf("notify: xmpp send: %w", err)
	}
	return nil
}

// NoopNotifier discards every message; used when no notifier is configured
// at all and logging the skip (as XMPPNotifier.Send does) isn't wanted.
type NoopNotifier struct{}

func (NoopNotifier) Send(string) error { return nil }
