// Package notify shows best-effort desktop notifications. Failures are
// logged and swallowed; dictation must keep working on systems without a
// notification daemon.
package notify

import "talkat/log"

func Send(title, body string) {
	if err := send(title, body); err != nil {
		log.Warnf("notification failed: %v", err)
	}
}
