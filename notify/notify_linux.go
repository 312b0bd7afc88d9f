//go:build linux

package notify

import "os/exec"

func send(title, body string) error {
	return exec.Command("notify-send", "-a", "talkat", "-t", "3000", title, body).Run()
}
