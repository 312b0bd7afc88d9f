//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

func send(title, body string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(body), escape(title))
	return exec.Command("osascript", "-e", script).Run()
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
