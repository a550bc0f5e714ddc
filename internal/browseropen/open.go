// Package browseropen launches the system browser for the interactive
// sign-in prompt.
package browseropen

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

func Open(u string) error {
	u = strings.TrimSpace(u)
	if u == "" {
		return errors.New("missing url")
	}
	return openFor(runtime.GOOS, strings.TrimSpace(os.Getenv("BROWSER")), u)
}

func openFor(goos, browserEnv, u string) error {
	switch goos {
	case "darwin":
		return startCommand("open", u)
	case "windows":
		return startCommand("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		// Respect BROWSER on unix-y systems (best effort), then xdg-open.
		if browserEnv != "" {
			argv := strings.Fields(browserEnv)
			if len(argv) > 0 {
				if err := startCommand(argv[0], append(argv[1:], u)...); err == nil {
					return nil
				}
			}
		}
		return startCommand("xdg-open", u)
	}
}
