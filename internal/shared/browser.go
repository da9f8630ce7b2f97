package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand maps GOOS to the opener binary and its leading arguments.
var browserCommand = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

// OpenBrowser opens the default system browser at the given URL. The command
// is started, not waited on; the login flow completes via the callback server.
func OpenBrowser(url string) error {
	rt := getRuntime()
	argv, ok := browserCommand[rt]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	cmd := exec.Command(argv[0], append(argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
