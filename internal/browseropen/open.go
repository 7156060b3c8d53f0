// Package browseropen opens URLs in the operator's browser.
package browseropen

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// DocsURL returns the interactive API docs page served next to apiURL:
// "http://host:8000/api" -> "http://host:8000/docs".
func DocsURL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid api url (expected http/https): %s", apiURL)
	}
	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, "/api")
	u.Path = p + "/docs"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func Open(u string) error {
	u = strings.TrimSpace(u)
	if u == "" {
		return errors.New("missing url")
	}

	goos := runtime.GOOS
	wsl := false
	if goos == "linux" {
		wsl = isWSL()
	}
	return openFor(goos, wsl, strings.TrimSpace(os.Getenv("BROWSER")), u)
}

func openFor(goos string, wsl bool, browserEnv string, u string) error {
	switch goos {
	case "darwin":
		return startCommand("open", u)
	case "windows":
		return openWindows(u)
	default: // linux et al
		if goos == "linux" && wsl {
			if err := openWSL(u); err == nil {
				return nil
			}
		}

		// Respect BROWSER on unix-y systems (best effort).
		if err := openViaBrowserEnv(browserEnv, u); err == nil {
			return nil
		}

		return startCommand("xdg-open", u)
	}
}

func openWSL(u string) error {
	return firstThatStarts("wsl", [][]string{
		{"wslview", u},
		{"cmd.exe", "/c", "start", "", u},
		{"powershell.exe", "-NoProfile", "-Command", "Start-Process", u},
		{"explorer.exe", u},
	})
}

func openWindows(u string) error {
	return firstThatStarts("windows", [][]string{
		{"rundll32", "url.dll,FileProtocolHandler", u},
		{"cmd", "/c", "start", "", u},
		{"powershell", "-NoProfile", "-Command", "Start-Process", u},
		{"explorer", u},
	})
}

// firstThatStarts runs candidates in order and stops at the first one that
// starts.
func firstThatStarts(platform string, candidates [][]string) error {
	var errs []error
	for _, argv := range candidates {
		if len(argv) == 0 {
			continue
		}
		err := startCommand(argv[0], argv[1:]...)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("open browser failed (%s): %w", platform, errors.Join(errs...))
}

// openViaBrowserEnv honors $BROWSER: a colon-separated list of commands,
// where "%s" marks the URL position and is otherwise appended.
func openViaBrowserEnv(raw string, u string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("BROWSER not set")
	}
	var candidates [][]string
	for _, part := range strings.Split(raw, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "%s") {
			candidates = append(candidates, strings.Fields(strings.ReplaceAll(part, "%s", u)))
			continue
		}
		candidates = append(candidates, append(strings.Fields(part), u))
	}
	if len(candidates) == 0 {
		return errors.New("BROWSER has no commands")
	}
	return firstThatStarts("BROWSER", candidates)
}

func isWSL() bool {
	// Fast env-based detection.
	if strings.TrimSpace(os.Getenv("WSL_INTEROP")) != "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("WSL_DISTRO_NAME")) != "" {
		return true
	}

	// Heuristic: kernel release contains Microsoft.
	if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		if strings.Contains(strings.ToLower(string(b)), "microsoft") {
			return true
		}
	}
	if b, err := os.ReadFile("/proc/version"); err == nil {
		if strings.Contains(strings.ToLower(string(b)), "microsoft") {
			return true
		}
	}
	return false
}
