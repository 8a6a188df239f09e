package main

import (
	"fmt"
	"net"
	"os/exec"
	goruntime "runtime"
	"strconv"
	"time"
)

// browserDelay gives the listener time to come up before the browser asks for
// the first page.
const browserDelay = 500 * time.Millisecond

// browserCommand returns the command line that opens url on goos.
func browserCommand(goos, url string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"open", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", url}, nil
	case "windows":
		return []string{"cmd", "/c", "start", url}, nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// openBrowser launches the desktop browser without waiting for it.
func openBrowser(url string) error {
	args, err := browserCommand(goruntime.GOOS, url)
	if err != nil {
		return err
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// uiURL is the address a local browser uses for a server bound to bind:port.
func uiURL(bind string, port int) string {
	host := bind
	switch bind {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}
