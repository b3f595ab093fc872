package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/idilsaglam/simpletodo/internal/auth"
	"github.com/idilsaglam/simpletodo/internal/ui"
)

var timeNow = time.Now

func (a *App) doAuthLogin() int {
	fmt.Fprint(a.Out, "Paste your token: ")
	sc := bufio.NewScanner(a.In)
	if !sc.Scan() {
		msg := "no input"
		if err := sc.Err(); err != nil {
			msg = err.Error()
		}
		ui.Fail(a.Err, "read token: "+msg)
		return 1
	}
	ti, err := a.Auth.Save(sc.Text())
	if err != nil {
		ui.Fail(a.Err, "save token: "+err.Error())
		return 1
	}
	fmt.Fprintln(a.Out)
	ui.OK(a.Out, "logged in")
	if ti.ExpiresAt != nil {
		ui.Hint(a.Out, "expires: "+ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return 0
}

func (a *App) doAuthLogout() int {
	ti, _ := a.Auth.Token()
	if ti != nil && ti.Source == "env" {
		ui.OK(a.Out, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
		return 0
	}
	if err := a.Auth.Delete(); err != nil {
		ui.Fail(a.Err, "logout: "+err.Error())
		return 1
	}
	ui.OK(a.Out, "logged out")
	return 0
}

func (a *App) doAuthStatus() int {
	ti, err := a.Auth.Token()
	if err != nil {
		ui.Fail(a.Err, "status: "+err.Error())
		return 1
	}
	if ti == nil {
		fmt.Fprintln(a.Out, ui.C(ui.Current().Muted, "not logged in"))
		fmt.Fprintln(a.Out, "Run: todo auth login")
		return 0
	}
	fmt.Fprintf(a.Out, "source: %s\n", ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		fmt.Fprintln(a.Out, "expires: (unknown)")
	case ti.Expired(timeNow()):
		fmt.Fprintf(a.Out, "expires: %s (expired)\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		fmt.Fprintf(a.Out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(a.Out, "env override: "+auth.EnvToken)
	return 0
}

// whoami prints the JWT claims without verifying them; opaque tokens print basic info.
func (a *App) doAuthWhoAmI() int {
	ti, _ := a.Auth.Token()
	if ti == nil || strings.TrimSpace(ti.Token) == "" {
		ui.Fail(a.Err, "not logged in. Run: todo auth login")
		return 2
	}
	claims, err := auth.Claims(ti.Token)
	if err != nil {
		fmt.Fprintln(a.Out, "Opaque token (cannot introspect locally).")
		fmt.Fprintln(a.Out, "source:", ti.Source)
		return 0
	}
	b, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		ui.Fail(a.Err, "whoami: "+err.Error())
		return 1
	}
	fmt.Fprintln(a.Out, "JWT payload:")
	fmt.Fprintln(a.Out, string(b))
	return 0
}
