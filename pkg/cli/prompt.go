package cli

import (
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/punisher1/nt/pkg/httpproto"
	"github.com/punisher1/nt/pkg/i18n"
	"github.com/punisher1/nt/pkg/protocol"
)

var httpMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// isInteractive reports whether r is a terminal a form can read from.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// promptRequest asks for the parts of an HTTP request the command line
// left out. Values already in in are offered as defaults.
func promptRequest(in *requestInput, p protocol.Protocol, loc *i18n.Localizer) error {
	in.Method = strings.ToUpper(in.Method)
	if !slices.Contains(httpMethods, in.Method) {
		in.Method = http.MethodGet
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(loc.T(i18n.KeyPromptMethod)).
				Options(huh.NewOptions(httpMethods...)...).
				Value(&in.Method),
			huh.NewInput().
				Title(loc.T(i18n.KeyPromptURL)).
				Placeholder(placeholderURL(p)).
				Value(&in.URL).
				Validate(func(s string) error {
					_, err := httpproto.ParseURL(s, p)
					return err
				}),
			huh.NewText().
				Title(loc.T(i18n.KeyPromptBody)).
				Value(&in.Body),
			huh.NewText().
				Title(loc.T(i18n.KeyPromptHeaders)).
				Placeholder("Content-Type: application/json").
				Value(&in.Headers).
				Validate(func(s string) error {
					_, err := httpproto.ParseHeaders(strings.Split(s, "\n"))
					return err
				}),
		),
	)
	return form.Run()
}

func placeholderURL(p protocol.Protocol) string {
	if p == protocol.ProtocolHTTP3 {
		return "https://localhost:8443/"
	}
	return "http://localhost:8080/"
}
