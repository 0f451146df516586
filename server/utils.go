// Generic utilities: config parsing, paths, response writers.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	jcr "github.com/tinode/jsonco"

	"github.com/tinode/anonsub/server/subscr"
	"github.com/tinode/anonsub/server/validate"
)

// registerHandlers attaches API endpoints to the mux.
func registerHandlers(mux *http.ServeMux, apiPath string, reg *subscr.Registry) {
	mux.Handle(apiPath+"events/reply", requireApiKey(globals.apiKeySalt, scopeWebhook, serveReplyEvent(reg)))
	mux.Handle(apiPath+"unsubscribe", serveUnsubscribe(reg))

	var form http.Handler = serveCheckbox(reg)
	if globals.siteURL != "" {
		// The form fragment is fetched by the forum pages.
		form = handlers.CORS(
			handlers.AllowedOrigins([]string{globals.siteURL}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead}),
		)(form)
	}
	mux.Handle(apiPath+"form/checkbox", form)

	mux.HandleFunc(apiPath, serve404)
}

// readConfig parses JSON with comments. Errors report line and character of the failure.
func readConfig(path string) (*configType, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseConfig(file)
}

func parseConfig(r io.Reader) (*configType, error) {
	jr := jcr.New(r)
	var config configType
	if err := json.NewDecoder(jr).Decode(&config); err != nil {
		switch jerr := err.(type) {
		case *json.UnmarshalTypeError:
			lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
			return nil, fmt.Errorf("unmarshall error in config file in %s at %d:%d (offset %d bytes): %s",
				jerr.Field, lnum, cnum, jerr.Offset, jerr.Error())
		case *json.SyntaxError:
			lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
			return nil, fmt.Errorf("syntax error in config file at %d:%d (offset %d bytes): %s",
				lnum, cnum, jerr.Offset, jerr.Error())
		default:
			return nil, errors.New("failed to parse config file: " + err.Error())
		}
	}
	return &config, nil
}

// validateSiteURL returns the origin of the forum: scheme://host[:port].
func validateSiteURL(siteURL string) (string, error) {
	normalized, err := validate.ValidateHostURL(siteURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// Calculate program's root path from the path of the executable.
func rootpath(executable string) string {
	if executable == "" {
		return ""
	}
	return filepath.Dir(executable)
}

// Convert relative filepath to absolute.
func toAbsolutePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(base, path))
}

// domainOf returns the domain part of the email address, or an empty string.
func domainOf(email string) string {
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		return strings.TrimSpace(email[at+1:])
	}
	return ""
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

type errorResponse struct {
	Code      int       `json:"code"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

func writeJSON(wrt http.ResponseWriter, status int, body any) {
	wrt.Header().Set("Content-Type", "application/json; charset=utf-8")
	wrt.WriteHeader(status)
	json.NewEncoder(wrt).Encode(body)
}

func writeError(wrt http.ResponseWriter, status int, text string) {
	writeJSON(wrt, status, &errorResponse{
		Code:      status,
		Text:      text,
		Timestamp: time.Now().UTC().Round(time.Millisecond),
	})
}

func writeText(wrt http.ResponseWriter, status int, text string) {
	wrt.Header().Set("Content-Type", "text/plain; charset=utf-8")
	wrt.WriteHeader(status)
	wrt.Write([]byte(text))
}

func serve404(wrt http.ResponseWriter, req *http.Request) {
	writeError(wrt, http.StatusNotFound, "not found")
}
