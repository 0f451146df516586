/******************************************************************************
 *
 *  Description :
 *
 *  Web server initialization and shutdown.
 *
 *****************************************************************************/

package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"golang.org/x/crypto/acme/autocert"

	"github.com/tinode/anonsub/server/logs"
)

// How long to wait for the in-flight requests to complete on shutdown.
const shutdownTimeout = 5 * time.Second

type tlsConfigType struct {
	// Flag enabling TLS
	Enabled bool `json:"enabled"`
	// Listen on port 80 and redirect plain HTTP to HTTPS
	RedirectHTTP string `json:"http_redirect"`
	// Enable Strict-Transport-Security by setting max_age > 0
	StrictMaxAge int `json:"strict_max_age"`
	// ACME autocert config, e.g. letsencrypt.org
	Autocert *tlsAutocertConfig `json:"autocert"`
	// If Autocert is not defined, provide file names of static certificate and key
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
}

type tlsAutocertConfig struct {
	// Domains to support by autocert
	Domains []string `json:"domains"`
	// Name of directory where auto-certificates are cached, e.g. /etc/letsencrypt/live/your-domain-here
	CertCache string `json:"cache"`
	// Contact email for letsencrypt
	Email string `json:"email"`
}

func parseTLSConfig(tlsEnabled bool, jsconfig string) (*tls.Config, *tlsConfigType, error) {
	var config tlsConfigType

	if jsconfig != "" {
		if err := json.Unmarshal([]byte(jsconfig), &config); err != nil {
			return nil, nil, errors.New("http: failed to parse tls config: " + err.Error() + "(" + jsconfig + ")")
		}
	}

	if !tlsEnabled && !config.Enabled {
		return nil, &config, nil
	}

	if config.StrictMaxAge > 0 {
		globals.tlsStrictMaxAge = strconv.Itoa(config.StrictMaxAge)
	}

	if config.Autocert != nil {
		certManager := autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(config.Autocert.Domains...),
			Cache:      autocert.DirCache(config.Autocert.CertCache),
			Email:      config.Autocert.Email,
		}
		if config.CertFile != "" || config.KeyFile != "" {
			logs.Warn.Println("HTTP server: using autocert, static cert and key files are ignored")
			config.CertFile = ""
			config.KeyFile = ""
		}
		return certManager.TLSConfig(), &config, nil
	}

	if config.CertFile == "" || config.KeyFile == "" {
		return nil, nil, errors.New("HTTP server: missing certificate or key file names")
	}

	return &tls.Config{}, &config, nil
}

func listenAndServe(addr string, mux *http.ServeMux, tlsConf string, stop <-chan bool) error {
	tlsConfig, tlsParams, err := parseTLSConfig(false, tlsConf)
	if err != nil {
		return err
	}

	shuttingDown := false

	httpdone := make(chan bool)

	server := &http.Server{
		Handler: handlers.CombinedLoggingHandler(os.Stdout, hstsHandler(mux)),
		Addr:    addr,
	}

	server.TLSConfig = tlsConfig

	go func() {
		var err error
		if server.TLSConfig != nil {
			// If port is not specified, use default https port (443),
			// otherwise it will default to 80
			if server.Addr == "" {
				server.Addr = ":https"
			}

			if tlsParams.RedirectHTTP != "" {
				logs.Info.Printf("Redirecting connections from HTTP at [%s] to HTTPS at [%s]",
					tlsParams.RedirectHTTP, server.Addr)

				// This is a second HTTP server listening on a different port.
				go http.ListenAndServe(tlsParams.RedirectHTTP, tlsRedirect(addr))
			}

			logs.Info.Printf("Listening for client HTTPS connections on [%s]", server.Addr)
			err = server.ListenAndServeTLS(tlsParams.CertFile, tlsParams.KeyFile)
		} else {
			logs.Info.Printf("Listening for client HTTP connections on [%s]", server.Addr)
			err = server.ListenAndServe()
		}
		if err != nil {
			if shuttingDown {
				logs.Info.Println("HTTP server: stopped")
			} else {
				logs.Err.Println("HTTP server: failed", err)
			}
		}
		httpdone <- true
	}()

	// Wait for either a termination signal or an error
	select {
	case <-stop:
		// Flip the flag that we are terminating and close the Accept-ing socket, so no new connections are possible.
		shuttingDown = true
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			// failure/timeout shutting down the server gracefully
			logs.Err.Println("HTTP server failed to terminate gracefully", err)
		}

		// Wait for http server to stop Accept()-ing connections.
		<-httpdone

	case <-httpdone:
	}

	return nil
}

func signalHandler() <-chan bool {
	stop := make(chan bool)

	signchan := make(chan os.Signal, 1)
	signal.Notify(signchan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		// Wait for a signal. Don't care which signal it is
		sig := <-signchan
		logs.Info.Printf("Signal received: '%s', shutting down", sig)
		stop <- true
	}()

	return stop
}

// Wrapper for http.Handler which optionally adds a Strict-Transport-Security to the response.
func hstsHandler(handler http.Handler) http.Handler {
	if globals.tlsStrictMaxAge != "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Strict-Transport-Security", "max-age="+globals.tlsStrictMaxAge)
			handler.ServeHTTP(w, r)
		})
	}
	return handler
}

// Redirect HTTP requests to HTTPS
func tlsRedirect(toPort string) http.HandlerFunc {
	if toPort == ":443" || toPort == ":https" {
		toPort = ""
	} else if toPort != "" && toPort[:1] == ":" {
		// Strip leading colon. JoinHostPort will add it back.
		toPort = toPort[1:]
	}

	return func(wrt http.ResponseWriter, req *http.Request) {
		host, _, err := net.SplitHostPort(req.Host)
		if err != nil {
			// Port is not specified.
			host = req.Host
		}
		if toPort != "" {
			host = net.JoinHostPort(host, toPort)
		}
		target := "https://" + host + req.URL.Path
		if req.URL.RawQuery != "" {
			target += "?" + req.URL.RawQuery
		}
		http.Redirect(wrt, req, target, http.StatusTemporaryRedirect)
	}
}
