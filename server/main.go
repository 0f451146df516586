/******************************************************************************
 *
 *  Description :
 *
 *  Setup & initialization.
 *
 *****************************************************************************/

package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/common/version"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/mailer"
	"github.com/tinode/anonsub/server/store"
	"github.com/tinode/anonsub/server/subscr"

	// Mail transports
	_ "github.com/tinode/anonsub/server/mailer/ses"
	_ "github.com/tinode/anonsub/server/mailer/smtp"
	_ "github.com/tinode/anonsub/server/mailer/stdout"

	// Email validator
	_ "github.com/tinode/anonsub/server/validate/email"
)

const (
	// Base URL path for serving the API.
	defaultApiPath = "/v0/"

	// Default path of the metrics endpoint.
	defaultMetricsPath = "/metrics"

	// Name of the email validator.
	validatorName = "email"

	programName = "anonsub"
)

var globals struct {
	// Subscription registry.
	registry *subscr.Registry
	// Salt for signing API keys of the host forum.
	apiKeySalt []byte
	// Origin allowed to fetch the form fragment.
	siteURL string
	// Strict-Transport-Security max age, if set.
	tlsStrictMaxAge string
	// Prometheus counters.
	stats *promStats
}

type configType struct {
	// HTTP(S) address:port to listen on for incoming requests, e.g. ":6060".
	Listen string `json:"listen"`
	// Base URL path where the API is served. Default is "/v0/".
	ApiPath string `json:"api_path"`
	// Salt used in signing API keys, base64 encoded. Empty to accept events without a key.
	APIKeySalt []byte `json:"api_key_salt"`
	// TLS configuration, optional.
	TLS json.RawMessage `json:"tls"`
	// Name of the forum, used in email subjects and sender names.
	SiteName string `json:"site_name"`
	// URL of the forum.
	SiteURL string `json:"site_url"`
	// Address used to send notifications.
	NoReply string `json:"no_reply"`
	// Enable notifications.
	Enabled bool `json:"enabled"`
	// Send notifications one by one instead of a single message with everyone in Bcc.
	Personalize bool `json:"personalize"`
	// Language of notifications.
	DefaultLang string `json:"default_lang"`
	// Optional template of the notification body.
	MessageTempl string `json:"message_templ"`
	// Maximum length of reply excerpts in notifications. Zero to include the full reply.
	MaxContentLength int `json:"max_content_length"`
	// Path of the metrics endpoint. "-" disables metrics.
	MetricsPath string `json:"metrics_path"`
	// Path for serving profiling data, i.e. "/debug/pprof". Disabled when empty.
	PprofPath string `json:"pprof_url"`
	// Key for encrypting Message-ID values of notifications: 16 random bytes, base64 encoded.
	// Message-ID headers are added only when the key is set.
	MsgIdKey []byte `json:"msgid_key"`
	// Worker ID used in Message-ID generation, unique for every instance sharing the key.
	WorkerID int `json:"worker_id"`
	// Configs for subsystems.
	StoreConfig json.RawMessage `json:"store_config"`
	Mailer      json.RawMessage `json:"mailer"`
	Validator   json.RawMessage `json:"validator"`
}

func main() {
	executable, _ := os.Executable()

	var configfile = flag.String("config", "anonsub.conf", "Path to config file.")
	var listenOn = flag.String("listen", "", "Override address and port to listen on for HTTP(S) clients.")
	var logFlags = flag.String("log_flags", "stdFlags", "Comma-separated list of log flags (as defined in https://golang.org/pkg/log/#pkg-constants without the L prefix)")
	var printVersion = flag.Bool("version", false, "Print version and exit.")
	flag.Parse()

	if *printVersion {
		os.Stdout.WriteString(version.Print(programName) + "\n")
		return
	}

	logs.Init(os.Stderr, *logFlags)

	logs.Info.Printf("Server v%s:%s pid=%d, %d process(es)", version.Version, executable, os.Getpid(),
		runtime.GOMAXPROCS(runtime.NumCPU()))

	*configfile = toAbsolutePath(rootpath(executable), *configfile)
	logs.Info.Printf("Using config from '%s'", *configfile)

	config, err := readConfig(*configfile)
	if err != nil {
		logs.Err.Fatal(err)
	}

	if *listenOn != "" {
		config.Listen = *listenOn
	}

	globals.apiKeySalt = config.APIKeySalt
	if len(globals.apiKeySalt) == 0 {
		logs.Warn.Println("api_key_salt is not set, reply events are accepted without an API key")
	}

	if config.SiteURL != "" {
		if globals.siteURL, err = validateSiteURL(config.SiteURL); err != nil {
			logs.Err.Fatal("Invalid site_url: ", err)
		}
	}

	err = store.Store.Open(config.StoreConfig)
	logs.Info.Println("DB adapter", store.Store.GetAdapterName())
	if err != nil {
		logs.Err.Fatal("Failed to connect to DB: ", err)
	}
	defer func() {
		store.Store.Close()
		logs.Info.Println("Closed database connection(s)")
	}()

	validator := store.Store.GetValidator(validatorName)
	var vconf string
	if len(config.Validator) > 0 {
		vconf = string(config.Validator)
	}
	if err = validator.Init(vconf); err != nil {
		logs.Err.Fatal("Failed to init email validator: ", err)
	}

	if len(config.Mailer) > 0 {
		name, err := mailer.Init(config.Mailer)
		if err != nil {
			logs.Err.Fatal("Failed to initialize mail transport: ", err)
		}
		if name != "" {
			logs.Info.Println("Mail transport", name)
		} else {
			logs.Warn.Println("No mail transport enabled, notifications will be dropped")
		}
	}
	defer mailer.Stop()

	if len(config.MsgIdKey) > 0 {
		if err = mailer.InitMessageIds(uint(config.WorkerID), config.MsgIdKey, domainOf(config.NoReply)); err != nil {
			logs.Err.Fatal("Failed to initialize Message-ID generator: ", err)
		}
	}

	mux := http.NewServeMux()

	metricsPath := config.MetricsPath
	if metricsPath == "" {
		metricsPath = defaultMetricsPath
	}
	globals.stats = statsInit(mux, metricsPath)
	servePprof(mux, config.PprofPath)

	if config.MessageTempl != "" {
		config.MessageTempl = toAbsolutePath(rootpath(executable), config.MessageTempl)
	}

	var stats subscr.Stats
	if globals.stats != nil {
		stats = globals.stats
	}
	globals.registry, err = subscr.New(subscr.Config{
		Enabled:          config.Enabled,
		SiteName:         config.SiteName,
		NoReply:          config.NoReply,
		Personalize:      config.Personalize,
		DefaultLang:      config.DefaultLang,
		MessageTemplFile: config.MessageTempl,
		MaxContentLength: config.MaxContentLength,
	}, store.Subscribers, subscr.StoreForum{}, mailer.Queue{},
		subscr.WithStats(stats),
		subscr.WithValidator(validator))
	if err != nil {
		logs.Err.Fatal("Failed to initialize subscriptions: ", err)
	}

	apiPath := config.ApiPath
	if apiPath == "" {
		apiPath = defaultApiPath
	}
	if !strings.HasPrefix(apiPath, "/") {
		apiPath = "/" + apiPath
	}
	if !strings.HasSuffix(apiPath, "/") {
		apiPath += "/"
	}
	registerHandlers(mux, apiPath, globals.registry)
	logs.Info.Printf("API served from root URL path '%s'", apiPath)

	if err = listenAndServe(config.Listen, mux, string(config.TLS), signalHandler()); err != nil {
		logs.Err.Fatal(err)
	}
	logs.Info.Println("All done, good bye")
}
