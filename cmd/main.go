// Entry point: read configuration, wire dependencies and serve. Routes live
// in internal/api.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"field-geo/internal/api"
	"field-geo/internal/drawing"
	"field-geo/internal/enrich"
	"field-geo/internal/fields"
	"field-geo/internal/locate"
	"field-geo/internal/logger"
	"field-geo/internal/metrics"
	"field-geo/internal/middleware"
	"field-geo/internal/migrate"
	"field-geo/internal/region"
	"field-geo/internal/store"
	"field-geo/internal/utils"
	"field-geo/internal/version"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	l.Debug("config_paths", "api_base", apiBase, "ui", ui)

	regionPath := os.Getenv("REGION_DATA_PATH")
	if regionPath == "" {
		regionPath = filepath.Join("data", "regions")
	}
	regions, err := region.Load(regionPath)
	if err != nil {
		l.Warn("region_load_error", "path", regionPath, "err", err)
	} else {
		l.Info("region_load_ok", "path", regionPath, "polygons", len(regions))
	}
	ix := region.NewIndex(regions)

	territory, err := territoryFromEnv(ix)
	if err != nil {
		l.Error("territory_config_error", "err", err)
		os.Exit(1)
	}

	var st fields.Store
	if utils.EnvBool("PERSIST_ENABLED", false) {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	} else {
		l.Info("persist_disabled", "store", "memory")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	em := enrich.NewManager()
	if ep := os.Getenv("ENRICH_SOIL_ENDPOINT"); ep != "" {
		em.Register(enrich.NewSoil(ep))
	}
	if ep := os.Getenv("ENRICH_WEATHER_ENDPOINT"); ep != "" {
		em.Register(enrich.NewWeather(ep))
	}
	var en fields.Enricher
	if em.Len() > 0 {
		if err := em.Start(ctx); err != nil {
			l.Error("enrich_start_error", "err", err)
			os.Exit(1)
		}
		en = em
	} else {
		l.Info("enrich_disabled")
	}

	loc, err := locate.FromEnv()
	if err != nil {
		l.Warn("locate_open_error", "err", err)
	}
	defer loc.Close()

	svc := fields.NewService(fields.NewBuilder(ix), st, en, 0)
	srv := api.New(api.OptionsFromEnv(api.Options{
		Regions:   ix,
		Fields:    svc,
		Locator:   loc,
		Redis:     rc,
		Territory: territory,
	}))

	idle := time.Hour
	if s := os.Getenv("SESSION_IDLE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			idle = time.Duration(n) * time.Second
		}
	}
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1m", func() { srv.SweepIdle(idle) }); err != nil {
		l.Error("session_sweeper_error", "err", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, srv.Routes()))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc(apiBase+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"regions":  ix.Len(),
			"sessions": srv.Sessions(),
			"commit":   version.Commit,
		})
	})
	mux.Handle("/", http.FileServer(http.Dir(ui)))
	// Expose the API base to the drawing UI instead of hard coding it.
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'\n"))
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		svc.Wait()
		l.Info("shutdown_complete")
	}()

	if utils.EnvBool("TLS_ENABLE", false) {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "field-geo.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		if utils.EnvBool("TLS_REDIRECT_ENABLE", false) {
			go serveRedirect(l, addr)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil && err != http.ErrServerClosed {
			l.Error("listen_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		l.Error("listen_error", "err", err)
	}
}

// territoryFromEnv combines TERRITORY_BOUNDS and TERRITORY_REGION_IDS. With
// neither set, drawing is unconstrained.
func territoryFromEnv(ix *region.Index) (drawing.Territory, error) {
	var ts []drawing.Territory
	if s := os.Getenv("TERRITORY_BOUNDS"); s != "" {
		b, err := drawing.ParseBounds(s)
		if err != nil {
			return nil, err
		}
		ts = append(ts, b)
	}
	if s := os.Getenv("TERRITORY_REGION_IDS"); s != "" {
		var ids []string
		for _, id := range strings.Split(s, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		ts = append(ts, drawing.NewRegionTerritory(ix, ids...))
	}
	return drawing.AnyOf(ts...), nil
}

// serveRedirect answers plain HTTP with a permanent redirect to the HTTPS
// listener on TLS_REDIRECT_ADDR (default :80).
func serveRedirect(l *slog.Logger, httpsAddr string) {
	redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
	if redirAddr == "" {
		redirAddr = ":80"
	}
	httpsPort := strings.TrimPrefix(httpsAddr, ":")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		if httpsPort != "" && httpsPort != "443" {
			host += ":" + httpsPort
		}
		target := "https://" + host + r.URL.RequestURI()
		l.Debug("http_redirect", "from", r.Host, "to", target)
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+httpsAddr)
	_ = http.ListenAndServe(redirAddr, h)
}
