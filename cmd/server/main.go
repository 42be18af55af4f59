package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rcarmo/bmpview/internal/config"
	"github.com/rcarmo/bmpview/internal/handler"
	"github.com/rcarmo/bmpview/internal/logging"
)

const (
	appName    = "BMP Viewer"
	appVersion = "v1.0.0"
)

type parsedArgs struct {
	opts        config.LoadOptions
	showHelp    bool
	showVersion bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (parsedArgs, error) {
	fs := flag.NewFlagSet("bmpview", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	hostFlag := fs.String("host", "", "server listen host")
	portFlag := fs.String("port", "", "server listen port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	maxFileSize := fs.Int64("max-file-size", 0, "largest accepted bitmap in bytes")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return parsedArgs{}, err
	}

	return parsedArgs{
		opts: config.LoadOptions{
			Host:        strings.TrimSpace(*hostFlag),
			Port:        strings.TrimSpace(*portFlag),
			LogLevel:    strings.TrimSpace(*logLevelFlag),
			MaxFileSize: *maxFileSize,
		},
		showHelp:    *helpFlag,
		showVersion: *versionFlag,
	}, nil
}

func run(args []string, stdout io.Writer) error {
	parsed, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if parsed.showHelp {
		showHelp(stdout)
		return nil
	}

	if parsed.showVersion {
		showVersion(stdout)
		return nil
	}

	cfg, err := config.LoadWithOverrides(parsed.opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	closeLog, err := setupLogging(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	h, err := handler.New(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	server := createServer(cfg, h)
	logging.Info("starting server on %s:%s (TLS=%t)", cfg.Server.Host, cfg.Server.Port, cfg.Security.EnableTLS)

	return startServer(server, cfg)
}

func createServer(cfg *config.Config, h *handler.Handler) *http.Server {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	mux := http.NewServeMux()
	h.Register(mux)

	next := applySecurityMiddleware(mux, cfg)
	next = requestLoggingMiddleware(next)

	return &http.Server{
		Addr:         addr,
		Handler:      next,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := corsMiddleware(next, cfg.Security.AllowedOrigins)
	return securityHeadersMiddleware(h)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data: blob:; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "X-Image-Width, X-Image-Height")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, host)
	}

	return false
}

// setupLogging applies cfg to the default logger. The returned func closes
// the log file, if any.
func setupLogging(cfg config.LoggingConfig) (func(), error) {
	logging.SetLevelFromString(cfg.Level)
	logging.SetFormat(cfg.Format)

	if cfg.File == "" {
		logging.SetOutput(os.Stderr)
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.SetOutput(f)

	return func() {
		logging.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Info("%s %s %s %d %s", r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func startServer(server *http.Server, cfg *config.Config) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	var err error
	if cfg != nil && cfg.Security.EnableTLS {
		server.TLSConfig = &tls.Config{MinVersion: tlsVersion(cfg.Security.MinTLSVersion)}
		err = server.ListenAndServeTLS(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
	} else {
		err = server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func showHelp(w io.Writer) {
	fmt.Fprintln(w, appName)
	fmt.Fprintln(w, "USAGE: bmpview [options]")
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  -host               Set server listen host (default 0.0.0.0)")
	fmt.Fprintln(w, "  -port               Set server listen port (default 8080)")
	fmt.Fprintln(w, "  -log-level          Set log level (debug, info, warn, error)")
	fmt.Fprintln(w, "  -max-file-size      Largest accepted bitmap in bytes")
	fmt.Fprintln(w, "  -version            Show version information")
	fmt.Fprintln(w, "  -help               Show this help message")
	fmt.Fprintln(w, "ENDPOINTS: GET /healthz, POST /api/decode?format=png|json|rgba, GET /api/view (websocket)")
	fmt.Fprintln(w, "ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, LOG_FORMAT, LOG_FILE,")
	fmt.Fprintln(w, "  MAX_IMAGE_WIDTH, MAX_IMAGE_HEIGHT, MAX_FILE_SIZE, DECODE_TIMEOUT, FRAME_COMPRESSION,")
	fmt.Fprintln(w, "  ALLOWED_ORIGINS, MAX_CONNECTIONS, ENABLE_TLS, TLS_CERT_FILE, TLS_KEY_FILE")
	fmt.Fprintln(w, "EXAMPLES: bmpview -host 0.0.0.0 -port 8080")
}

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", appName, appVersion)
	fmt.Fprintln(w, "Formats: BMP (BITMAPINFOHEADER; 1/4/8/16/24/32 bpp; RGB, RLE8, RLE4, BITFIELDS)")
}
