package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a client certificate pair. The current pair is
// served per handshake through GetClientCertificate, so rotated
// certificates apply to new connections without a restart.
type Watcher struct {
	certFile string
	keyFile  string
	log      *slog.Logger

	cert atomic.Pointer[tls.Certificate]

	debounce   time.Duration
	reloadMu   sync.Mutex
	lastReload time.Time

	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// WithDebounce sets the minimum interval between reloads. Editors and
// rotation tools often touch the files several times in a burst.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher loads the initial pair and prepares the watcher.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		log:      slog.Default(),
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial keypair load: %w", err)
	}
	return w, nil
}

// GetClientCertificate is the tls.Config hook returning the current
// pair.
func (w *Watcher) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return w.cert.Load(), nil
}

// ClientTLS builds a client TLS configuration that trusts pool and
// presents the watched certificate pair.
func (w *Watcher) ClientTLS(pool *Pool, serverName string) *tls.Config {
	cfg := pool.ClientTLS(serverName)
	cfg.GetClientCertificate = w.GetClientCertificate
	return cfg
}

// Start watches the certificate directories and reloads on changes.
// It blocks until Stop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	w.fsw = fsw
	defer fsw.Close()

	// Watch directories, not files, to survive rename-style rotation.
	certDir := filepath.Dir(w.certFile)
	if err := fsw.Add(certDir); err != nil {
		return fmt.Errorf("tlsroots: watch %s: %w", certDir, err)
	}
	if keyDir := filepath.Dir(w.keyFile); keyDir != certDir {
		if err := fsw.Add(keyDir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", keyDir, err)
		}
	}

	certBase := filepath.Base(w.certFile)
	keyBase := filepath.Base(w.keyFile)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if err := w.maybeReload(); err != nil {
				w.log.Error("client certificate reload failed", "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("certificate watcher error", "error", err)
		case <-w.done:
			return nil
		}
	}
}

// Stop terminates Start.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.done) })
}

func (w *Watcher) maybeReload() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if time.Since(w.lastReload) < w.debounce {
		return nil
	}
	if err := w.reload(); err != nil {
		return err
	}
	w.lastReload = time.Now()
	w.log.Info("client certificate reloaded", "cert_file", w.certFile)
	return nil
}

func (w *Watcher) reload() error {
	pair, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return err
	}
	w.cert.Store(&pair)
	return nil
}
