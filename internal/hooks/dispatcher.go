package hooks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/sslbind"
)

// Outcome classifies what Dispatch did with an event.
type Outcome int

const (
	// OutcomeHandled means a subscribed handler ran to completion.
	OutcomeHandled Outcome = iota

	// OutcomeIgnored means the event was dropped on purpose: no handler,
	// or a payload the handler refused. Never an error.
	OutcomeIgnored

	// OutcomeFailed means a handler hit unrecoverable I/O. The event may
	// be retried.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Descriptor describes one subscribed hook for panel registration.
type Descriptor struct {
	Category string `json:"category"`
	Event    string `json:"event"`
	Stage    string `json:"stage"`
	ExecType string `json:"exectype"`
	Hook     string `json:"hook"`
}

// subscriptions lists the events the agent handles, in the order Describe
// reports them. Keys here must match the dispatcher's handler table.
var subscriptions = []string{
	"Accounts::Create",
	"Accounts::Remove",
	"SSL::installssl",
}

// Describe returns the static descriptor list for hookCmd. It reads no
// configuration and touches no state.
func Describe(hookCmd string) []Descriptor {
	descriptors := make([]Descriptor, 0, len(subscriptions))
	for _, key := range subscriptions {
		category, name, _ := strings.Cut(key, "::")
		descriptors = append(descriptors, Descriptor{
			Category: category,
			Event:    name,
			Stage:    "post",
			ExecType: "binary",
			Hook:     hookCmd,
		})
	}
	return descriptors
}

type handlerFunc func(ctx context.Context, event LifecycleEvent) error

// Dispatcher routes lifecycle events to registry mutations, one event at a
// time.
type Dispatcher struct {
	repo     *registry.Repository
	ssl      *sslbind.Synchronizer
	reloader sslbind.Reloader
	log      logger.Logger

	mx       sync.Mutex
	handlers map[string]handlerFunc
}

// NewDispatcher creates a dispatcher. reloader receives the best-effort
// reload after a mutating Accounts event and may be nil; the SSL handler
// leaves reloading to the Synchronizer.
func NewDispatcher(repo *registry.Repository, ssl *sslbind.Synchronizer, reloader sslbind.Reloader, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NilLogger{}
	}

	d := &Dispatcher{
		repo:     repo,
		ssl:      ssl,
		reloader: reloader,
		log:      log,
	}
	d.handlers = map[string]handlerFunc{
		"Accounts::Create": d.handleAccountCreate,
		"Accounts::Remove": d.handleAccountRemove,
		"SSL::installssl":  d.handleInstallSSL,
	}
	return d
}

// Dispatch handles one event. Unknown events and refused payloads come back
// as OutcomeIgnored with a nil error; only registry I/O and lock timeouts
// fail the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, event LifecycleEvent) (Outcome, error) {
	d.mx.Lock()
	defer d.mx.Unlock()

	handler, ok := d.handlers[event.Key()]
	if !ok {
		d.log.Warning("hooks: %v", errors.UnknownEvent(event.Category, event.Name))
		return OutcomeIgnored, nil
	}

	d.log.Debug("hooks: handling %s", event.Key())
	err := handler(ctx, event)
	if err == nil {
		return OutcomeHandled, nil
	}

	switch errors.Code(err) {
	case errors.ErrCodeIO, errors.ErrCodeLockTimeout:
		return OutcomeFailed, err
	default:
		d.log.Warning("hooks: ignoring %s: %v", event.Key(), err)
		return OutcomeIgnored, nil
	}
}

// accountPayload carries the fields the Accounts handlers consume. The
// panel sends many more; everything else is ignored.
type accountPayload struct {
	User    string `mapstructure:"user"`
	Domain  string `mapstructure:"domain"`
	HomeDir string `mapstructure:"homedir"`
	DocRoot string `mapstructure:"docroot"`
}

func (d *Dispatcher) handleAccountCreate(ctx context.Context, event LifecycleEvent) error {
	var payload accountPayload
	if err := mapstructure.Decode(event.Data, &payload); err != nil {
		return errors.Validation(fmt.Sprintf("invalid %s payload: %v", event.Key(), err))
	}
	if payload.Domain == "" {
		return errors.Validation("event payload has no domain")
	}

	root := payload.DocRoot
	if root == "" && payload.HomeDir != "" {
		root = filepath.Join(payload.HomeDir, "public_html")
	}
	if root == "" && payload.User != "" {
		root = filepath.Join("/home", payload.User, "public_html")
	}

	created, err := d.repo.AddOrUpdate(ctx, registry.Record{Domain: payload.Domain, Root: root})
	if err != nil {
		return err
	}

	if created {
		d.log.Info("hooks: registered vhost %s at %s", payload.Domain, root)
	} else {
		d.log.Info("hooks: updated vhost %s", payload.Domain)
	}
	d.reload(ctx)
	return nil
}

func (d *Dispatcher) handleAccountRemove(ctx context.Context, event LifecycleEvent) error {
	var payload accountPayload
	if err := mapstructure.Decode(event.Data, &payload); err != nil {
		return errors.Validation(fmt.Sprintf("invalid %s payload: %v", event.Key(), err))
	}

	// The account's vhosts live under its home. Matching stays a raw
	// prefix, so /home/bob also catches /home/bob2; see the registry
	// package for the trade-off.
	prefix := payload.HomeDir
	if prefix == "" && payload.User != "" {
		prefix = filepath.Join("/home", payload.User)
	}
	if payload.Domain == "" && prefix == "" {
		return errors.Validation("event payload has no domain, homedir or user")
	}

	removed := 0
	err := d.repo.Update(ctx, func(reg *registry.Registry) error {
		if payload.Domain != "" && reg.Remove(payload.Domain) {
			removed++
		}
		if prefix != "" {
			removed += reg.RemoveByRootPrefix(prefix)
		}
		if removed == 0 {
			return registry.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if removed == 0 {
		d.log.Debug("hooks: nothing to remove for %s", event.Key())
		return nil
	}

	d.log.Info("hooks: removed %d vhost(s) for account %s", removed, payload.User)
	d.reload(ctx)
	return nil
}

// sslPayload carries the fields of an SSL::installssl event.
type sslPayload struct {
	Domain   string `mapstructure:"domain"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
}

func (d *Dispatcher) handleInstallSSL(ctx context.Context, event LifecycleEvent) error {
	var payload sslPayload
	if err := mapstructure.Decode(event.Data, &payload); err != nil {
		return errors.Validation(fmt.Sprintf("invalid %s payload: %v", event.Key(), err))
	}

	// The synchronizer owns validation, the unknown-domain no-op and the
	// post-bind reload.
	_, err := d.ssl.Bind(ctx, payload.Domain, payload.CertPath, payload.KeyPath)
	return err
}

// reload issues the post-mutation best-effort reload.
func (d *Dispatcher) reload(ctx context.Context) {
	if d.reloader == nil {
		return
	}
	if err := d.reloader.Reload(ctx); err != nil {
		d.log.Warning("hooks: reload after mutation failed: %v", err)
	}
}
