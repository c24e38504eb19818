package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veloserve/veloctl/internal/engine"
	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/sslbind"
	"github.com/veloserve/veloctl/internal/status"
	"github.com/veloserve/veloctl/internal/switchover"
)

// Response is the envelope every endpoint answers with. Exactly one of
// Data and Error is set.
type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the agent error code and message of a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Routes holds the handlers for the admin API.
type Routes struct {
	status    *status.Provider
	repo      *registry.Repository
	ssl       *sslbind.Synchronizer
	ctrl      *switchover.Controller
	veloserve engine.Engine
	apache    engine.Engine
	version   string
	log       logger.Logger
}

// NewRoutes creates the admin API handlers.
func NewRoutes(provider *status.Provider, repo *registry.Repository, ssl *sslbind.Synchronizer, ctrl *switchover.Controller, veloserve, apache engine.Engine, version string, log logger.Logger) *Routes {
	if log == nil {
		log = logger.NilLogger{}
	}
	return &Routes{
		status:    provider,
		repo:      repo,
		ssl:       ssl,
		ctrl:      ctrl,
		veloserve: veloserve,
		apache:    apache,
		version:   version,
		log:       log,
	}
}

// Router builds the /api/v1 route tree.
func (rt *Routes) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/status", rt.getStatus)
	r.Get("/vhosts", rt.listVhosts)
	r.Post("/vhosts", rt.createVhost)
	r.Get("/vhosts/{domain}", rt.getVhost)
	r.Delete("/vhosts/{domain}", rt.deleteVhost)
	r.Get("/ssl", rt.listSSL)
	r.Post("/ssl", rt.bindSSL)
	r.Post("/switch", rt.switchService)
	r.Post("/reload", rt.reloadService)

	return r
}

// vhostView is the JSON shape of one registry record.
type vhostView struct {
	Domain            string `json:"domain"`
	Owner             string `json:"owner,omitempty"`
	Root              string `json:"root"`
	Platform          string `json:"platform,omitempty"`
	SSL               bool   `json:"ssl"`
	SSLCertificate    string `json:"ssl_certificate,omitempty"`
	SSLCertificateKey string `json:"ssl_certificate_key,omitempty"`
}

func viewOf(rec registry.Record) vhostView {
	return vhostView{
		Domain:            rec.Domain,
		Owner:             rec.Owner(),
		Root:              rec.Root,
		Platform:          rec.Platform,
		SSL:               rec.HasSSL(),
		SSLCertificate:    rec.SSLCertificate,
		SSLCertificateKey: rec.SSLCertificateKey,
	}
}

func (rt *Routes) health(w http.ResponseWriter, _ *http.Request) {
	rt.writeData(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": rt.version,
	})
}

func (rt *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	rt.writeData(w, http.StatusOK, rt.status.Snapshot(r.Context()))
}

func (rt *Routes) listVhosts(w http.ResponseWriter, r *http.Request) {
	reg, err := rt.repo.Load(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}

	records := reg.Records()
	views := make([]vhostView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewOf(rec))
	}
	rt.writeData(w, http.StatusOK, views)
}

func (rt *Routes) getVhost(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	reg, err := rt.repo.Load(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rec, ok := reg.Get(domain)
	if !ok {
		rt.writeError(w, errors.NotFound(domain))
		return
	}
	rt.writeData(w, http.StatusOK, viewOf(rec))
}

type vhostRequest struct {
	Domain            string `json:"domain"`
	Root              string `json:"root"`
	Platform          string `json:"platform"`
	SSLCertificate    string `json:"ssl_certificate"`
	SSLCertificateKey string `json:"ssl_certificate_key"`
}

func (rt *Routes) createVhost(w http.ResponseWriter, r *http.Request) {
	var req vhostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, errors.Validation("malformed request body"))
		return
	}
	if req.Domain == "" {
		rt.writeError(w, errors.Validation("domain is required"))
		return
	}
	if req.Root == "" {
		rt.writeError(w, errors.Validation("root is required"))
		return
	}

	created, err := rt.repo.AddOrUpdate(r.Context(), registry.Record{
		Domain:            req.Domain,
		Root:              req.Root,
		Platform:          req.Platform,
		SSLCertificate:    req.SSLCertificate,
		SSLCertificateKey: req.SSLCertificateKey,
	})
	if err != nil {
		rt.writeError(w, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	rt.writeData(w, code, map[string]any{
		"domain":  req.Domain,
		"created": created,
	})
}

func (rt *Routes) deleteVhost(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	removed, err := rt.repo.Remove(r.Context(), domain)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if !removed {
		rt.writeError(w, errors.NotFound(domain))
		return
	}
	rt.writeData(w, http.StatusOK, map[string]any{
		"domain":  domain,
		"removed": true,
	})
}

func (rt *Routes) listSSL(w http.ResponseWriter, r *http.Request) {
	bindings, err := rt.ssl.Bindings(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if bindings == nil {
		bindings = []sslbind.Binding{}
	}
	rt.writeData(w, http.StatusOK, bindings)
}

type sslRequest struct {
	Domain   string `json:"domain"`
	CertPath string `json:"cert_path"`
	KeyPath  string `json:"key_path"`
}

func (rt *Routes) bindSSL(w http.ResponseWriter, r *http.Request) {
	var req sslRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, errors.Validation("malformed request body"))
		return
	}

	bound, err := rt.ssl.Bind(r.Context(), req.Domain, req.CertPath, req.KeyPath)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	data := map[string]any{
		"domain": req.Domain,
		"bound":  bound,
	}
	if !bound {
		// Unknown domains are a no-op, not an error. The panel installs
		// certificates for sites we never managed.
		data["note"] = "domain not in registry, nothing to bind"
	}
	rt.writeData(w, http.StatusOK, data)
}

type switchRequest struct {
	Target string `json:"target"`
}

func (rt *Routes) switchService(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, errors.Validation("malformed request body"))
		return
	}

	target, err := switchover.ParseService(req.Target)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	result, err := rt.ctrl.SwitchTo(r.Context(), target)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeData(w, http.StatusOK, result)
}

func (rt *Routes) reloadService(w http.ResponseWriter, r *http.Request) {
	var eng engine.Engine
	state := rt.ctrl.ActiveService(r.Context())
	switch state {
	case switchover.StateVeloServeActive:
		eng = rt.veloserve
	case switchover.StateApacheActive:
		eng = rt.apache
	default:
		rt.writeError(w, errors.Validation("no stable active service to reload"))
		return
	}

	if err := eng.Reload(r.Context()); err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeData(w, http.StatusOK, map[string]any{
		"service":  eng.Name(),
		"reloaded": true,
	})
}

func (rt *Routes) writeData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(Response{OK: true, Data: data}); err != nil {
		rt.log.Error("admin: failed to encode response: %v", err)
	}
}

func (rt *Routes) writeError(w http.ResponseWriter, err error) {
	code := errors.Code(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(code))
	body := Response{OK: false, Error: &ErrorBody{Code: string(code), Message: err.Error()}}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		rt.log.Error("admin: failed to encode error response: %v", encErr)
	}
}

// statusForCode maps agent error codes onto HTTP status codes.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSwitchConflict:
		return http.StatusConflict
	case errors.ErrCodeLockTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
