package sandbox

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/byteai/builder/pkg/logger"
)

const vercelAppDir = "/vercel/sandbox"

// VercelProvider drives the Vercel Sandbox REST API.
type VercelProvider struct {
	cfg       VercelConfig
	client    *http.Client
	port      int
	log       *slog.Logger
	token     string
	teamID    string
	projectID string

	mu        sync.Mutex
	sandboxID string
}

// NewVercelProvider resolves credentials. An OIDC token wins over the static
// token; its owner_id and project_id claims fill a missing team or project.
func NewVercelProvider(cfg VercelConfig, client *http.Client, port int, log *slog.Logger) (*VercelProvider, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.vercel.com"
	}
	if cfg.Runtime == "" {
		cfg.Runtime = "node22"
	}
	if cfg.VCPUs <= 0 {
		cfg.VCPUs = 2
	}
	if client == nil {
		client = http.DefaultClient
	}
	if port <= 0 {
		port = 5173
	}
	if log == nil {
		log = logger.Discard()
	}

	p := &VercelProvider{
		cfg:       cfg,
		client:    client,
		port:      port,
		log:       log,
		token:     cfg.Token,
		teamID:    cfg.TeamID,
		projectID: cfg.ProjectID,
	}
	if cfg.OIDCToken != "" {
		teamID, projectID, err := oidcScope(cfg.OIDCToken)
		if err != nil {
			return nil, err
		}
		p.token = cfg.OIDCToken
		if p.teamID == "" {
			p.teamID = teamID
		}
		if p.projectID == "" {
			p.projectID = projectID
		}
	}
	if p.token == "" || p.teamID == "" || p.projectID == "" {
		return nil, &ConfigError{Provider: KindVercel, Variable: "VERCEL_OIDC_TOKEN"}
	}
	return p, nil
}

// oidcScope reads the team and project the token was issued for. The
// signature is checked by Vercel, not here.
func oidcScope(token string) (string, string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", "", errors.Join(ErrInvalidOIDCToken, err)
	}
	owner, _ := claims["owner_id"].(string)
	project, _ := claims["project_id"].(string)
	return owner, project, nil
}

func (p *VercelProvider) Kind() Kind { return KindVercel }

func (p *VercelProvider) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.token)
	return h
}

func (p *VercelProvider) endpoint(format string, args ...any) string {
	q := url.Values{"teamId": {p.teamID}}
	return p.cfg.APIURL + fmt.Sprintf(format, args...) + "?" + q.Encode()
}

type vercelCreateRequest struct {
	ProjectID string          `json:"projectId"`
	Runtime   string          `json:"runtime"`
	Ports     []int           `json:"ports"`
	Timeout   int64           `json:"timeout,omitempty"`
	Resources vercelResources `json:"resources"`
}

type vercelResources struct {
	VCPUs int `json:"vcpus"`
}

type vercelCreateResponse struct {
	Sandbox struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"sandbox"`
	Routes []struct {
		Port      int    `json:"port"`
		Subdomain string `json:"subdomain"`
		URL       string `json:"url"`
	} `json:"routes"`
}

func (p *VercelProvider) CreateSandbox(ctx context.Context) (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := vercelCreateRequest{
		ProjectID: p.projectID,
		Runtime:   p.cfg.Runtime,
		Ports:     []int{p.port},
		Timeout:   p.cfg.Timeout.Milliseconds(),
		Resources: vercelResources{VCPUs: p.cfg.VCPUs},
	}
	var resp vercelCreateResponse
	if err := callJSON(ctx, p.client, http.MethodPost, p.endpoint("/v1/sandboxes"), p.header(), req, &resp); err != nil {
		return Info{}, err
	}
	if resp.Sandbox.ID == "" {
		return Info{}, errors.New("vercel: response without sandbox id")
	}
	p.sandboxID = resp.Sandbox.ID

	info := Info{SandboxID: resp.Sandbox.ID, Provider: KindVercel}
	for _, r := range resp.Routes {
		if r.Port != p.port {
			continue
		}
		info.URL = r.URL
		if info.URL == "" && r.Subdomain != "" {
			info.URL = "https://" + r.Subdomain + ".vercel.run"
		}
	}
	if info.URL == "" {
		return info, fmt.Errorf("vercel: no route for port %d", p.port)
	}
	return info, nil
}

func (p *VercelProvider) SetupViteApp(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sandboxID == "" {
		return ErrInvalidTransition
	}
	s := viteScaffold(p.port)
	if err := p.writeFiles(ctx, s); err != nil {
		return err
	}
	if err := p.run(ctx, s.install, true); err != nil {
		return err
	}
	return p.run(ctx, s.start, false)
}

func (p *VercelProvider) Terminate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sandboxID == "" {
		return nil
	}
	err := callJSON(ctx, p.client, http.MethodPost,
		p.endpoint("/v1/sandboxes/%s/stop", url.PathEscape(p.sandboxID)), p.header(), nil, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	p.sandboxID = ""
	return nil
}

// writeFiles uploads the scaffold as one gzipped tarball.
func (p *VercelProvider) writeFiles(ctx context.Context, s scaffold) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	now := time.Now()
	for _, rel := range s.paths() {
		content := s.files[rel]
		hdr := &tar.Header{
			Name:    rel,
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint("/v1/sandboxes/%s/fs/write", url.PathEscape(p.sandboxID)), &buf)
	if err != nil {
		return err
	}
	req.Header = p.header()
	req.Header.Set("Content-Type", "application/gzip")
	req.Header.Set("X-Cwd", vercelAppDir)
	return send(p.client, req, nil)
}

type vercelCommandRequest struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Cwd     string            `json:"cwd"`
	Env     map[string]string `json:"env"`
	Sudo    bool              `json:"sudo"`
}

type vercelCommandResponse struct {
	Command struct {
		ID       string `json:"cmdId"`
		ExitCode *int   `json:"exitCode"`
	} `json:"command"`
}

// run starts cmd and, when wait is set, blocks until it exits.
func (p *VercelProvider) run(ctx context.Context, cmd string, wait bool) error {
	req := vercelCommandRequest{
		Command: "bash",
		Args:    []string{"-lc", cmd},
		Cwd:     vercelAppDir,
		Env:     map[string]string{},
	}
	var started vercelCommandResponse
	if err := callJSON(ctx, p.client, http.MethodPost,
		p.endpoint("/v1/sandboxes/%s/cmd", url.PathEscape(p.sandboxID)), p.header(), req, &started); err != nil {
		return err
	}
	if !wait {
		p.log.DebugContext(ctx, "sandbox command started",
			logger.SandboxID(p.sandboxID), slog.String("cmd", cmd))
		return nil
	}

	endpoint := p.endpoint("/v1/sandboxes/%s/cmd/%s", url.PathEscape(p.sandboxID), url.PathEscape(started.Command.ID)) + "&wait=true"
	var done vercelCommandResponse
	if err := callJSON(ctx, p.client, http.MethodGet, endpoint, p.header(), nil, &done); err != nil {
		return err
	}
	if done.Command.ExitCode == nil {
		return fmt.Errorf("%w: %q: no exit code", ErrCommandFailed, cmd)
	}
	if code := *done.Command.ExitCode; code != 0 {
		return fmt.Errorf("%w: %q exited with %d", ErrCommandFailed, cmd, code)
	}
	return nil
}
