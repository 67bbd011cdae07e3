package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/byteai/builder/pkg/logger"
)

const (
	e2bAppDir   = "/home/user/app"
	e2bEnvdPort = 49983
	e2bUser     = "user"
)

// E2BProvider talks to the E2B control plane for lifecycle and to the
// in-sandbox envd daemon for files and processes.
type E2BProvider struct {
	cfg    E2BConfig
	client *http.Client
	port   int
	log    *slog.Logger

	mu          sync.Mutex
	sandboxID   string
	accessToken string
}

// NewE2BProvider returns an unbound E2B client. Empty config fields take the
// documented defaults.
func NewE2BProvider(cfg E2BConfig, client *http.Client, port int, log *slog.Logger) *E2BProvider {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.e2b.app"
	}
	if cfg.Domain == "" {
		cfg.Domain = "e2b.app"
	}
	if cfg.Template == "" {
		cfg.Template = "base"
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
	return &E2BProvider{cfg: cfg, client: client, port: port, log: log}
}

func (p *E2BProvider) Kind() Kind { return KindE2B }

type e2bCreateRequest struct {
	TemplateID string `json:"templateID"`
	Timeout    int    `json:"timeout,omitempty"`
	Secure     bool   `json:"secure"`
}

type e2bSandbox struct {
	SandboxID       string `json:"sandboxID"`
	ClientID        string `json:"clientID"`
	EnvdVersion     string `json:"envdVersion"`
	EnvdAccessToken string `json:"envdAccessToken"`
}

func (p *E2BProvider) apiHeader() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", p.cfg.APIKey)
	return h
}

func (p *E2BProvider) CreateSandbox(ctx context.Context) (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := e2bCreateRequest{
		TemplateID: p.cfg.Template,
		Timeout:    int(p.cfg.Timeout.Seconds()),
		Secure:     true,
	}
	var sbx e2bSandbox
	if err := callJSON(ctx, p.client, http.MethodPost, p.cfg.APIURL+"/sandboxes", p.apiHeader(), req, &sbx); err != nil {
		return Info{}, err
	}
	if sbx.SandboxID == "" {
		return Info{}, errors.New("e2b: response without sandbox id")
	}
	p.sandboxID = sbx.SandboxID
	p.accessToken = sbx.EnvdAccessToken

	return Info{
		SandboxID: sbx.SandboxID,
		URL:       fmt.Sprintf("https://%d-%s.%s", p.port, sbx.SandboxID, p.cfg.Domain),
		Provider:  KindE2B,
	}, nil
}

func (p *E2BProvider) SetupViteApp(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sandboxID == "" {
		return ErrInvalidTransition
	}
	s := viteScaffold(p.port)
	for _, rel := range s.paths() {
		if err := p.writeFile(ctx, path.Join(e2bAppDir, rel), s.files[rel]); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	if err := p.run(ctx, s.install, e2bAppDir); err != nil {
		return err
	}
	// envd returns once bash exits; the dev server keeps running detached.
	return p.run(ctx, "nohup "+s.start+" > /tmp/vite.log 2>&1 &", e2bAppDir)
}

func (p *E2BProvider) Terminate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sandboxID == "" {
		return nil
	}
	endpoint := p.cfg.APIURL + "/sandboxes/" + url.PathEscape(p.sandboxID)
	err := callJSON(ctx, p.client, http.MethodDelete, endpoint, p.apiHeader(), nil, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	p.sandboxID = ""
	p.accessToken = ""
	return nil
}

func (p *E2BProvider) envdURL() string {
	if p.cfg.EnvdURL != "" {
		return strings.TrimRight(p.cfg.EnvdURL, "/")
	}
	return fmt.Sprintf("https://%d-%s.%s", e2bEnvdPort, p.sandboxID, p.cfg.Domain)
}

func (p *E2BProvider) envdRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if p.accessToken != "" {
		req.Header.Set("X-Access-Token", p.accessToken)
	}
	return req, nil
}

func (p *E2BProvider) writeFile(ctx context.Context, filePath, content string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", path.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(fw, content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	q := url.Values{"path": {filePath}, "username": {e2bUser}}
	req, err := p.envdRequest(ctx, http.MethodPost, p.envdURL()+"/files?"+q.Encode(), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return send(p.client, req, nil)
}

type envdStartRequest struct {
	Process envdProcess `json:"process"`
}

type envdProcess struct {
	Cmd  string            `json:"cmd"`
	Args []string          `json:"args"`
	Envs map[string]string `json:"envs,omitempty"`
	Cwd  string            `json:"cwd,omitempty"`
}

type envdEvent struct {
	Event struct {
		Data *struct {
			Stdout []byte `json:"stdout"`
			Stderr []byte `json:"stderr"`
		} `json:"data"`
		End *struct {
			ExitCode int    `json:"exitCode"`
			Exited   bool   `json:"exited"`
			Status   string `json:"status"`
			Error    string `json:"error"`
		} `json:"end"`
	} `json:"event"`
}

type connectEnd struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// run executes cmd through envd's streaming process API and waits for it to
// exit.
func (p *E2BProvider) run(ctx context.Context, cmd, cwd string) error {
	payload, err := json.Marshal(envdStartRequest{Process: envdProcess{
		Cmd:  "/bin/bash",
		Args: []string{"-l", "-c", cmd},
		Cwd:  cwd,
	}})
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := writeEnvelope(&body, 0, payload); err != nil {
		return err
	}

	req, err := p.envdRequest(ctx, http.MethodPost, p.envdURL()+"/process.Process/Start", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/connect+json")
	req.Header.Set("Connect-Protocol-Version", "1")
	req.SetBasicAuth(e2bUser, "")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}

	var stderr bytes.Buffer
	for {
		flags, msg, err := readEnvelope(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %q: stream ended early: %w", ErrCommandFailed, cmd, err)
		}
		if flags&envelopeEndStream != 0 {
			var end connectEnd
			if err := json.Unmarshal(msg, &end); err == nil && end.Error != nil {
				return fmt.Errorf("%w: %q: %s: %s", ErrCommandFailed, cmd, end.Error.Code, end.Error.Message)
			}
			return fmt.Errorf("%w: %q: no exit event", ErrCommandFailed, cmd)
		}

		var ev envdEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrCommandFailed, cmd, err)
		}
		if d := ev.Event.Data; d != nil && len(d.Stderr) > 0 && stderr.Len() < maxErrorBody {
			stderr.Write(d.Stderr)
		}
		if end := ev.Event.End; end != nil {
			if end.ExitCode != 0 || end.Error != "" {
				return fmt.Errorf("%w: %q exited with %d: %s", ErrCommandFailed, cmd, end.ExitCode,
					strings.TrimSpace(stderr.String()+" "+end.Error))
			}
			p.log.DebugContext(ctx, "sandbox command finished",
				logger.SandboxID(p.sandboxID), slog.String("cmd", cmd))
			return nil
		}
	}
}
