package analyzer

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodyBytes = 2 << 20

	phraseWeight = 5
)

// Phrases that hint at manual, automatable processes. Each distinct phrase
// found in the page adds a fixed increment.
var manualIndicators = []string{
	"anfrage", "kontaktformular", "telefonisch",
	"manuell", "persönlich", "verwaltung",
}

// Markers for a modern frontend stack.
var modernTech = []string{"react", "vue", "angular", "next.js"}

// Analysis summarises a single website fetch.
type Analysis struct {
	AutomationPotential int
	IsModern            bool
	Length              int
}

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Analyzer fetches a lead's website and derives an automation-potential
// increment. Fetch failures degrade to a zero-value Analysis; they never
// abort the pipeline.
type Analyzer struct {
	client HTTPClient
	logger *zap.Logger
}

// New builds an analyzer with a bounded-timeout HTTP client.
func New(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

// NewWithClient overrides the HTTP client, useful for tests.
func NewWithClient(client HTTPClient, logger *zap.Logger) *Analyzer {
	return &Analyzer{client: client, logger: logger}
}

// Analyze fetches the URL and scans the body for manual-process phrases and
// modern-framework markers. Any failure returns the zero-value Analysis.
func (a *Analyzer) Analyze(url string) Analysis {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		a.debug("invalid website url", url, err)
		return Analysis{}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.debug("website fetch failed", url, err)
		return Analysis{}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		a.debug("website returned error status", url, nil)
		return Analysis{}
	}
	if !textContent(resp.Header.Get("Content-Type")) {
		a.debug("website returned non-text content", url, nil)
		return Analysis{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		a.debug("website body read failed", url, err)
		return Analysis{}
	}

	html := strings.ToLower(string(body))

	result := Analysis{Length: len(html)}
	for _, indicator := range manualIndicators {
		if strings.Contains(html, indicator) {
			result.AutomationPotential += phraseWeight
		}
	}
	for _, tech := range modernTech {
		if strings.Contains(html, tech) {
			result.IsModern = true
			break
		}
	}

	return result
}

func textContent(contentType string) bool {
	if contentType == "" {
		// Plenty of small-business sites omit the header; assume text.
		return true
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

func (a *Analyzer) debug(msg, url string, err error) {
	if a.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("url", url)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	a.logger.Debug(msg, fields...)
}
