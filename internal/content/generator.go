package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	temperature  = 0.7
	maxTokens    = 500
	systemPrompt = "Du bist ein B2B-Sales-Experte für KI-Automatisierung."
)

// Draft is a generated email, split into subject and body.
type Draft struct {
	Subject string
	Body    string
}

// Prospect carries the lead fields embedded into the instruction.
type Prospect struct {
	Name     string
	Category string
	Location string
}

// FollowupProspect describes a previously contacted lead.
type FollowupProspect struct {
	CompanyName     string
	PreviousSubject string
}

// Settings configures the generator.
type Settings struct {
	APIKey        string
	Model         string
	BaseURL       string
	SenderName    string
	SenderCompany string
}

// Generator produces personalised outreach drafts via chat completions.
// Any transport or parse failure surfaces as an error; callers treat it as
// "skip this lead for this cycle".
type Generator struct {
	model         string
	opts          []option.RequestOption
	senderName    string
	senderCompany string
}

// NewGenerator validates the settings and builds a generator.
func NewGenerator(cfg Settings) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{
		model:         cfg.Model,
		opts:          opts,
		senderName:    cfg.SenderName,
		senderCompany: cfg.SenderCompany,
	}, nil
}

// Generate builds the first-contact draft for a prospect.
func (g *Generator) Generate(ctx context.Context, p Prospect) (Draft, error) {
	location := p.Location
	if location == "" {
		location = "Neukölln, Berlin"
	}
	category := p.Category
	if category == "" {
		category = "Unbekannt"
	}

	prompt := fmt.Sprintf(`Erstelle eine personalisierte B2B-E-Mail für folgendes Unternehmen:

Firmenname: %s
Branche: %s
Standort: %s

Die E-Mail soll:
1. Professionell und auf Augenhöhe sein
2. Konkrete Automatisierungspotenziale nennen (Rechnungsverarbeitung, Kundenkommunikation)
3. Zeitersparnis und Kostenreduktion betonen
4. Klare Call-to-Action: kostenloses 30-Min-Erstgespräch
5. Maximal 150 Wörter
6. Format: BETREFF: ... | BODY: ...

Absender: %s von %s, IT-Dienstleister für KI-Automatisierung`,
		p.Name, category, location, g.senderName, g.senderCompany)

	return g.complete(ctx, prompt)
}

// GenerateFollowup builds a short, non-pushy follow-up draft.
func (g *Generator) GenerateFollowup(ctx context.Context, p FollowupProspect) (Draft, error) {
	prompt := fmt.Sprintf(`Erstelle eine kurze Follow-up E-Mail für %s.
Erste E-Mail hatte Betreff: %s

Follow-up soll:
- Kurz sein (max 80 Wörter)
- Konkreten Mehrwert bieten (z.B. kostenloser KI-Potenzial-Check)
- Nicht aufdringlich wirken
Format: BETREFF: ... | BODY: ...`, p.CompanyName, p.PreviousSubject)

	return g.complete(ctx, prompt)
}

func (g *Generator) complete(ctx context.Context, prompt string) (Draft, error) {
	client := openai.NewClient(g.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return Draft{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Draft{}, errors.New("chat completion: empty choices")
	}

	return ParseDraft(resp.Choices[0].Message.Content), nil
}

// ParseDraft splits a reply on the first "|" into subject and body,
// stripping the BETREFF/BODY labels. When the delimiter is absent the whole
// reply is used as body and the subject falls back to the full first segment.
func ParseDraft(content string) Draft {
	parts := strings.SplitN(content, "|", 2)
	subject := strings.TrimSpace(strings.Replace(parts[0], "BETREFF:", "", 1))
	body := content
	if len(parts) > 1 {
		body = strings.TrimSpace(strings.Replace(parts[1], "BODY:", "", 1))
	}
	return Draft{Subject: subject, Body: body}
}
