package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nichecast/internal/config"
	"nichecast/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoContent is returned when there is nothing to rewrite. It is a
// validation failure: no provider call is made and no entity mutated.
var ErrNoContent = errors.New("no content to rewrite")

// Hard output ceilings per platform. Enforced by truncation, not just
// requested in the prompt.
const (
	MaxAuthorityRunes = 280
	MaxInstagramRunes = 2200
	MaxLinkedInRunes  = 3000
)

// Captions holds the two platform variants of a rewritten post.
type Captions struct {
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
}

// Rewriter defines the text-generation interface used by the curator
// and the editor worker.
type Rewriter interface {
	// RewriteWithAuthority rewrites a news candidate in the niche's
	// tone. Provider failure is masked with a deterministic derived
	// caption; callers never see a hard failure from a degraded
	// provider.
	RewriteWithAuthority(ctx context.Context, title, content string, niche model.Niche) (string, error)
	// GenerateCaptions produces the Instagram/LinkedIn caption pair
	// from raw content. Empty content yields ErrNoContent before any
	// provider call; provider failure falls back deterministically.
	GenerateCaptions(ctx context.Context, title, contentRaw string) (Captions, error)
}

// OpenAIClient implements Rewriter using the Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	return &OpenAIClient{client: c, model: cfg.Model}, nil
}

var toneGuide = map[string]string{
	"profissional": "tom profissional e confiável, como um especialista do setor",
	"autoridade":   "tom de autoridade absoluta, como o maior expert do mercado",
	"informal":     "tom amigável e acessível, como um colega de profissão",
	"tecnico":      "tom técnico e preciso, com dados e análises detalhadas",
}

func (o *OpenAIClient) RewriteWithAuthority(ctx context.Context, title, content string, niche model.Niche) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	tone, ok := toneGuide[niche.Tone]
	if !ok {
		tone = toneGuide["profissional"]
	}
	sys := fmt.Sprintf(`Você é um especialista em %s. Reescreva notícias com %s.

Regras:
- Máximo 280 caracteres para o texto principal
- Adicione sua análise e opinião de especialista
- Use emojis relevantes
- Não inclua links no texto
- Escreva como se fosse postar no LinkedIn/Instagram`, niche.Name, tone)
	user := fmt.Sprintf("Notícia: %s\n\nResumo: %s\n\nReescreva com autoridade:", title, content)

	out, err := o.create(ctx, sys, user, false)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			slog.Warn("openai: rewrite degraded, using derived caption", "err", err)
		}
		return derivedCaption(title, content), nil
	}
	return truncateRunes(strings.TrimSpace(out), MaxAuthorityRunes), nil
}

const editorSystemPrompt = `Você é um redator de elite especializado em conteúdo de tecnologia.

ESTILO DE VOZ:
- Direta e objetiva, sem rodeios
- Profissional mas acessível
- Sem clichês ou jargões batidos
- Minimalista - cada palavra conta
- Tom confiante mas não arrogante

REGRAS:
1. Nunca use "revolucionário", "disruptivo", "game-changer"
2. Evite emojis em excesso (máximo 2 por post)
3. Foque no impacto real da notícia
4. Mantenha a autenticidade`

func (o *OpenAIClient) GenerateCaptions(ctx context.Context, title, contentRaw string) (Captions, error) {
	if strings.TrimSpace(contentRaw) == "" {
		return Captions{}, ErrNoContent
	}
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	user := fmt.Sprintf(`Baseado nesta notícia, gere:

1. CAPTION INSTAGRAM (máx 2200 chars): Hook forte, conteúdo relevante, CTA sutil
2. COPY LINKEDIN (máx 3000 chars): Tom mais profissional, insights de mercado

NOTÍCIA:
%s

Responda em JSON:
{"instagram": "...", "linkedin": "..."}`, contentRaw)

	out, err := o.create(ctx, editorSystemPrompt, user, true)
	if err != nil {
		slog.Warn("openai: caption generation degraded, using derived captions", "err", err)
		return fallbackCaptions(title, contentRaw), nil
	}
	var caps Captions
	if err := json.Unmarshal([]byte(out), &caps); err != nil || caps.Instagram == "" || caps.LinkedIn == "" {
		slog.Warn("openai: caption payload unusable, using derived captions", "err", err)
		return fallbackCaptions(title, contentRaw), nil
	}
	caps.Instagram = truncateRunes(caps.Instagram, MaxInstagramRunes)
	caps.LinkedIn = truncateRunes(caps.LinkedIn, MaxLinkedInRunes)
	return caps, nil
}

func (o *OpenAIClient) create(ctx context.Context, system, user string, jsonOut bool) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
		defer cancel()
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.7,
	}
	if jsonOut {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// derivedCaption is the deterministic degraded-service fallback: title
// plus a truncated summary.
func derivedCaption(title, content string) string {
	return truncateRunes(fmt.Sprintf("📰 %s\n\n%s...", title, truncateRunes(content, 200)), MaxAuthorityRunes)
}

func fallbackCaptions(title, contentRaw string) Captions {
	base := fmt.Sprintf("📰 %s\n\n%s", title, contentRaw)
	return Captions{
		Instagram: truncateRunes(base, MaxInstagramRunes),
		LinkedIn:  truncateRunes(base, MaxLinkedInRunes),
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
