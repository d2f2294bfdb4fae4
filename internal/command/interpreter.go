package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/storage"
)

// Store is the entity access the interpreter depends on.
type Store interface {
	FindConnectedInstanceByPhone(ctx context.Context, phone string) (model.Instance, error)
	LatestPendingNews(ctx context.Context, tenantID string) (model.NewsItem, error)
	TransitionNews(ctx context.Context, id string, from, to lifecycle.Status) (model.NewsItem, error)
	ListActiveNiches(ctx context.Context, tenantID string) ([]model.Niche, error)
	TransitionPost(ctx context.Context, id string, to lifecycle.Status, mutate func(*model.Post)) (model.Post, error)
}

// Sender delivers replies back over the tenant's messaging instance.
type Sender interface {
	SendText(ctx context.Context, inst model.Instance, number, text string) error
}

const helpText = "🤖 *Assistente*\n\n" +
	"1️⃣ *Aprovar* - Publicar a notícia\n" +
	"2️⃣ *Ver* - Ver resumo da notícia\n" +
	"3️⃣ *Nichos* - Seus temas monitorados\n" +
	"4️⃣ *Editar* - Pedir mudanças\n\n" +
	"*Clique no número ou escreva o comando.*"

// Interpreter maps normalized webhook events onto entity state
// changes and chat replies. One inbound message is handled start to
// finish before the webhook returns.
type Interpreter struct {
	store  Store
	sender Sender
}

func NewInterpreter(store Store, sender Sender) *Interpreter {
	return &Interpreter{store: store, sender: sender}
}

// Handle runs one event. Errors that would only break the provider's
// acknowledgment loop (reply delivery, lookup glitches mid-reply) are
// logged and swallowed; errors the HTTP caller should see (bad button
// payloads, unknown post ids) are returned.
func (i *Interpreter) Handle(ctx context.Context, ev Event) error {
	if ev.Dialect == DialectButton {
		return i.handleButton(ctx, ev)
	}
	return i.handleText(ctx, ev)
}

// handleButton addresses the embedded post id directly instead of
// "most recent pending".
func (i *Interpreter) handleButton(ctx context.Context, ev Event) error {
	switch ev.Action {
	case "approve":
		_, err := i.store.TransitionPost(ctx, ev.PostID, lifecycle.StatusApproved, nil)
		return err
	case "regenerate":
		// Re-run clears the generated artifacts so the editor and
		// designer fill them again.
		_, err := i.store.TransitionPost(ctx, ev.PostID, lifecycle.StatusEditing, func(p *model.Post) {
			p.CaptionInstagram = ""
			p.CopyLinkedIn = ""
			p.ImageURL = ""
			p.ImagePrompt = ""
		})
		return err
	default:
		return fmt.Errorf("unknown button action %q", ev.Action)
	}
}

func (i *Interpreter) handleText(ctx context.Context, ev Event) error {
	inst, err := i.store.FindConnectedInstanceByPhone(ctx, ev.OwnerPhone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.Warn("command: no instance for owner", "owner", ev.OwnerPhone)
			return nil
		}
		return err
	}
	tenantID := inst.TenantID
	reply := func(text string) {
		if err := i.sender.SendText(ctx, inst, ev.SenderPhone, text); err != nil {
			slog.Error("command: reply send failed", "tenant", tenantID, "err", err)
		}
	}

	switch cmd := ev.Text; {
	case strings.Contains(cmd, "ajuda") || strings.Contains(cmd, "help") || cmd == "?":
		reply(helpText)

	case cmd == "ver" || cmd == "2" || cmd == "noticia":
		item, err := i.store.LatestPendingNews(ctx, tenantID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			reply("📭 Não encontrei nenhuma notícia pendente para você neste momento.")
		case err != nil:
			slog.Error("command: pending lookup failed", "tenant", tenantID, "err", err)
			reply("⚠️ Desculpe, tive um problema técnico ao acessar o banco de dados.")
		default:
			reply(fmt.Sprintf("📰 *NOTÍCIA PENDENTE*\n\n*%s*\n\n%s\n\n---\n*Comando:* Digite *1* para Aprovar.",
				item.Title, item.Summary))
		}

	case cmd == "aprovar" || cmd == "1":
		item, err := i.store.LatestPendingNews(ctx, tenantID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			reply("Não há nada pendente para aprovar. Digite *2* para verificar.")
		case err != nil:
			slog.Error("command: pending lookup failed", "tenant", tenantID, "err", err)
			reply("⚠️ Desculpe, tive um problema técnico ao acessar o banco de dados.")
		default:
			if _, err := i.store.TransitionNews(ctx, item.ID, lifecycle.StatusPending, lifecycle.StatusApproved); err != nil {
				slog.Error("command: approve failed", "news_id", item.ID, "err", err)
				reply("Não há nada pendente para aprovar. Digite *2* para verificar.")
				return nil
			}
			reply(fmt.Sprintf("✅ Notícia aprovada: *%s*\nO designer vai começar a trabalhar agora!", item.Title))
		}

	case cmd == "nichos" || cmd == "3" || cmd == "todos":
		niches, err := i.store.ListActiveNiches(ctx, tenantID)
		if err != nil {
			slog.Error("command: niche lookup failed", "tenant", tenantID, "err", err)
			reply("⚠️ Desculpe, tive um problema técnico ao acessar o banco de dados.")
			return nil
		}
		list := "Nenhum nicho ativo."
		if len(niches) > 0 {
			lines := make([]string, 0, len(niches))
			for _, n := range niches {
				lines = append(lines, "🔹 "+n.Name)
			}
			list = strings.Join(lines, "\n")
		}
		reply(fmt.Sprintf("📂 *Seus Nichos Ativos:*\n\n%s", list))

	case cmd == "editar" || cmd == "4":
		reply("📝 *O que mudamos?*\nEnvie em áudio ou texto as alterações que deseja na notícia.")

	default:
		// Unrecognized text yields no reply.
	}
	return nil
}
