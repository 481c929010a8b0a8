package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/repository"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/service"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/session"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/sheets"
)

type Services struct {
	Polls    service.PollsService
	Sessions *session.Store
	Sheet    sheets.Client
}

// telegramAPI is the slice of tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	api     telegramAPI
	allowed map[int64]struct{}
	svc     Services
	logger  repository.Logger
}

func NewBot(api telegramAPI, allowedChatIDs []int64, svc Services, logger repository.Logger) *Bot {
	allowed := make(map[int64]struct{}, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = struct{}{}
	}
	return &Bot{
		api:     api,
		allowed: allowed,
		svc:     svc,
		logger:  logger,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updateConfig.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				b.logger.Error(err, "handle_update", "update", 0)
			}
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message != nil {
		return b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		return b.handleCallback(ctx, update.CallbackQuery)
	}
	if update.PollAnswer != nil {
		return b.handlePollAnswer(ctx, update.PollAnswer)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.isAllowed(msg.Chat.ID) {
		return nil
	}

	if msg.Poll != nil {
		return b.recordPoll(ctx, msg)
	}

	userID := msg.From.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendSimple(msg.Chat.ID, "Бот переносит результаты опроса посещаемости в таблицу. Создайте открытый опрос, дождитесь голосов и вызовите /sheet.")
		case "sheet":
			return b.sendIntentMenu(ctx, msg.Chat.ID)
		case "cancel":
			if err := b.svc.Sessions.Reset(ctx, userID); err != nil {
				return err
			}
			b.sendSimple(msg.Chat.ID, "Отменено.")
		default:
			b.sendSimple(msg.Chat.ID, "Неизвестная команда.")
		}
		return nil
	}

	// Free-text input only matters in two workflow steps.
	state, err := b.svc.Sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	switch state.State {
	case models.StateAwaitingDateName:
		return b.handleDateName(ctx, msg.Chat.ID, userID, state, msg.Text)
	case models.StateAwaitingPlayerCount:
		return b.handleManualCount(ctx, msg.Chat.ID, userID, state, msg.Text)
	default:
		return nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	if !b.isAllowed(chatID) {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, "Недостаточно прав"))
		return nil
	}

	action, err := parseCallback(cb.Data)

	// Acknowledge before any state mutation so the button never hangs,
	// including for stale or unrecognized presses.
	_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	userID := cb.From.ID
	if err != nil {
		b.logger.Info("callback_ignored", "callback", userID, cb.Data)
		return nil
	}

	switch act := action.(type) {
	case PollIntentAction:
		return b.handlePollIntent(ctx, chatID, userID, act)
	case PollOptionAction:
		return b.handlePollOption(ctx, chatID, userID, act)
	case ColumnAction:
		return b.handleColumn(ctx, chatID, userID, act)
	case YesNoAction:
		return b.handleYesNo(ctx, chatID, userID, act)
	default:
		return nil
	}
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) error {
	// Poll answers carry no chat id, so the allowed-chat gate cannot apply;
	// only answers to polls we recorded from an allowed chat are stored.
	known, err := b.svc.Polls.Exists(ctx, answer.PollID)
	if err != nil {
		return fmt.Errorf("poll lookup: %w", err)
	}
	if !known {
		b.logger.Info("poll_answer_ignored", "poll", answer.User.ID, answer.PollID)
		return nil
	}

	vote := models.PollVote{
		PollID:    answer.PollID,
		UserID:    answer.User.ID,
		Username:  voterName(&answer.User),
		OptionIDs: answer.OptionIDs,
	}
	if err := b.svc.Polls.RecordAnswer(ctx, vote); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (b *Bot) recordPoll(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Poll.IsAnonymous {
		b.sendSimple(msg.Chat.ID, "Опрос анонимный, голоса отследить не получится. Создайте открытый опрос.")
		return nil
	}
	options := make([]string, len(msg.Poll.Options))
	for i, opt := range msg.Poll.Options {
		options[i] = opt.Text
	}
	poll := models.Poll{
		ID:       msg.Poll.ID,
		ChatID:   msg.Chat.ID,
		Question: msg.Poll.Question,
		Options:  options,
	}
	if err := b.svc.Polls.RecordPoll(ctx, poll); err != nil {
		return fmt.Errorf("record poll: %w", err)
	}
	b.logger.Info("poll_recorded", "poll", msg.From.ID, msg.Poll.ID)
	return nil
}

func (b *Bot) sendIntentMenu(ctx context.Context, chatID int64) error {
	if _, err := b.svc.Polls.Latest(ctx, chatID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.sendSimple(chatID, "В этом чате нет опроса. Создайте открытый опрос посещаемости и дождитесь голосов.")
			return nil
		}
		return err
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Обновить таблицу", encodeCallback(prefixPollIntent, intentUpdate)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Показать голоса", encodeCallback(prefixPollIntent, intentView)),
		),
	)
	b.sendKeyboard(chatID, "Что сделать с последним опросом?", keyboard)
	return nil
}

func (b *Bot) isAllowed(chatID int64) bool {
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) sendSimple(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error(err, "send_message", "message", 0)
	}
}

func (b *Bot) sendKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error(err, "send_keyboard", "message", 0)
	}
}

func voterName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("id%d", user.ID)
}
