package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
)

// handlePollIntent starts the update flow or renders the current votes.
func (b *Bot) handlePollIntent(ctx context.Context, chatID, userID int64, act PollIntentAction) error {
	poll, err := b.svc.Polls.Latest(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.sendSimple(chatID, "Опрос не найден. Создайте открытый опрос посещаемости.")
			return nil
		}
		b.sendSimple(chatID, "Не удалось получить опрос, попробуйте ещё раз.")
		return fmt.Errorf("latest poll: %w", err)
	}
	data, err := b.svc.Polls.PollData(ctx, poll.ID)
	if err != nil {
		b.sendSimple(chatID, "Не удалось получить данные опроса, попробуйте ещё раз.")
		return fmt.Errorf("poll data: %w", err)
	}

	if act.Intent == intentView {
		b.sendSimple(chatID, renderPollResults(data))
		return b.svc.Sessions.Reset(ctx, userID)
	}

	// An update intent always starts a fresh run; any in-flight session
	// for this user is replaced.
	state := models.NewSyncSession()
	state.State = models.StateAwaitingPollOption
	state.PollID = poll.ID
	state.PollQuestion = data.Question
	if err := b.svc.Sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(data.Options)+1)
	for i, label := range data.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", i+1, label),
				encodeCallback(prefixPollOption, strconv.Itoa(i)),
			),
		))
	}
	rows = append(rows, cancelRow())
	b.sendKeyboard(chatID, "Какой вариант считать посещением?", tgbotapi.NewInlineKeyboardMarkup(rows...))
	return nil
}

// handlePollOption validates the chosen option and seeds the attendee list.
// Validation order: numeric payload, index range, non-empty voter set.
func (b *Bot) handlePollOption(ctx context.Context, chatID, userID int64, act PollOptionAction) error {
	state, err := b.svc.Sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state.State != models.StateAwaitingPollOption {
		// Stale button press after the session moved on.
		return nil
	}

	idx, err := strconv.Atoi(act.Raw)
	if err != nil {
		b.sendSimple(chatID, "Некорректный вариант.")
		return nil
	}

	data, err := b.svc.Polls.PollData(ctx, state.PollID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return b.integrityReset(ctx, chatID, userID)
		}
		b.sendSimple(chatID, "Не удалось получить данные опроса, попробуйте ещё раз.")
		return fmt.Errorf("poll data: %w", err)
	}

	if idx < 0 || idx >= len(data.Options) {
		b.sendSimple(chatID, fmt.Sprintf("Выберите вариант от 1 до %d.", len(data.Options)))
		return nil
	}

	voters := data.Votes[idx]
	if len(voters) == 0 {
		if err := b.svc.Sessions.Reset(ctx, userID); err != nil {
			return err
		}
		b.sendSimple(chatID, "За этот вариант никто не проголосовал, обновлять нечего.")
		return nil
	}

	state.Usernames = voters
	dateHint := extractDateHint(state.PollQuestion)
	// The poll served its purpose once the voter set is extracted.
	state.PollID = ""
	state.PollQuestion = ""
	return b.offerColumns(ctx, chatID, userID, state, dateHint)
}

// offerColumns applies the column-resolution policy: zero candidates offer
// creation, one offers use-or-create, many are listed for the user to pick.
func (b *Bot) offerColumns(ctx context.Context, chatID, userID int64, state *models.SyncSession, dateHint string) error {
	matches, err := b.svc.Sheet.DetectColumns(ctx, dateHint)
	if err != nil {
		b.sendSimple(chatID, "Не удалось прочитать таблицу, попробуйте ещё раз.")
		return fmt.Errorf("detect columns: %w", err)
	}
	next, err := b.svc.Sheet.NextColumn(ctx)
	if err != nil {
		b.sendSimple(chatID, "Не удалось прочитать таблицу, попробуйте ещё раз.")
		return fmt.Errorf("next column: %w", err)
	}

	state.State = models.StateAwaitingColumnChoice
	if len(matches) > 1 {
		state.ColumnMatches = matches
	}
	if err := b.svc.Sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	text, keyboard := columnChoicePrompt(matches, next)
	b.sendKeyboard(chatID, text, keyboard)
	return nil
}

func (b *Bot) handleColumn(ctx context.Context, chatID, userID int64, act ColumnAction) error {
	if act.Verb == verbCancel {
		if err := b.svc.Sessions.Reset(ctx, userID); err != nil {
			return err
		}
		b.sendSimple(chatID, "Отменено.")
		return nil
	}

	state, err := b.svc.Sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state.State != models.StateAwaitingColumnChoice {
		return nil
	}

	state.TargetColumn = act.Column
	state.ColumnMatches = nil

	switch act.Verb {
	case verbNew, verbCreate:
		state.IsNewColumn = true
		state.State = models.StateAwaitingDateName
		if err := b.svc.Sessions.Save(ctx, userID, state); err != nil {
			return err
		}
		b.sendSimple(chatID, "Введите название даты для новой колонки (например: 15.06 суббота).")
		return nil
	case verbUse, verbSelect:
		state.IsNewColumn = false
		return b.collectMetadata(ctx, chatID, userID, state)
	default:
		return nil
	}
}

func (b *Bot) handleDateName(ctx context.Context, chatID, userID int64, state *models.SyncSession, text string) error {
	name := strings.TrimSpace(text)
	if name == "" {
		b.sendSimple(chatID, "Название даты не может быть пустым.")
		return nil
	}
	if state.TargetColumn == "" {
		return b.integrityReset(ctx, chatID, userID)
	}
	if err := b.svc.Sheet.WriteColumnMeta(ctx, state.TargetColumn, name, nil); err != nil {
		b.sendSimple(chatID, "Не удалось записать заголовок колонки, попробуйте ещё раз.")
		return fmt.Errorf("write column header: %w", err)
	}
	return b.collectMetadata(ctx, chatID, userID, state)
}

// collectMetadata loads the nickname rows and asks to confirm the player count.
func (b *Bot) collectMetadata(ctx context.Context, chatID, userID int64, state *models.SyncSession) error {
	rows, err := b.svc.Sheet.NicknameRows(ctx)
	if err != nil {
		b.sendSimple(chatID, "Не удалось прочитать список игроков из таблицы, попробуйте ещё раз.")
		return fmt.Errorf("nickname rows: %w", err)
	}
	state.NicknameRows = rows
	state.State = models.StateAwaitingPlayerCount
	if err := b.svc.Sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да", encodeCallback(prefixYesNo, topicPlayerCount+":yes")),
			tgbotapi.NewInlineKeyboardButtonData("Нет", encodeCallback(prefixYesNo, topicPlayerCount+":no")),
		),
		cancelRow(),
	)
	b.sendKeyboard(chatID, fmt.Sprintf("Игроков: %d. Верно?", len(state.Usernames)), keyboard)
	return nil
}

func (b *Bot) handleYesNo(ctx context.Context, chatID, userID int64, act YesNoAction) error {
	state, err := b.svc.Sessions.Get(ctx, userID)
	if err != nil {
		return err
	}

	switch act.Topic {
	case topicPlayerCount:
		if state.State != models.StateAwaitingPlayerCount {
			return nil
		}
		if !act.Yes {
			b.sendSimple(chatID, "Введите число игроков:")
			return nil
		}
		return b.acceptPlayerCount(ctx, chatID, userID, state, len(state.Usernames))
	case topicOverride:
		if state.State != models.StateAwaitingOverrideChoice {
			return nil
		}
		return b.finishOverride(ctx, chatID, userID, state, act.Yes)
	default:
		return nil
	}
}

func (b *Bot) handleManualCount(ctx context.Context, chatID, userID int64, state *models.SyncSession, text string) error {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count <= 0 {
		b.sendSimple(chatID, "Введите положительное число игроков.")
		return nil
	}
	return b.acceptPlayerCount(ctx, chatID, userID, state, count)
}

// acceptPlayerCount persists the count and either commits directly or asks
// about overriding cells that already hold values.
func (b *Bot) acceptPlayerCount(ctx context.Context, chatID, userID int64, state *models.SyncSession, count int) error {
	if state.TargetColumn == "" || state.NicknameRows == nil {
		return b.integrityReset(ctx, chatID, userID)
	}
	state.PlayerCount = &count
	if err := b.svc.Sheet.WriteColumnMeta(ctx, state.TargetColumn, "", &count); err != nil {
		b.sendSimple(chatID, "Не удалось записать число игроков, попробуйте ещё раз.")
		return fmt.Errorf("write player count: %w", err)
	}

	entries, missing := buildWriteSet(state.Usernames, state.NicknameRows)
	existing, err := b.svc.Sheet.ExistingValues(ctx, state.TargetColumn, entries)
	if err != nil {
		b.sendSimple(chatID, "Не удалось проверить ячейки, попробуйте ещё раз.")
		return fmt.Errorf("existing values: %w", err)
	}

	if len(existing) == 0 {
		return b.commitAttendance(ctx, chatID, userID, state, entries, nil, missing)
	}

	state.ExistingValues = existing
	state.State = models.StateAwaitingOverrideChoice
	if err := b.svc.Sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	var list strings.Builder
	list.WriteString("Уже заполнены:\n")
	for _, ev := range existing {
		fmt.Fprintf(&list, "— %s (%s)\n", ev.Nickname, ev.Value)
	}
	list.WriteString("Перезаписать?")
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Перезаписать", encodeCallback(prefixYesNo, topicOverride+":yes")),
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", encodeCallback(prefixYesNo, topicOverride+":no")),
		),
		cancelRow(),
	)
	b.sendKeyboard(chatID, list.String(), keyboard)
	return nil
}

func (b *Bot) finishOverride(ctx context.Context, chatID, userID int64, state *models.SyncSession, overwrite bool) error {
	if state.TargetColumn == "" || state.NicknameRows == nil {
		return b.integrityReset(ctx, chatID, userID)
	}
	entries, missing := buildWriteSet(state.Usernames, state.NicknameRows)
	writeSet, skipped := resolveOverride(entries, state.ExistingValues, overwrite)
	return b.commitAttendance(ctx, chatID, userID, state, writeSet, skipped, missing)
}

// commitAttendance is the terminal step: write the marks, report, reset.
func (b *Bot) commitAttendance(ctx context.Context, chatID, userID int64, state *models.SyncSession, writeSet []models.WriteEntry, skipped, missing []string) error {
	if err := b.svc.Sheet.CommitAttendance(ctx, state.TargetColumn, writeSet); err != nil {
		b.sendSimple(chatID, "Не удалось записать посещаемость, попробуйте ещё раз.")
		return fmt.Errorf("commit attendance: %w", err)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Готово: отмечено %d в колонке %s.", len(writeSet), state.TargetColumn)
	if len(skipped) > 0 {
		fmt.Fprintf(&summary, "\nПропущены (уже заполнены): %s.", strings.Join(skipped, ", "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&summary, "\nНе найдены в таблице: %s.", strings.Join(missing, ", "))
	}
	b.sendSimple(chatID, summary.String())
	b.logger.Info("attendance_committed", "sheet", userID, state.TargetColumn)
	return b.svc.Sessions.Reset(ctx, userID)
}

// integrityReset handles a session missing fields a later step depends on.
func (b *Bot) integrityReset(ctx context.Context, chatID, userID int64) error {
	if err := b.svc.Sessions.Reset(ctx, userID); err != nil {
		return err
	}
	b.sendSimple(chatID, "Сессия потеряна. Начните заново: /sheet.")
	return models.ErrSessionIntegrity
}

// buildWriteSet pairs attendees with their sheet rows, preserving the voter
// order; nicknames unknown to the sheet are reported, not written.
func buildWriteSet(usernames []string, rows map[string]int) (entries []models.WriteEntry, missing []string) {
	for _, nick := range usernames {
		row, ok := rows[nick]
		if !ok {
			missing = append(missing, nick)
			continue
		}
		entries = append(entries, models.WriteEntry{Nickname: nick, Row: row})
	}
	return entries, missing
}

// resolveOverride computes the effective write set. With overwrite the skip
// list is empty; without it the skip list is exactly the nicknames recorded
// as already holding values.
func resolveOverride(entries []models.WriteEntry, existing []models.ExistingValue, overwrite bool) ([]models.WriteEntry, []string) {
	if overwrite || len(existing) == 0 {
		return entries, nil
	}
	taken := make(map[string]struct{}, len(existing))
	skipped := make([]string, 0, len(existing))
	for _, ev := range existing {
		taken[ev.Nickname] = struct{}{}
		skipped = append(skipped, ev.Nickname)
	}
	var writeSet []models.WriteEntry
	for _, entry := range entries {
		if _, ok := taken[entry.Nickname]; ok {
			continue
		}
		writeSet = append(writeSet, entry)
	}
	return writeSet, skipped
}

// columnChoicePrompt renders the column-resolution choice. Zero candidates:
// create or cancel. One: use it or create the next column. Many: one numbered
// button per candidate in the supplied order, plus cancel.
func columnChoicePrompt(matches []models.ColumnMatch, next string) (string, tgbotapi.InlineKeyboardMarkup) {
	switch len(matches) {
	case 0:
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("Создать колонку %s", next),
					encodeCallback(prefixColumn, verbNew+":"+next),
				),
			),
			cancelRow(),
		)
		return "Колонка с этой датой не найдена.", keyboard
	case 1:
		m := matches[0]
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("Использовать %s (%s)", m.Date, m.Column),
					encodeCallback(prefixColumn, verbUse+":"+m.Column),
				),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("Создать колонку %s", next),
					encodeCallback(prefixColumn, verbNew+":"+next),
				),
			),
		)
		return "Найдена колонка с этой датой.", keyboard
	default:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(matches)+1)
		for i, m := range matches {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%d. %s (%s)", i+1, m.Date, m.Column),
					encodeCallback(prefixColumn, verbSelect+":"+m.Column),
				),
			))
		}
		rows = append(rows, cancelRow())
		return "Найдено несколько подходящих колонок, выберите одну.", tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Отмена", encodeCallback(prefixColumn, verbCancel)),
	)
}

var dateHintPattern = regexp.MustCompile(`\d{1,2}[./]\d{1,2}`)

// extractDateHint pulls a dd.mm fragment out of the poll question so the
// matching sheet column can be detected by its header.
func extractDateHint(question string) string {
	return dateHintPattern.FindString(question)
}

func renderPollResults(data *models.PollData) string {
	var sb strings.Builder
	sb.WriteString(data.Question)
	for i, label := range data.Options {
		voters := data.Votes[i]
		fmt.Fprintf(&sb, "\n%d. %s — %d", i+1, label, len(voters))
		if len(voters) > 0 {
			fmt.Fprintf(&sb, ": %s", strings.Join(voters, ", "))
		}
	}
	return sb.String()
}
