package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/config"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/repository/pg"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/service"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/session"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/sheets"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/telegram"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, pool, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defer pool.Close()

	if err := pg.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	logger := config.NewLogger()

	pollsRepo := pg.NewPollsRepo(pool)
	sessionsRepo := pg.NewSessionsRepo(pool)

	pollsSvc := service.NewPollsService(pollsRepo)
	sessionSvc := service.NewSessionService(sessionsRepo)
	sessionStore := session.NewStore(sessionSvc)

	workbook := sheets.NewWorkbook(settings.SheetPath, settings.SheetName)

	botAPI, err := tgbotapi.NewBotAPI(settings.BotToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	botAPI.Debug = os.Getenv("DEBUG") == "1"

	bot := telegram.NewBot(botAPI, settings.AllowedChatIDs, telegram.Services{
		Polls:    pollsSvc,
		Sessions: sessionStore,
		Sheet:    workbook,
	}, logger)

	if err := bot.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bot stopped: %v", err)
	}
}
