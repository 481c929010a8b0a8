package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type Settings struct {
	BotToken       string
	DBDSN          string
	SheetPath      string
	SheetName      string
	AllowedChatIDs []int64
}

func Load(ctx context.Context) (*Settings, *pgxpool.Pool, error) {
	_ = godotenv.Load()

	set := &Settings{}
	set.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if set.BotToken == "" {
		return nil, nil, fmt.Errorf("BOT_TOKEN is required")
	}

	set.DBDSN = strings.TrimSpace(os.Getenv("DB_DSN"))
	if set.DBDSN == "" {
		return nil, nil, fmt.Errorf("DB_DSN is required")
	}

	set.SheetPath = strings.TrimSpace(os.Getenv("SHEET_PATH"))
	if set.SheetPath == "" {
		return nil, nil, fmt.Errorf("SHEET_PATH is required")
	}

	set.SheetName = strings.TrimSpace(os.Getenv("SHEET_NAME"))
	if set.SheetName == "" {
		set.SheetName = "Посещаемость"
	}

	chatsRaw := strings.TrimSpace(os.Getenv("ALLOWED_CHAT_IDS"))
	if chatsRaw == "" {
		return nil, nil, fmt.Errorf("ALLOWED_CHAT_IDS is required")
	}
	for _, part := range strings.Split(chatsRaw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid chat id %q: %w", part, err)
		}
		set.AllowedChatIDs = append(set.AllowedChatIDs, val)
	}
	if len(set.AllowedChatIDs) == 0 {
		return nil, nil, fmt.Errorf("ALLOWED_CHAT_IDS must contain at least one value")
	}

	cfg, err := pgxpool.ParseConfig(set.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return set, pool, nil
}
