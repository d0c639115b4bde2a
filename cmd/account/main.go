package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Cow/MonoProject/internal/config"
	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/family"
	"github.com/Iron-Cow/MonoProject/internal/logger"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/storage"
	"github.com/Iron-Cow/MonoProject/internal/storage/postgres"
)

// Links and unlinks bank accounts, and administers family relations. A new
// token is validated against the upstream API before the row is created.
func main() {
	var (
		token        = flag.String("token", "", "upstream access token to link")
		userID       = flag.String("user", "", "telegram id of the owning user")
		deactivate   = flag.Int64("deactivate", 0, "account id to deactivate instead of linking")
		familyAdd    = flag.String("family-add", "", "link two users as family, as userA:userB")
		familyRemove = flag.String("family-remove", "", "unlink two family users, as userA:userB")
	)
	flag.Parse()

	log := logger.New()

	cfg := config.Load(log)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	accounts := postgres.NewAccountRepository(pool)

	if *familyAdd != "" || *familyRemove != "" {
		families := family.NewService(postgres.NewFamilyRepository(pool))

		if *familyAdd != "" {
			userA, userB, err := splitPair(*familyAdd)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid -family-add value")
			}
			if err := families.Link(ctx, userA, userB); err != nil {
				log.Fatal().Err(err).Msg("Failed to link family users")
			}
			fmt.Printf("family link %s-%s created\n", userA, userB)
		}
		if *familyRemove != "" {
			userA, userB, err := splitPair(*familyRemove)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid -family-remove value")
			}
			if err := families.Unlink(ctx, userA, userB); err != nil {
				log.Fatal().Err(err).Msg("Failed to unlink family users")
			}
			fmt.Printf("family link %s-%s removed\n", userA, userB)
		}
		return
	}

	if *deactivate != 0 {
		if err := accounts.Deactivate(ctx, *deactivate); err != nil {
			log.Fatal().Err(err).Int64("account_id", *deactivate).Msg("Failed to deactivate account")
		}
		fmt.Printf("account %d deactivated\n", *deactivate)
		return
	}

	if *token == "" || *userID == "" {
		log.Fatal().Msg("both -token and -user are required to link an account")
	}

	client := monobank.NewClient(cfg.MonoAPIURL, 10*time.Second, log)
	info, err := client.ClientInfo(ctx, *token)
	if err != nil {
		log.Fatal().Err(err).Msg("Token validation against the upstream API failed")
	}

	account := &domain.Account{UserID: *userID, Token: *token, Active: true}
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			log.Fatal().Msg("Token is already linked to an account")
		}
		log.Fatal().Err(err).Msg("Failed to create account")
	}

	fmt.Printf("account %d linked for user %s (%s, %d cards, %d jars)\n",
		account.ID, *userID, info.Name, len(info.Accounts), len(info.Jars))
}

// splitPair parses a "userA:userB" flag value.
func splitPair(value string) (string, string, error) {
	userA, userB, ok := strings.Cut(value, ":")
	if !ok || userA == "" || userB == "" {
		return "", "", fmt.Errorf("expected userA:userB, got %q", value)
	}
	return userA, userB, nil
}
