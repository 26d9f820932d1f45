package main

import (
	"context"
	"fmt"
	"os"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// seedFile описывает начальные данные. owner у вещи это порядковый номер
// пользователя в списке users, начиная с 1.
type seedFile struct {
	Users []models.User `yaml:"users"`
	Items []seedItem    `yaml:"items"`
}

type seedItem struct {
	Owner       int    `yaml:"owner"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Available   bool   `yaml:"available"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	for i, item := range seed.Items {
		if item.Owner < 1 || item.Owner > len(seed.Users) {
			return nil, fmt.Errorf("seed item %d (%s): owner %d out of range", i, item.Name, item.Owner)
		}
	}
	return &seed, nil
}

// seedDatabase заполняет пустую базу; если пользователи уже есть, ничего не делает
func seedDatabase(ctx context.Context, repo domain.Repository, path string, logger *zerolog.Logger) error {
	count, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info().Int("users", count).Msg("database is not empty, seed skipped")
		return nil
	}

	seed, err := loadSeed(path)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", path).Msg("load seed")
		return err
	}

	err = repo.InTx(ctx, func(tx domain.Repository) error {
		ids := make([]int64, len(seed.Users))
		for i := range seed.Users {
			user := seed.Users[i]
			if err := tx.CreateUser(ctx, &user); err != nil {
				return err
			}
			ids[i] = user.ID
		}

		for _, it := range seed.Items {
			item := &models.Item{
				OwnerID:     ids[it.Owner-1],
				Name:        it.Name,
				Description: it.Description,
				Available:   it.Available,
			}
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Msg("database seeded")
	return nil
}
