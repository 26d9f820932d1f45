package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	repo   domain.Repository
	logger *zerolog.Logger
	now    func() time.Time
}

var _ domain.ItemService = (*ItemService)(nil)

func NewItemService(repo domain.Repository, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CreateItem привязывает вещь к запросу, только если такой запрос существует
func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetUserByID(ctx, ownerID); err != nil {
			return err
		}

		if item.RequestID != nil {
			if _, err := tx.GetRequestByID(ctx, *item.RequestID); err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				item.RequestID = nil
			}
		}

		item.OwnerID = ownerID
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("item created")
	return item, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	var item *models.Item
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		it, err := tx.GetItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if it.OwnerID != ownerID {
			return domain.NotFoundf("item with id=%d not found", itemID)
		}

		if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
			it.Name = *patch.Name
		}
		if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
			it.Description = *patch.Description
		}
		if patch.Available != nil {
			it.Available = *patch.Available
		}

		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, itemID, viewerID int64) (*models.ItemView, error) {
	return BuildItemView(ctx, s.repo, itemID, viewerID, s.now())
}

func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemView, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return BuildOwnerItemViews(ctx, s.repo, ownerID, page, s.now())
}

// SearchItems ищет по подстроке среди доступных вещей. Пустой текст дает пустой список.
func (s *ItemService) SearchItems(ctx context.Context, userID int64, text string, page models.Page) ([]*models.Item, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}

	items, err := s.repo.SearchAvailableItems(ctx, text, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Item{}
	}
	return items, nil
}
