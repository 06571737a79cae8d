package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/entities"
)

func (d *Database) GetCardByID(id string) (*entities.Card, error) {
	var card entities.Card
	err := d.DB.Preload("Translations").Where("id = ?", id).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// FindCardByExternalID matches on the source API's key, scoped to a
// set. This is the primary reconciliation path.
func (d *Database) FindCardByExternalID(externalID, setCode string) (*entities.Card, error) {
	var card entities.Card
	err := d.DB.Preload("Translations").
		Where("external_id = ? AND LOWER(set_code) = LOWER(?)", externalID, setCode).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// FindCardByNameInSet is the fallback match for rows persisted before
// external IDs were recorded.
func (d *Database) FindCardByNameInSet(name, setCode string) (*entities.Card, error) {
	var card entities.Card
	err := d.DB.Preload("Translations").
		Where("name = ? AND LOWER(set_code) = LOWER(?)", name, setCode).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// SaveCard upserts a card along with its translations.
func (d *Database) SaveCard(card *entities.Card) error {
	if card.ID == uuid.Nil {
		return d.DB.Create(card).Error
	}
	for i := range card.Translations {
		card.Translations[i].CardID = card.ID
	}
	return d.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(card).Error
}

func (d *Database) GetCardsForSet(setCode string) ([]entities.Card, error) {
	var cards []entities.Card
	err := d.DB.Preload("Translations").
		Where("LOWER(set_code) = LOWER(?)", setCode).
		Order("number ASC, name ASC").Find(&cards).Error
	return cards, err
}

func (d *Database) CountCardsInSet(setCode string) (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Card{}).
		Where("LOWER(set_code) = LOWER(?)", setCode).Count(&count).Error
	return count, err
}

// DeleteCardsInSet hard-deletes all of a set's cards and their
// translations in one transaction. The deletion is committed before
// this returns, so a follow-up sync sees an empty set.
func (d *Database) DeleteCardsInSet(setCode string) (int64, error) {
	var deleted int64
	err := d.DB.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&entities.Card{}).
			Where("LOWER(set_code) = LOWER(?)", setCode).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("card_id IN ?", ids).
			Delete(&entities.CardTranslation{}).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Where("id IN ?", ids).Delete(&entities.Card{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge cards for %s: %w", setCode, err)
	}
	return deleted, nil
}

// CardsMissingImages returns cards that have a remote image URL but no
// downloaded artwork yet.
func (d *Database) CardsMissingImages(setCode string) ([]entities.Card, error) {
	var cards []entities.Card
	err := d.DB.
		Where("LOWER(set_code) = LOWER(?) AND image_url != '' AND image_downloaded = ?", setCode, false).
		Find(&cards).Error
	return cards, err
}

func (d *Database) CountCards() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Card{}).Count(&count).Error
	return count, err
}

func (d *Database) CountDownloadedImages() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Card{}).
		Where("image_downloaded = ?", true).Count(&count).Error
	return count, err
}
