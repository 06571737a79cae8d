package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/entities"
)

func (d *Database) GetSetByCode(code string) (*entities.Set, error) {
	var set entities.Set
	err := d.DB.Preload("Type").Preload("Translations").
		Where("LOWER(code) = LOWER(?)", code).First(&set).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (d *Database) GetSetByID(id string) (*entities.Set, error) {
	var set entities.Set
	err := d.DB.Preload("Type").Preload("Translations").
		Where("id = ?", id).First(&set).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (d *Database) GetAllSets() ([]entities.Set, error) {
	var sets []entities.Set
	err := d.DB.Preload("Type").Preload("Translations").
		Order("code ASC").Find(&sets).Error
	return sets, err
}

// SaveSet upserts a set along with its translations.
func (d *Database) SaveSet(set *entities.Set) error {
	var existing entities.Set
	result := d.DB.Where("LOWER(code) = LOWER(?)", set.Code).First(&existing)

	if result.Error == nil {
		set.ID = existing.ID
		// Set codes are immutable once persisted; keep the stored casing.
		set.Code = existing.Code
		for i := range set.Translations {
			set.Translations[i].SetID = set.ID
		}
		return d.DB.Session(&gorm.Session{FullSaveAssociations: true}).
			Omit("Type").Save(set).Error
	} else if result.Error == gorm.ErrRecordNotFound {
		return d.DB.Omit("Type").Create(set).Error
	}
	return result.Error
}

// RecomputeCardCount refreshes the set's materialized card count from
// the cards table. Called after every sync pass; never incremented.
func (d *Database) RecomputeCardCount(setCode string) (int64, error) {
	count, err := d.CountCardsInSet(setCode)
	if err != nil {
		return 0, err
	}
	err = d.DB.Model(&entities.Set{}).
		Where("LOWER(code) = LOWER(?)", setCode).
		Update("card_count", count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to update card count for %s: %w", setCode, err)
	}
	return count, nil
}

func (d *Database) CountSets() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Set{}).Count(&count).Error
	return count, err
}

func (d *Database) CountSetsWithoutType() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Set{}).Where("type_id IS NULL").Count(&count).Error
	return count, err
}

func (d *Database) CountSetsWithoutTranslation() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Set{}).
		Where("id NOT IN (?)", d.DB.Model(&entities.SetTranslation{}).Select("set_id")).
		Count(&count).Error
	return count, err
}
