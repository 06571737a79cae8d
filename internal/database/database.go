package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pcagrad/cardvault/internal/entities"
)

// defaultSetTypes is the closed catalog of set categories. Sync and
// migration may only attach types from this table; anything else is
// rejected at ingestion.
var defaultSetTypes = []entities.SetType{
	{Code: "expansion", LabelEn: "Expansion", LabelFr: "Extension"},
	{Code: "core", LabelEn: "Core Set", LabelFr: "Édition de base"},
	{Code: "commander", LabelEn: "Commander", LabelFr: "Commander"},
	{Code: "draft_innovation", LabelEn: "Draft Innovation", LabelFr: "Innovation de draft"},
	{Code: "reprint", LabelEn: "Reprint", LabelFr: "Réimpression"},
	{Code: "funny", LabelEn: "Funny", LabelFr: "Humoristique"},
	{Code: "memorabilia", LabelEn: "Memorabilia", LabelFr: "Souvenirs"},
	{Code: "premium_deck", LabelEn: "Premium Deck", LabelFr: "Deck premium"},
	{Code: "duel_deck", LabelEn: "Duel Deck", LabelFr: "Deck de duel"},
	{Code: "from_the_vault", LabelEn: "From the Vault", LabelFr: "From the Vault"},
	{Code: "spellbook", LabelEn: "Spellbook", LabelFr: "Grimoire"},
	{Code: "arsenal", LabelEn: "Arsenal", LabelFr: "Arsenal"},
	{Code: "planechase", LabelEn: "Planechase", LabelFr: "Planechase"},
	{Code: "archenemy", LabelEn: "Archenemy", LabelFr: "Archenemy"},
	{Code: "vanguard", LabelEn: "Vanguard", LabelFr: "Avant-garde"},
	{Code: "masters", LabelEn: "Masters", LabelFr: "Masters"},
	{Code: "conspiracy", LabelEn: "Conspiracy", LabelFr: "Conspiration"},
	{Code: "treasure_chest", LabelEn: "Treasure Chest", LabelFr: "Coffre au trésor"},
	{Code: "promo", LabelEn: "Promotional", LabelFr: "Promotionnel"},
	{Code: "token", LabelEn: "Token", LabelFr: "Jeton"},
	{Code: "starter", LabelEn: "Starter", LabelFr: "Débutant"},
	{Code: "box", LabelEn: "Box Set", LabelFr: "Coffret"},
	{Code: "un", LabelEn: "Un-Set", LabelFr: "Un-Set"},
	{Code: "masterpiece", LabelEn: "Masterpiece", LabelFr: "Chef-d'œuvre"},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.SetType{},
		&entities.Set{},
		&entities.SetTranslation{},
		&entities.Card{},
		&entities.CardTranslation{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	// Seed the canonical set type catalog
	if err := database.seedSetTypes(); err != nil {
		return nil, fmt.Errorf("failed to seed set types: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedSetTypes() error {
	for _, setType := range defaultSetTypes {
		var existing entities.SetType
		result := d.DB.Where("code = ?", setType.Code).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&setType).Error; err != nil {
				return fmt.Errorf("failed to create set type %s: %w", setType.Code, err)
			}
			log.Printf("Created set type: %s", setType.Code)
		}
	}
	return nil
}

func (d *Database) GetSetTypeByCode(code string) (*entities.SetType, error) {
	var setType entities.SetType
	err := d.DB.Where("LOWER(code) = LOWER(?)", code).First(&setType).Error
	if err != nil {
		return nil, err
	}
	return &setType, nil
}

func (d *Database) GetAllSetTypes() ([]entities.SetType, error) {
	var setTypes []entities.SetType
	err := d.DB.Order("code ASC").Find(&setTypes).Error
	return setTypes, err
}

// IsAllowedSetType reports whether a type code belongs to the closed
// catalog, regardless of whether a row for it exists yet.
func IsAllowedSetType(code string) bool {
	for _, setType := range defaultSetTypes {
		if setType.Code == code {
			return true
		}
	}
	return false
}

// StandardSetTypes returns a copy of the canonical set type catalog.
func StandardSetTypes() []entities.SetType {
	out := make([]entities.SetType, len(defaultSetTypes))
	copy(out, defaultSetTypes)
	return out
}

func (d *Database) CountSetTypes() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.SetType{}).Count(&count).Error
	return count, err
}
