package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Locale string

const (
	LocaleUS Locale = "us"
	LocaleFR Locale = "fr"
)

// SetType is a canonical, allow-listed category for a card set.
// Rows are seeded from the standard type table; unrecognized type
// strings are rejected at ingestion, never persisted here.
type SetType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:50" json:"code"` // e.g. "expansion", "commander"
	LabelEn   string    `gorm:"size:100" json:"label_en"`
	LabelFr   string    `gorm:"size:100" json:"label_fr"`
	CreatedAt time.Time `json:"created_at"`
}

type Set struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string     `gorm:"uniqueIndex;size:10" json:"code"`
	Name        string     `gorm:"size:256" json:"name"`
	TypeID      *uuid.UUID `gorm:"type:uuid;index" json:"type_id,omitempty"`
	Type        *SetType   `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`

	// CardCount is a materialized view over the cards table. It is
	// recomputed after every sync pass, never incremented.
	CardCount int64 `json:"card_count"`

	Certifiable bool `gorm:"default:false" json:"certifiable"`
	AvailableFr bool `gorm:"default:false" json:"available_fr"`
	AvailableUs bool `gorm:"default:true" json:"available_us"`

	Translations []SetTranslation `gorm:"foreignKey:SetID" json:"translations,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type SetTranslation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SetID     uuid.UUID `gorm:"type:uuid;index" json:"set_id"`
	Locale    Locale    `gorm:"size:5;index" json:"locale"`
	Name      string    `gorm:"size:256" json:"name"`
	Label     string    `gorm:"size:256" json:"label"`
	Available bool      `gorm:"default:true" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Card struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// ExternalID is the source API's key for this card. Not guaranteed
	// present; unique per set when it is.
	ExternalID string `gorm:"index:idx_cards_external_set;size:64" json:"external_id,omitempty"`
	SetCode    string `gorm:"index:idx_cards_external_set;index:idx_cards_name_set;size:10" json:"set_code"`
	Name       string `gorm:"index:idx_cards_name_set;size:512" json:"name"`

	ManaCost string `gorm:"size:64" json:"mana_cost,omitempty"`
	Cmc      int    `json:"cmc"`
	Rarity   string `gorm:"size:32" json:"rarity,omitempty"`
	TypeLine string `gorm:"size:256" json:"type_line,omitempty"`

	// Decomposed type tags, stored as JSON arrays. Order is irrelevant.
	Supertypes string `gorm:"size:256" json:"-"`
	Types      string `gorm:"size:256" json:"-"`
	Subtypes   string `gorm:"size:256" json:"-"`

	Text      string `gorm:"type:text" json:"text,omitempty"`
	Artist    string `gorm:"size:256" json:"artist,omitempty"`
	Number    string `gorm:"size:20" json:"number,omitempty"`
	Power     string `gorm:"size:10" json:"power,omitempty"`
	Toughness string `gorm:"size:10" json:"toughness,omitempty"`
	Layout    string `gorm:"size:32;default:'normal'" json:"layout,omitempty"`

	ImageURL        string `gorm:"size:2048" json:"image_url,omitempty"`
	ImageDownloaded bool   `gorm:"default:false" json:"image_downloaded"`
	LocalImagePath  string `gorm:"size:1024" json:"local_image_path,omitempty"`

	Displayable bool `gorm:"default:true" json:"displayable"`
	Searchable  bool `gorm:"default:true" json:"searchable"`
	Certifiable bool `gorm:"default:false" json:"certifiable"`

	Translations []CardTranslation `gorm:"foreignKey:CardID" json:"translations,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type CardTranslation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CardID    uuid.UUID `gorm:"type:uuid;index" json:"card_id"`
	Locale    Locale    `gorm:"size:5;index" json:"locale"`
	Name      string    `gorm:"size:512" json:"name"`
	Label     string    `gorm:"size:512" json:"label"`
	Available bool      `gorm:"default:true" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SetType) TableName() string         { return "set_types" }
func (Set) TableName() string             { return "sets" }
func (SetTranslation) TableName() string  { return "set_translations" }
func (Card) TableName() string            { return "cards" }
func (CardTranslation) TableName() string { return "card_translations" }

func (t *SetType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (s *Set) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (t *SetTranslation) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (t *CardTranslation) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Synced reports whether the set has at least one card locally. The
// card-count cache is derived state, so this is the only definition of
// "synced" anywhere.
func (s *Set) Synced() bool {
	return s.CardCount > 0
}

// Translation returns the translation for the given locale, or nil.
func (s *Set) Translation(locale Locale) *SetTranslation {
	for i := range s.Translations {
		if s.Translations[i].Locale == locale {
			return &s.Translations[i]
		}
	}
	return nil
}

// EnsureTranslation guarantees a translation exists for the locale,
// seeding name and label identically from the fallback value.
func (s *Set) EnsureTranslation(locale Locale, fallbackName string) *SetTranslation {
	if tr := s.Translation(locale); tr != nil {
		return tr
	}
	s.Translations = append(s.Translations, SetTranslation{
		SetID:     s.ID,
		Locale:    locale,
		Name:      fallbackName,
		Label:     fallbackName,
		Available: true,
	})
	return &s.Translations[len(s.Translations)-1]
}

func (c *Card) Translation(locale Locale) *CardTranslation {
	for i := range c.Translations {
		if c.Translations[i].Locale == locale {
			return &c.Translations[i]
		}
	}
	return nil
}

// EnsureTranslation guarantees a card translation exists for the
// locale. Name and label are always set to the same value on creation
// to avoid display inconsistencies between the two projections.
func (c *Card) EnsureTranslation(locale Locale, name string) *CardTranslation {
	if tr := c.Translation(locale); tr != nil {
		return tr
	}
	c.Translations = append(c.Translations, CardTranslation{
		CardID:    c.ID,
		Locale:    locale,
		Name:      name,
		Label:     name,
		Available: true,
	})
	return &c.Translations[len(c.Translations)-1]
}

// SetTypeTags stores the decomposed type tags as JSON arrays.
func (c *Card) SetTypeTags(supertypes, types, subtypes []string) {
	c.Supertypes = encodeTags(supertypes)
	c.Types = encodeTags(types)
	c.Subtypes = encodeTags(subtypes)
}

// TypeTags returns the decomposed type tags.
func (c *Card) TypeTags() (supertypes, types, subtypes []string) {
	return decodeTags(c.Supertypes), decodeTags(c.Types), decodeTags(c.Subtypes)
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}
