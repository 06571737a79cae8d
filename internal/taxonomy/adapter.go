// Package taxonomy keeps sets attached to the closed catalog of set
// types and guarantees the persistence invariants every set must hold
// before it is written.
package taxonomy

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/entities"
)

type Adapter struct {
	db *database.Database
}

func NewAdapter(db *database.Database) *Adapter {
	return &Adapter{db: db}
}

// AssignKind attaches a set type to the set. The code is resolved
// case-insensitively against the seeded catalog; codes outside the
// closed catalog are rejected and the set's type is left unchanged.
func (a *Adapter) AssignKind(set *entities.Set, typeCode string) error {
	typeCode = strings.ToLower(strings.TrimSpace(typeCode))
	if typeCode == "" {
		return nil
	}

	setType, err := a.db.GetSetTypeByCode(typeCode)
	if err == gorm.ErrRecordNotFound {
		if !database.IsAllowedSetType(typeCode) {
			log.Printf("WARNING: rejecting unknown set type %q for set %s", typeCode, set.Code)
			return fmt.Errorf("set type %q is not in the catalog", typeCode)
		}
		// Allowed but not seeded yet (e.g. a pruned database).
		return fmt.Errorf("set type %q missing from catalog table", typeCode)
	}
	if err != nil {
		return err
	}

	set.TypeID = &setType.ID
	set.Type = setType
	return nil
}

// PrepareForSave applies the persistence defaults every set must carry.
// Availability flags are defaulted only on the first persist; later
// passes leave deliberately edited values alone. Idempotent:
// already-compliant sets pass through unchanged.
func (a *Adapter) PrepareForSave(set *entities.Set) {
	if set.ID == uuid.Nil {
		set.Certifiable = false
		set.AvailableFr = false
		set.AvailableUs = true
	}

	fallback := set.Name
	if fallback == "" {
		fallback = set.Code
	}
	set.EnsureTranslation(entities.LocaleUS, fallback)
}

// InferKind guesses a set type code from the set's name. Used when the
// remote catalog does not report a type. Checks are ordered from most
// to least specific; the default is "expansion".
func InferKind(setName string) string {
	name := strings.ToLower(setName)
	switch {
	case strings.Contains(name, "commander"):
		return "commander"
	case strings.Contains(name, "masters"):
		return "masters"
	case strings.Contains(name, "core") || strings.Contains(name, "edition"):
		return "core"
	case strings.Contains(name, "horizons") || strings.Contains(name, "innovation"):
		return "draft_innovation"
	case strings.Contains(name, "reprint") || strings.Contains(name, "remastered"):
		return "reprint"
	case strings.Contains(name, "promo"):
		return "promo"
	case strings.Contains(name, "token"):
		return "token"
	default:
		return "expansion"
	}
}
