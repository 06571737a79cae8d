package taxonomy

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/entities"
)

// DistinguishedSetCode is the set the migration report tracks
// explicitly: the first crossover release, expected to exist in every
// healthy catalog.
const DistinguishedSetCode = "FIN"

const distinguishedSetName = "Magic: The Gathering—FINAL FANTASY"

// Report summarizes catalog health after a migration pass.
type Report struct {
	TotalSets              int64   `json:"total_sets"`
	TotalTypes             int64   `json:"total_types"`
	SetsWithoutType        int64   `json:"sets_without_type"`
	SetsWithoutTranslation int64   `json:"sets_without_translation"`
	DistinguishedSetExists bool    `json:"distinguished_set_exists"`
	CompletionPercent      float64 `json:"completion_percent"`
}

// MigrateExisting walks every persisted set, inferring a type for the
// typeless, seeding missing translations, and normalizing persistence
// defaults. Per-set failures are logged and skipped so one bad row
// cannot abort the pass.
func (a *Adapter) MigrateExisting() (*Report, error) {
	sets, err := a.db.GetAllSets()
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}

	for i := range sets {
		set := &sets[i]
		changed := false

		if set.TypeID == nil {
			kind := InferKind(set.Name)
			if err := a.AssignKind(set, kind); err != nil {
				log.Printf("WARNING: could not assign inferred type %q to set %s: %v", kind, set.Code, err)
			} else {
				log.Printf("Assigned inferred type %q to set %s", kind, set.Code)
				changed = true
			}
		}

		if set.Translation(entities.LocaleUS) == nil {
			changed = true
		}
		a.PrepareForSave(set)

		if changed {
			if err := a.db.SaveSet(set); err != nil {
				log.Printf("WARNING: failed to migrate set %s: %v", set.Code, err)
			}
		}
	}

	return a.BuildReport()
}

// BuildReport computes the catalog health report without mutating
// anything.
func (a *Adapter) BuildReport() (*Report, error) {
	report := &Report{}

	var err error
	if report.TotalSets, err = a.db.CountSets(); err != nil {
		return nil, err
	}
	if report.TotalTypes, err = a.db.CountSetTypes(); err != nil {
		return nil, err
	}
	if report.SetsWithoutType, err = a.db.CountSetsWithoutType(); err != nil {
		return nil, err
	}
	if report.SetsWithoutTranslation, err = a.db.CountSetsWithoutTranslation(); err != nil {
		return nil, err
	}

	if _, err := a.db.GetSetByCode(DistinguishedSetCode); err == nil {
		report.DistinguishedSetExists = true
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if report.TotalSets > 0 {
		complete := report.TotalSets - report.SetsWithoutType
		report.CompletionPercent = float64(complete) / float64(report.TotalSets) * 100
	}

	return report, nil
}

// EnsureDistinguishedSet creates the FIN set if it is absent, with its
// known release date and an expansion type.
func (a *Adapter) EnsureDistinguishedSet() (*entities.Set, error) {
	set, err := a.db.GetSetByCode(DistinguishedSetCode)
	if err == nil {
		return set, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	release := time.Date(2025, time.June, 13, 0, 0, 0, 0, time.UTC)
	set = &entities.Set{
		Code:        DistinguishedSetCode,
		Name:        distinguishedSetName,
		ReleaseDate: &release,
	}
	if err := a.AssignKind(set, "expansion"); err != nil {
		return nil, err
	}
	a.PrepareForSave(set)

	if err := a.db.SaveSet(set); err != nil {
		return nil, fmt.Errorf("failed to create set %s: %w", DistinguishedSetCode, err)
	}
	log.Printf("Created distinguished set %s", DistinguishedSetCode)
	return set, nil
}
