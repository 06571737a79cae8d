package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pcagrad/cardvault/internal/database"
	"github.com/pcagrad/cardvault/internal/entities"
	"github.com/pcagrad/cardvault/internal/images"
)

// ImagesController handles card artwork requests.
type ImagesController struct {
	db      *database.Database
	manager *images.Manager
}

func NewImagesController(db *database.Database, manager *images.Manager) *ImagesController {
	return &ImagesController{
		db:      db,
		manager: manager,
	}
}

// DownloadForSet downloads missing artwork for every card in the set.
// POST /api/sets/:code/images
func (ic *ImagesController) DownloadForSet(c *gin.Context) {
	code, ok := setCodeParam(c)
	if !ok {
		return
	}

	cards, err := ic.db.CardsMissingImages(code)
	if err != nil {
		respondInternalError(c, err, "list cards missing images")
		return
	}
	if len(cards) == 0 {
		respondOK(c, "no images to download for set "+code, gin.H{"downloaded": 0})
		return
	}

	refs := make([]*entities.Card, 0, len(cards))
	for i := range cards {
		refs = append(refs, &cards[i])
	}

	downloaded := ic.manager.DownloadForSet(c.Request.Context(), refs)
	for _, card := range refs {
		if card.ImageDownloaded {
			if err := ic.db.SaveCard(card); err != nil {
				respondInternalError(c, err, "persist downloaded image")
				return
			}
		}
	}

	respondOK(c, "image download completed for set "+code, gin.H{
		"requested":  len(cards),
		"downloaded": downloaded,
	})
}

// GetImage serves a card's stored artwork, redirecting to the remote
// URL when no local copy exists yet.
// GET /api/cards/:id/image
func (ic *ImagesController) GetImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondBadRequest(c, "invalid card id")
		return
	}

	card, err := ic.db.GetCardByID(id)
	if err == gorm.ErrRecordNotFound {
		respondNotFound(c, "card "+id)
		return
	}
	if err != nil {
		respondInternalError(c, err, "get card")
		return
	}

	if ic.manager.Exists(card) {
		c.File(card.LocalImagePath)
		return
	}
	if card.ImageURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, card.ImageURL)
		return
	}
	respondNotFound(c, "image for card "+id)
}
