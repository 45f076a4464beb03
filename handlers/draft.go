package handlers

import (
	"context"
	"errors"
	"net/http"

	"salonflow/models"
	"salonflow/services/draft"
	"salonflow/utils"

	"github.com/gin-gonic/gin"
)

// DraftService is the slice of the draft manager the HTTP layer needs.
type DraftService interface {
	CreateDraft(ctx context.Context, sel models.BookingSelection, contact models.ContactDraft, locale string) (string, error)
	Get(ctx context.Context, draftID string) (*models.Draft, error)
}

var DraftManager DraftService

// CreateDraft validates the wizard's selection and contact data and persists
// the draft reservation.
func CreateDraft(c *gin.Context) {
	var input struct {
		Selection models.BookingSelection `json:"selection" binding:"required"`
		Contact   models.ContactDraft     `json:"contact" binding:"required"`
		Locale    string                  `json:"locale"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	draftID, err := DraftManager.CreateDraft(c.Request.Context(), input.Selection, input.Contact, input.Locale)
	if err != nil {
		var ve *draft.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "validation failed",
				"field": ve.Field,
			})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to create draft", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"draftId": draftID})
}

// GetDraft returns the draft if it has not expired yet.
func GetDraft(c *gin.Context) {
	d, err := DraftManager.Get(c.Request.Context(), c.Param("draftID"))
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found or expired"})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch draft", err.Error())
		return
	}
	c.JSON(http.StatusOK, d)
}
