package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"salonflow/models"
	"salonflow/services/authbridge"
	"salonflow/services/draft"
	"salonflow/services/promotion"
	"salonflow/services/verification"
	"salonflow/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CodeExchanger swaps an OAuth callback code for a token.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

var (
	Selectors *verification.Registry
	// SelectorFactory builds a wired selector for a draft; set during startup.
	SelectorFactory func(d *models.Draft) *verification.Selector
	AuthBridge      *authbridge.Bridge
	GoogleAuth      CodeExchanger
	VerifyRequests  verification.RequestStore
	DraftPromoter   verification.Promoter
)

// StartVerification selects a verification channel for the draft. Re-posting
// with a different channel tears the previous one down first.
func StartVerification(c *gin.Context) {
	var input struct {
		Channel string `json:"channel" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	draftID := c.Param("draftID")
	sel := Selectors.Get(draftID)
	if sel == nil {
		d, err := DraftManager.Get(c.Request.Context(), draftID)
		if err != nil {
			if errors.Is(err, draft.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "draft not found or expired"})
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "failed to fetch draft", err.Error())
			return
		}
		sel = SelectorFactory(d)
		Selectors.Put(sel)
	}

	res, err := sel.StartVerification(c.Request.Context(), input.Channel)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrUnknownChannel):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown verification channel"})
		case errors.Is(err, verification.ErrAlreadyVerified):
			c.JSON(http.StatusConflict, gin.H{"error": "draft already verified"})
		case errors.Is(err, authbridge.ErrWindowBlocked):
			c.JSON(http.StatusConflict, gin.H{"error": "popup_blocked"})
		case errors.Is(err, promotion.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "slot_unavailable"})
		case errors.Is(err, promotion.ErrPromotionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "promotion already in flight"})
		default:
			utils.JSONError(c, http.StatusInternalServerError, "failed to start verification", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

// VerificationStatus reports the selector state for polling clients.
func VerificationStatus(c *gin.Context) {
	sel := Selectors.Get(c.Param("draftID"))
	if sel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verification in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   sel.State(),
		"channel": sel.Channel(),
		"error":   sel.LastError(),
	})
}

// CancelVerification aborts the channel in progress.
func CancelVerification(c *gin.Context) {
	sel := Selectors.Get(c.Param("draftID"))
	if sel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verification in progress"})
		return
	}
	sel.Cancel()
	c.JSON(http.StatusOK, gin.H{"state": sel.State()})
}

// GoogleCallback finishes the popup round trip: it validates the signed state
// token, exchanges the code, promotes the draft and posts the completion
// message back to the window that opened the popup.
func GoogleCallback(c *gin.Context) {
	logger := utils.GetLogger()

	requestID, draftID, err := AuthBridge.VerifyState(c.Query("state"))
	if err != nil {
		logger.Warn("google callback with invalid state", zap.Error(err))
		renderAuthResult(c, http.StatusBadRequest, "", "verification link is invalid or expired")
		return
	}

	if errParam := c.Query("error"); errParam != "" || c.Query("code") == "" {
		reason := "google sign-in was cancelled"
		_ = VerifyRequests.MarkFailed(c.Request.Context(), requestID, reason)
		renderAuthResult(c, http.StatusOK, "", reason)
		return
	}

	if _, err := GoogleAuth.Exchange(c.Request.Context(), c.Query("code")); err != nil {
		logger.Warn("google code exchange failed", zap.Error(err))
		reason := "google verification failed"
		_ = VerifyRequests.MarkFailed(c.Request.Context(), requestID, reason)
		renderAuthResult(c, http.StatusOK, "", reason)
		return
	}

	appt, err := DraftPromoter.Promote(c.Request.Context(), draftID)
	if err != nil {
		reason := "could not confirm the appointment"
		if errors.Is(err, promotion.ErrSlotUnavailable) {
			reason = "slot_unavailable"
		}
		logger.Warn("promotion after google verification failed",
			zap.String("draftId", draftID), zap.Error(err))
		_ = VerifyRequests.MarkFailed(c.Request.Context(), requestID, reason)
		renderAuthResult(c, http.StatusOK, "", reason)
		return
	}

	if err := VerifyRequests.MarkVerified(c.Request.Context(), requestID, appt.ID); err != nil {
		logger.Warn("failed to mark verification request verified",
			zap.String("requestId", requestID), zap.Error(err))
	}
	AuthBridge.Complete(requestID, appt.ID)

	renderAuthResult(c, http.StatusOK, appt.ID, "")
}

// ConfirmHandoff completes a telegram or sms verification: the out-of-band
// flow posts the draft id back once the client confirmed.
func ConfirmHandoff(c *gin.Context) {
	var input struct {
		DraftID string `json:"draftId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	appt, err := DraftPromoter.Promote(c.Request.Context(), input.DraftID)
	if err != nil {
		switch {
		case errors.Is(err, promotion.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "slot_unavailable"})
		case errors.Is(err, promotion.ErrPromotionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "promotion already in flight"})
		default:
			utils.JSONError(c, http.StatusInternalServerError, "failed to confirm booking", err.Error())
		}
		return
	}

	if sel := Selectors.Get(input.DraftID); sel != nil {
		sel.CompleteHandoff(appt.ID)
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appt})
}

// renderAuthResult closes the popup round trip with a tiny page that posts
// the result to the opener window and closes itself.
func renderAuthResult(c *gin.Context, status int, appointmentID, failure string) {
	var script string
	if failure == "" {
		script = fmt.Sprintf(
			`window.opener && window.opener.postMessage({type: "booking-complete", appointmentId: %q}, window.location.origin);`,
			appointmentID)
	} else {
		script = fmt.Sprintf(
			`window.opener && window.opener.postMessage({type: "booking-failed", reason: %q}, window.location.origin);`,
			failure)
	}
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Booking</title></head>
<body>
<script>
%s
window.close();
</script>
</body>
</html>`, script)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}
