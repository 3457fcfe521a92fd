package api

import (
	stderrors "errors"
	"net/http"

	"secondbrain_go_backend/internal/auth"
	"secondbrain_go_backend/internal/errors"
	"secondbrain_go_backend/internal/models"
	"secondbrain_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func SetupRoutes(
	r *gin.Engine,
	userService *services.UserService,
	sessionService services.SessionServiceDB,
	finalizeService *services.FinalizeService,
	searchService *services.SearchService,
	creditService services.CreditLedger,
	mediaService *services.MediaService,
	stripeService *services.StripeService,
	paymentService *services.PaymentService,
) {
	r.GET("/healthz", healthz)

	api := r.Group("/api")
	{
		authed := api.Group("", auth.AuthMiddleware(userService))

		authed.POST("/sessions", createSessionHandler(sessionService))
		authed.GET("/sessions/:id", getSessionHandler(sessionService))
		authed.DELETE("/sessions/:id", deleteSessionHandler(sessionService, mediaService))
		authed.GET("/sessions/:id/blocks", listBlocksHandler(sessionService))
		authed.POST("/sessions/:id/blocks", addBlockHandler(sessionService))
		authed.POST("/sessions/:id/finalize", finalizeSessionHandler(finalizeService))
		authed.POST("/sessions/:id/uploads", presignUploadHandler(mediaService))
		authed.POST("/uploads/:media_id/commit", commitUploadHandler(mediaService))

		authed.POST("/search", searchHandler(searchService))
		authed.GET("/me/credits", getCreditsHandler(creditService))

		authed.GET("/payments/packages", listPackagesHandler(stripeService))
		authed.POST("/payments/checkout", createCheckoutHandler(stripeService, paymentService))
		authed.GET("/payments/history", paymentHistoryHandler(paymentService))

		api.POST("/stripe/webhook", stripeWebhookHandler(stripeService, paymentService))
	}
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		errors.HandleError(c, errors.New401Error())
		return nil, false
	}
	return user, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		errors.HandleError(c, errors.New400Error("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps the services package sentinels onto HTTP errors.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, services.ErrSessionNotFound):
		errors.HandleError(c, errors.New404Error("session not found"))
	case stderrors.Is(err, services.ErrMediaNotFound):
		errors.HandleError(c, errors.New404Error("media file not found"))
	case stderrors.Is(err, services.ErrSessionNotOpen):
		errors.HandleError(c, errors.New409Error("session is not open"))
	case stderrors.Is(err, services.ErrActiveJobExists):
		errors.HandleError(c, errors.New409Error("session is already being processed"))
	case stderrors.Is(err, services.ErrNoBlocks):
		errors.HandleError(c, errors.New400Error("session has no blocks"))
	case stderrors.Is(err, services.ErrEmptyQuery):
		errors.HandleError(c, errors.New400Error("query text cannot be empty"))
	case stderrors.Is(err, services.ErrProviderUnavailable):
		errors.HandleError(c, errors.New503Error(err))
	default:
		errors.HandleError(c, err)
	}
}

func createSessionHandler(sessions services.SessionServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		var request struct {
			SessionType models.SessionType `json:"session_type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}
		if !models.ValidSessionType(request.SessionType) {
			errors.HandleError(c, errors.New400Error("session_type must be voice, image or mixed"))
			return
		}

		session, err := sessions.CreateSession(c.Request.Context(), user.ID, request.SessionType)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

func getSessionHandler(sessions services.SessionServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		session, err := sessions.GetSession(c.Request.Context(), sessionID, user.ID)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		blocks, err := sessions.ListBlocks(c.Request.Context(), sessionID)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session": session,
			"blocks":  blocks,
		})
	}
}

func deleteSessionHandler(sessions services.SessionServiceDB, media *services.MediaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		// Bucket objects first, while the media rows still hold the keys.
		if err := media.PurgeSessionObjects(c.Request.Context(), sessionID, user.ID); err != nil {
			handleServiceError(c, err)
			return
		}
		if err := sessions.DeleteSession(c.Request.Context(), sessionID, user.ID); err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
	}
}

func listBlocksHandler(sessions services.SessionServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		// Ownership check before exposing block content.
		if _, err := sessions.GetSession(c.Request.Context(), sessionID, user.ID); err != nil {
			handleServiceError(c, err)
			return
		}

		blocks, err := sessions.ListBlocks(c.Request.Context(), sessionID)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"blocks": blocks})
	}
}

func addBlockHandler(sessions services.SessionServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		var request struct {
			BlockType   models.BlockType `json:"block_type" binding:"required"`
			TextContent string           `json:"text_content"`
			MediaURL    string           `json:"media_url"`
			Metadata    string           `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}
		if !models.ValidBlockType(request.BlockType) {
			errors.HandleError(c, errors.New400Error("block_type must be voice, image, marker or text"))
			return
		}

		block, err := sessions.AddBlock(c.Request.Context(), sessionID, user.ID, &models.SessionBlock{
			BlockType:   request.BlockType,
			TextContent: request.TextContent,
			MediaURL:    request.MediaURL,
			Metadata:    request.Metadata,
		})
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, block)
	}
}

func finalizeSessionHandler(finalize *services.FinalizeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		outcome, err := finalize.Finalize(c.Request.Context(), sessionID, user.ID)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		// Accepted, not OK: the enrichment work happens asynchronously.
		c.JSON(http.StatusAccepted, outcome)
	}
}

func searchHandler(search *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		var request struct {
			Query     string  `json:"query" binding:"required"`
			Limit     int     `json:"limit"`
			Threshold float64 `json:"threshold"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		hits, err := search.Search(c.Request.Context(), user.ID, request.Query, request.Limit, request.Threshold)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		if hits == nil {
			hits = []services.SearchHit{}
		}

		c.JSON(http.StatusOK, gin.H{"results": hits})
	}
}

func getCreditsHandler(ledger services.CreditLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		balance, err := ledger.GetBalance(c.Request.Context(), user.ID)
		if err != nil {
			errors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"credits": balance})
	}
}

func presignUploadHandler(media *services.MediaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		sessionID, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		var request struct {
			MediaType   models.MediaType `json:"media_type" binding:"required"`
			ContentType string           `json:"content_type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}
		if !services.ValidateContentType(request.MediaType, request.ContentType) {
			errors.HandleError(c, errors.New400Error("unsupported content type for media type"))
			return
		}

		upload, err := media.CreatePresignedUpload(c.Request.Context(), sessionID, user.ID, request.MediaType, request.ContentType)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, upload)
	}
}

func commitUploadHandler(media *services.MediaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		mediaID, ok := pathUUID(c, "media_id")
		if !ok {
			return
		}

		var request struct {
			SizeBytes int64 `json:"size_bytes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			errors.HandleError(c, errors.New400Error(err.Error()))
			return
		}

		file, err := media.CommitUpload(c.Request.Context(), mediaID, user.ID, request.SizeBytes)
		if err != nil {
			handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, file)
	}
}
