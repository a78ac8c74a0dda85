package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"vantage-go/internal/config"
	"vantage-go/internal/handlers"
	"vantage-go/internal/models"
	"vantage-go/internal/storage"
	"vantage-go/internal/uploader"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitExceeded(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

func Setup(log *zap.Logger, bank *models.ItemBank, queue *uploader.Queue, signer storage.Signer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions("vantage_session", store))
	router.Use(SessionLoader())

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	assessmentHandler := handlers.NewAssessmentHandler(queue, log)
	personalityHandler := handlers.NewPersonalityHandler(bank, log)
	resultsHandler := handlers.NewResultsHandler(signer, log)

	// Mutating routes share one modest per-IP budget. Recording submissions
	// are bursty on retry, so the window stays generous.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 120,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: rateLimitExceeded,
		KeyFunc:      keyFunc,
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/session/start", limiter, assessmentHandler.Start)

	bound := router.Group("/")
	bound.Use(SessionRequired())
	{
		assessmentRoutes := bound.Group("/assessment")
		{
			assessmentRoutes.GET("/vignette/:step", assessmentHandler.Vignette)
			assessmentRoutes.POST("/vignette/:step/start", limiter, assessmentHandler.StartResponse)
			assessmentRoutes.POST("/responses", limiter, assessmentHandler.SubmitRecording)
			assessmentRoutes.GET("/progress", assessmentHandler.Progress)
		}

		uploadRoutes := bound.Group("/uploads")
		{
			uploadRoutes.GET("", assessmentHandler.Uploads)
			uploadRoutes.POST("/retry", limiter, assessmentHandler.RetryUpload)
		}

		personalityRoutes := bound.Group("/personality")
		{
			personalityRoutes.GET("/page/:page", personalityHandler.Page)
			personalityRoutes.POST("/answers", limiter, personalityHandler.Answer)
			personalityRoutes.POST("/submit", limiter, personalityHandler.Submit)
		}

		bound.GET("/results", resultsHandler.Results)
	}

	if config.Conf.Server.DevEndpoints {
		devHandler := handlers.NewDevHandler(log)
		router.POST("/dev/reset", devHandler.Reset)
		bound.GET("/dev/personality/scores", personalityHandler.Scores)
		log.Warn("developer endpoints enabled")
	}

	return router
}
