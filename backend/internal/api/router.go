package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kindred/backend/internal/auth"
	"kindred/backend/internal/fanout"
	"kindred/backend/internal/graph"
)

// People is the person repository surface exposed over HTTP
type People interface {
	QueryAll(ctx context.Context) ([]graph.Person, error)
	CreatePeople(ctx context.Context, people []graph.Person) ([]graph.Person, error)
	DeleteAll(ctx context.Context) (int, error)
	SearchByTerm(ctx context.Context, term string) ([]graph.Person, error)
	GetPerson(ctx context.Context, name string) (*graph.Person, error)
	UpdatePerson(ctx context.Context, name string, updated graph.Person) (*graph.Person, error)
	DeleteByName(ctx context.Context, name string) (int, error)
	GetChildren(ctx context.Context, name string) (graph.RelationView, error)
	AddChildren(ctx context.Context, name string, children []graph.Person) (graph.RelationView, error)
	GetParents(ctx context.Context, name string) (graph.RelationView, error)
	GetPartners(ctx context.Context, name string) (graph.RelationView, error)
	AddPartners(ctx context.Context, name string, partners []graph.Person) (graph.RelationView, error)
}

// IdentitySyncer projects an authenticated identity onto its Person node
type IdentitySyncer interface {
	SyncIdentity(ctx context.Context, id *auth.Identity) (*graph.Person, error)
}

// Authenticator verifies bearer tokens and knows the provider's login URL
type Authenticator interface {
	auth.Resolver
	AuthorizationURL(ctx context.Context, redirectURL, state string) (string, error)
}

// Fetcher fetches many URLs at once
type Fetcher interface {
	Gather(ctx context.Context, urls []string) []fanout.Result
}

// Deps holds everything the router needs
type Deps struct {
	People     People
	Syncer     IdentitySyncer
	Auth       Authenticator
	Fanout     Fetcher
	Logger     *zap.Logger
	Prefix     string
	Production bool
}

// NewRouter builds the gin engine with every route mounted under deps.Prefix
func NewRouter(deps Deps) *gin.Engine {
	if deps.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginLogger(deps.Logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		people: deps.People,
		syncer: deps.Syncer,
		auth:   deps.Auth,
		fanout: deps.Fanout,
		logger: deps.Logger,
	}

	api := router.Group(deps.Prefix)
	api.GET("/login", h.login)

	secured := api.Group("")
	secured.Use(requireUser(deps.Auth, deps.Logger))
	{
		secured.GET("/me", h.me)
		secured.GET("/logout", h.logout)

		secured.GET("/people", h.listPeople)
		secured.POST("/people", h.createPeople)
		secured.DELETE("/people", h.deleteAllPeople)
		secured.POST("/people/search", h.searchPeople)

		secured.GET("/people/:name", h.getPerson)
		secured.PATCH("/people/:name", h.updatePerson)
		secured.DELETE("/people/:name", h.deletePerson)

		secured.GET("/people/:name/children", h.getChildren)
		secured.POST("/people/:name/children", h.addChildren)
		secured.GET("/people/:name/parents", h.getParents)
		secured.GET("/people/:name/partners", h.getPartners)
		secured.POST("/people/:name/partners", h.addPartners)

		secured.POST("/fanout", h.gather)
	}

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
