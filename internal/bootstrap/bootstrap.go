package bootstrap

import (
	"context"
	"log"
	"net/http"

	"github.com/markgate/markgate/internal/auth"
	"github.com/markgate/markgate/internal/cache"
	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/models"
	"github.com/markgate/markgate/internal/services"
	"github.com/markgate/markgate/internal/store"
	"github.com/markgate/markgate/internal/token"
	"github.com/markgate/markgate/internal/upstream"
	"github.com/markgate/markgate/internal/util"

	"github.com/appleboy/go-httpclient"
	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	Store      *store.Store
	FlowStates cache.Cache[models.FlowState]
	Cipher     *util.TokenCipher
	Metrics    metrics.Recorder

	// Services
	ClientService        *services.ClientService
	AuthorizationService *services.AuthorizationService
	TokenService         *services.TokenService
	Bridge               *upstream.Bridge
	Resolver             *auth.Resolver

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// NewApplication wires every component explicitly, infrastructure first,
// then the business layer, then the HTTP surface.
func NewApplication(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{Config: cfg}

	if err := app.initializeInfrastructure(); err != nil {
		return nil, err
	}
	app.initializeBusinessLayer()
	app.initializeHTTPLayer()

	return app, nil
}

// Run initializes the application and serves until shutdown
func Run(cfg *config.Config) error {
	app, err := NewApplication(cfg)
	if err != nil {
		return err
	}
	app.startWithGracefulShutdown()
	return nil
}

func (app *Application) initializeInfrastructure() error {
	var err error

	app.Store, err = store.New(app.Config.DatabaseDriver, app.Config.DatabaseDSN)
	if err != nil {
		return err
	}
	log.Printf("Database connected (%s)", app.Config.DatabaseDriver)

	app.FlowStates, err = initializeFlowStateCache(app.Config)
	if err != nil {
		return err
	}

	app.Cipher, err = util.NewTokenCipher(app.Config.EncryptionSecret)
	if err != nil {
		return err
	}

	app.Metrics = metrics.Init(app.Config.MetricsEnabled)
	return nil
}

func (app *Application) initializeBusinessLayer() {
	cfg := app.Config

	app.ClientService = services.NewClientService(app.Store, cfg, app.Metrics)
	app.AuthorizationService = services.NewAuthorizationService(app.Store, cfg, app.Metrics)
	app.TokenService = services.NewTokenService(app.Store, cfg, token.NewProvider(cfg), app.Metrics)

	provider := upstream.NewProvider(cfg, createUpstreamHTTPClient(cfg))
	app.Bridge = upstream.NewBridge(provider, app.Store, app.FlowStates, app.Cipher, cfg, app.Metrics)

	app.Resolver = auth.NewResolver(app.TokenService, app.Bridge, app.Store)
}

func (app *Application) initializeHTTPLayer() {
	app.Router = setupRouter(app)
	app.Server = createHTTPServer(app.Config, app.Router)
}

// initializeFlowStateCache picks the flow-state backend: in-process memory
// by default, Redis for multi-instance deployments.
func initializeFlowStateCache(cfg *config.Config) (cache.Cache[models.FlowState], error) {
	switch cfg.CacheType {
	case config.CacheTypeRedis:
		log.Printf("Flow state cache: redis (%s)", cfg.RedisAddr)
		return cache.NewRueidisCache[models.FlowState](
			context.Background(),
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"markgate:flow:",
		)
	default:
		log.Printf("Flow state cache: memory")
		return cache.NewMemoryCache[models.FlowState](), nil
	}
}

// createUpstreamHTTPClient builds the bounded-timeout client used for all
// upstream token and identity requests.
func createUpstreamHTTPClient(cfg *config.Config) *http.Client {
	client, err := httpclient.NewClient(
		httpclient.WithTimeout(cfg.UpstreamTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to create upstream HTTP client: %v", err)
	}
	return client
}
