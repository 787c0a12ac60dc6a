package http

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/config"
	"github.com/jedmesilva/mobistory-backend/internal/http/auth"
	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	entityhttp "github.com/jedmesilva/mobistory-backend/internal/http/entities"
	eventhttp "github.com/jedmesilva/mobistory-backend/internal/http/events"
	linkhttp "github.com/jedmesilva/mobistory-backend/internal/http/links"
	permhttp "github.com/jedmesilva/mobistory-backend/internal/http/permissions"
	vehiclehttp "github.com/jedmesilva/mobistory-backend/internal/http/vehicles"
	"github.com/jedmesilva/mobistory-backend/internal/repo/postgres"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type Server struct {
	cfg           config.Config
	r             *gin.Engine
	deps          ServerDeps
	authenticator common.Authenticator
}

type ServerDeps struct {
	Entities    *usecase.EntityService
	Links       *usecase.LinkService
	Permissions *usecase.PermissionService
	Events      *usecase.EventService
	Vehicles    usecase.VehicleRepository
	Partitions  usecase.PartitionAdmin

	Authenticator common.Authenticator
}

func NewServer(cfg config.Config, store *postgres.Store, cache usecase.PermissionCache) *Server {
	entityRepo := postgres.NewEntityRepository(store.DB)
	vehicleRepo := postgres.NewVehicleRepository(store.DB)
	linkRepo := postgres.NewLinkRepository(store.DB)
	permissionRepo := postgres.NewPermissionRepository(store.DB)
	eventRepo := postgres.NewEventRepository(store.DB)
	partitionAdmin := postgres.NewPartitionAdmin(store.DB)

	ttl := time.Duration(cfg.PermissionCacheTTLSeconds) * time.Second
	permissionService := usecase.NewPermissionService(permissionRepo, cache, ttl)
	entityService := usecase.NewEntityService(entityRepo)
	linkService := usecase.NewLinkService(linkRepo, entityRepo, vehicleRepo, permissionService)
	eventService := usecase.NewEventService(eventRepo, linkRepo)

	return NewServerWithDeps(cfg, ServerDeps{
		Entities:      entityService,
		Links:         linkService,
		Permissions:   permissionService,
		Events:        eventService,
		Vehicles:      vehicleRepo,
		Partitions:    partitionAdmin,
		Authenticator: auth.NewHeaderAuthenticator(),
	})
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		deps:          deps,
		authenticator: deps.Authenticator,
	}
	if s.authenticator == nil {
		s.authenticator = auth.NewHeaderAuthenticator()
	}
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("mobistory-backend listening on %s", addr)
	return s.r.Run(addr)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	entityHandler := entityhttp.NewHandler(s.deps.Entities)
	linkHandler := linkhttp.NewHandler(s.deps.Links)
	permissionHandler := permhttp.NewHandler(s.deps.Permissions)
	vehicleHandler := vehiclehttp.NewHandler(s.deps.Vehicles, s.deps.Links, s.deps.Events, s.deps.Partitions)
	ingestHandler := eventhttp.NewHandler(usecase.NewProjector(s.deps.Events))

	v1 := s.r.Group("/v1")
	v1.Use(common.ActorMiddleware(s.authenticator))
	{
		v1.POST("/entities", entityHandler.HandleCreate)
		v1.POST("/entities/anonymous", entityHandler.HandleCreateAnonymous)
		v1.GET("/entities", entityHandler.HandleList)
		v1.GET("/entities/:id", entityHandler.HandleGet)
		v1.PATCH("/entities/:id/name", entityHandler.HandleUpdateName)
		v1.PATCH("/entities/:id/contact", entityHandler.HandleUpdateContact)
		v1.POST("/entities/:id/convert", entityHandler.HandleConvert)
		v1.DELETE("/entities/:id", entityHandler.HandleDeactivate)
		v1.GET("/entities/:id/names", entityHandler.HandleNameHistory)
		v1.GET("/entities/:id/contacts", entityHandler.HandleContactHistory)
		v1.GET("/entities/:id/links", linkHandler.HandleListByEntity)

		v1.POST("/links/grant", linkHandler.HandleGrant)
		v1.POST("/links/request", linkHandler.HandleRequest)
		v1.POST("/links/claim", linkHandler.HandleClaim)
		v1.GET("/links/:id", linkHandler.HandleGet)
		v1.GET("/links/:id/history", linkHandler.HandleHistory)
		v1.POST("/links/:id/approve", linkHandler.HandleApprove)
		v1.POST("/links/:id/reject", linkHandler.HandleReject)
		v1.POST("/links/:id/validate", linkHandler.HandleValidate)
		v1.POST("/links/:id/terminate", linkHandler.HandleTerminate)
		v1.POST("/links/:id/revoke", linkHandler.HandleRevoke)
		v1.POST("/links/:id/suspend", linkHandler.HandleSuspend)
		v1.POST("/links/:id/reactivate", linkHandler.HandleReactivate)
		v1.POST("/links/:id/end-date", linkHandler.HandleScheduleEnd)

		v1.POST("/vehicles", vehicleHandler.HandleCreate)
		v1.GET("/vehicles/:id", vehicleHandler.HandleGet)
		v1.GET("/vehicles/:id/links", vehicleHandler.HandleLinks)
		v1.GET("/vehicles/:id/owners", vehicleHandler.HandleOwners)
		v1.GET("/vehicles/:id/timeline", vehicleHandler.HandleTimeline)

		v1.POST("/vehicles/:id/sources/refuels", ingestHandler.HandleRefuel)
		v1.POST("/vehicles/:id/sources/mileage", ingestHandler.HandleMileage)
		v1.POST("/vehicles/:id/sources/claims", ingestHandler.HandleClaim)
		v1.POST("/vehicles/:id/sources/plates", ingestHandler.HandlePlate)
		v1.POST("/vehicles/:id/sources/odometers", ingestHandler.HandleOdometer)
		v1.POST("/vehicles/:id/sources/colors", ingestHandler.HandleColor)
		v1.POST("/vehicles/:id/sources/covers", ingestHandler.HandleCover)
		v1.POST("/vehicles/:id/sources/actions", ingestHandler.HandleAction)

		v1.GET("/permissions", permissionHandler.HandleCatalog)
		v1.GET("/permissions/check", permissionHandler.HandleCheck)

		v1.GET("/admin/partitions", vehicleHandler.HandleListPartitions)
		v1.POST("/admin/partitions/:year/:quarter", vehicleHandler.HandleEnsurePartition)
		v1.DELETE("/admin/partitions/:year/:quarter", vehicleHandler.HandleDropPartition)
	}
}
