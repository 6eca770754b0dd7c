package router

import (
	"database/sql"

	"restaurant_pos_backend/internal/handlers"
	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/notifier"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, catalog *plans.Catalog, events notifier.Notifier) {
	// Initialize Repositories
	tenantRepo := repositories.NewTenantRepository(db)
	authRepo := repositories.NewAuthRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	tableRepo := repositories.NewTableRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	kitchenRepo := repositories.NewKitchenRepository(db)
	invoiceRepo := repositories.NewInvoiceRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	// Initialize Services
	authService := services.NewAuthService(authRepo, db)
	tenantService := services.NewTenantService(tenantRepo, authRepo, catalog, db)
	userService := services.NewUserService(authRepo, tenantRepo, catalog, db)
	catalogService := services.NewCatalogService(catalogRepo, tenantRepo, catalog, db)
	clientService := services.NewClientService(clientRepo, invoiceRepo, db)
	tableService := services.NewTableService(tableRepo, tenantRepo, catalog, db)
	kitchenService := services.NewKitchenService(kitchenRepo, events, db)
	invoiceService := services.NewInvoiceService(invoiceRepo, clientRepo, catalogRepo, orderRepo, tableRepo, tenantRepo, catalog, events, db)
	orderService := services.NewOrderService(orderRepo, tableRepo, catalogRepo, invoiceService, kitchenService, events, db)
	reportService := services.NewReportService(reportRepo)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	userHandler := handlers.NewUserHandler(userService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	clientHandler := handlers.NewClientHandler(clientService)
	tableHandler := handlers.NewTableHandler(tableService)
	orderHandler := handlers.NewOrderHandler(orderService)
	kitchenHandler := handlers.NewKitchenHandler(kitchenService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	reportHandler := handlers.NewReportHandler(reportService)

	apiV1 := engine.Group("/api/v1")

	SetupAuthRoutes(apiV1, authHandler)

	platform := apiV1.Group("")
	platform.Use(middleware.AuthMiddleware(), middleware.RoleAuthMiddleware(models.RoleSuperadmin))
	{
		SetupTenantRoutes(platform, tenantHandler)
	}

	// Everything below works on one tenant, resolved from the token or, for the
	// superadmin, from the X-Tenant-ID header.
	scoped := apiV1.Group("")
	scoped.Use(middleware.AuthMiddleware(), middleware.TenantScopeMiddleware(tenantRepo))
	{
		SetupUserRoutes(scoped, userHandler)
		SetupCategoryRoutes(scoped, catalogHandler)
		SetupProductRoutes(scoped, catalogHandler)
		SetupClientRoutes(scoped, clientHandler)
		SetupTableRoutes(scoped, tableHandler)
		SetupOrderRoutes(scoped, orderHandler)
		SetupKitchenRoutes(scoped, kitchenHandler)
		SetupInvoiceRoutes(scoped, invoiceHandler)
		SetupReportRoutes(scoped, reportHandler)
	}
}
