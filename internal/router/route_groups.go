package router

import (
	"restaurant_pos_backend/internal/handlers"
	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Role sets shared by the route groups. The superadmin joins the management
// sets when acting on a tenant through the tenant header.
var (
	managers   = []string{models.RoleSuperadmin, models.RoleAdmin}
	floorStaff = []string{models.RoleSuperadmin, models.RoleAdmin, models.RoleCashier, models.RoleWaiter}
	tillStaff  = []string{models.RoleSuperadmin, models.RoleAdmin, models.RoleCashier}
	everyone   = []string{models.RoleSuperadmin, models.RoleAdmin, models.RoleCashier, models.RoleWaiter, models.RoleKitchen}
	// Only roles that take part in the kitchen flow may advance items.
	kitchenFlow = []string{models.RoleAdmin, models.RoleCashier, models.RoleWaiter, models.RoleKitchen}
)

// SetupAuthRoutes sets up the authentication routes.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.LoginUser)
		authRoutes.POST("/refresh", authHandler.RefreshToken)

		authRequiredRoutes := authRoutes.Group("")
		authRequiredRoutes.Use(middleware.AuthMiddleware())
		{
			authRequiredRoutes.GET("/me", authHandler.GetCurrentUser)
		}
	}
}

// SetupTenantRoutes sets up the superadmin tenant management routes.
func SetupTenantRoutes(group *gin.RouterGroup, tenantHandler *handlers.TenantHandler) {
	tenantRoutes := group.Group("/tenants")
	{
		tenantRoutes.GET("/plans", tenantHandler.GetPlans)
		tenantRoutes.POST("", tenantHandler.CreateTenant)
		tenantRoutes.GET("", tenantHandler.GetTenants)
		tenantRoutes.GET("/:id", tenantHandler.GetTenantByID)
		tenantRoutes.PUT("/:id", tenantHandler.UpdateTenant)
		tenantRoutes.POST("/:id/activate", tenantHandler.ActivateTenant)
		tenantRoutes.POST("/:id/suspend", tenantHandler.SuspendTenant)
	}
}

// SetupUserRoutes sets up the tenant user management routes.
func SetupUserRoutes(group *gin.RouterGroup, userHandler *handlers.UserHandler) {
	userRoutes := group.Group("/users")
	userRoutes.Use(middleware.RoleAuthMiddleware(managers...))
	{
		userRoutes.POST("", userHandler.CreateUser)
		userRoutes.GET("", userHandler.GetUsers)
		userRoutes.PUT("/:id", userHandler.UpdateUser)
		userRoutes.POST("/:id/reset-password", userHandler.ResetPassword)
	}
}

// SetupCategoryRoutes sets up the category routes. Every role reads, managers write.
func SetupCategoryRoutes(group *gin.RouterGroup, catalogHandler *handlers.CatalogHandler) {
	categoryRoutes := group.Group("/categories")
	{
		categoryRoutes.GET("", middleware.RoleAuthMiddleware(everyone...), catalogHandler.GetCategories)
		categoryRoutes.GET("/:id", middleware.RoleAuthMiddleware(everyone...), catalogHandler.GetCategoryByID)

		write := categoryRoutes.Group("")
		write.Use(middleware.RoleAuthMiddleware(managers...))
		{
			write.POST("", catalogHandler.CreateCategory)
			write.PUT("/:id", catalogHandler.UpdateCategory)
			write.DELETE("/:id", catalogHandler.DeleteCategory)
		}
	}
}

// SetupProductRoutes sets up the product routes, including the Excel export and import.
func SetupProductRoutes(group *gin.RouterGroup, catalogHandler *handlers.CatalogHandler) {
	productRoutes := group.Group("/products")
	{
		productRoutes.GET("", middleware.RoleAuthMiddleware(everyone...), catalogHandler.GetProducts)

		write := productRoutes.Group("")
		write.Use(middleware.RoleAuthMiddleware(managers...))
		{
			write.GET("/export", catalogHandler.ExportProducts)
			write.POST("/import", catalogHandler.ImportProducts)
			write.POST("", catalogHandler.CreateProduct)
			write.PUT("/:id", catalogHandler.UpdateProduct)
			write.DELETE("/:id", catalogHandler.DeleteProduct)
		}

		productRoutes.GET("/:id", middleware.RoleAuthMiddleware(everyone...), catalogHandler.GetProductByID)
	}
}

// SetupClientRoutes sets up the client routes.
func SetupClientRoutes(group *gin.RouterGroup, clientHandler *handlers.ClientHandler) {
	clientRoutes := group.Group("/clients")
	clientRoutes.Use(middleware.RoleAuthMiddleware(floorStaff...))
	{
		clientRoutes.POST("", clientHandler.CreateClient)
		clientRoutes.GET("", clientHandler.GetClients)
		clientRoutes.GET("/:id", clientHandler.GetClientByID)
		clientRoutes.PUT("/:id", clientHandler.UpdateClient)
		clientRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(managers...), clientHandler.DeleteClient)
	}
}

// SetupTableRoutes sets up the dining table routes.
func SetupTableRoutes(group *gin.RouterGroup, tableHandler *handlers.TableHandler) {
	tableRoutes := group.Group("/tables")
	{
		tableRoutes.GET("", middleware.RoleAuthMiddleware(floorStaff...), tableHandler.GetTables)
		tableRoutes.GET("/:id", middleware.RoleAuthMiddleware(floorStaff...), tableHandler.GetTableByID)

		write := tableRoutes.Group("")
		write.Use(middleware.RoleAuthMiddleware(managers...))
		{
			write.POST("", tableHandler.CreateTable)
			write.PUT("/:id", tableHandler.UpdateTable)
			write.DELETE("/:id", tableHandler.DeleteTable)
		}
	}
}

// SetupOrderRoutes sets up the table tab routes.
func SetupOrderRoutes(group *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := group.Group("/orders")
	orderRoutes.Use(middleware.RoleAuthMiddleware(floorStaff...))
	{
		orderRoutes.POST("", orderHandler.OpenOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.POST("/:id/items", orderHandler.AddItems)
		orderRoutes.DELETE("/:id/items/:itemId", orderHandler.RemoveItem)
		orderRoutes.POST("/:id/send", orderHandler.SendToKitchen)
		orderRoutes.POST("/:id/items/:itemId/served", orderHandler.MarkServed)
		orderRoutes.POST("/:id/checkout", middleware.RoleAuthMiddleware(tillStaff...), orderHandler.Checkout)
		orderRoutes.POST("/:id/cancel", orderHandler.CancelOrder)
	}
}

// SetupKitchenRoutes sets up the kitchen board routes.
func SetupKitchenRoutes(group *gin.RouterGroup, kitchenHandler *handlers.KitchenHandler) {
	kitchenRoutes := group.Group("/kitchen")
	{
		kitchenRoutes.GET("/queue", middleware.RoleAuthMiddleware(everyone...), kitchenHandler.GetQueue)
		kitchenRoutes.PATCH("/items/:itemId", middleware.RoleAuthMiddleware(kitchenFlow...), kitchenHandler.AdvanceItem)
	}
}

// SetupInvoiceRoutes sets up the invoice routes.
func SetupInvoiceRoutes(group *gin.RouterGroup, invoiceHandler *handlers.InvoiceHandler) {
	invoiceRoutes := group.Group("/invoices")
	invoiceRoutes.Use(middleware.RoleAuthMiddleware(tillStaff...))
	{
		invoiceRoutes.POST("", invoiceHandler.CreateInvoice)
		invoiceRoutes.GET("", invoiceHandler.GetInvoices)
		invoiceRoutes.GET("/:id", invoiceHandler.GetInvoiceByID)
		invoiceRoutes.POST("/:id/void", middleware.RoleAuthMiddleware(managers...), invoiceHandler.VoidInvoice)
	}
}

// SetupReportRoutes sets up the dashboard and sales report routes.
func SetupReportRoutes(group *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	reportRoutes := group.Group("/reports")
	reportRoutes.Use(middleware.RoleAuthMiddleware(managers...))
	{
		reportRoutes.GET("/dashboard", reportHandler.GetDashboard)
		reportRoutes.GET("/sales", reportHandler.GetSalesReport)
		reportRoutes.GET("/sales/export", reportHandler.ExportSalesReport)
	}
}
