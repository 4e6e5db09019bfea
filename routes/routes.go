package routes

import (
	"sufra/admin"
	"sufra/auth"
	"sufra/branches"
	"sufra/cart"
	"sufra/foods"
	"sufra/middleware"
	"sufra/models"
	"sufra/orders"
	"sufra/profile"
	"sufra/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", auth.Logout)
	router.POST("/api/auth/refresh", ratelim.RateLimit(auth.RefreshToken))
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", middleware.OptionalAuth(cart.GetCart))
	router.GET("/api/cart/summary", middleware.OptionalAuth(cart.GetSummary))
	router.POST("/api/cart/items", middleware.OptionalAuth(cart.AddItem))
	router.GET("/api/cart/branch/:branchid", middleware.OptionalAuth(cart.GetBranchCart))
	router.PUT("/api/cart/branch/:branchid/items/:itemid", middleware.OptionalAuth(cart.UpdateQuantity))
	router.DELETE("/api/cart/branch/:branchid/items/:itemid", middleware.OptionalAuth(cart.RemoveItem))
	router.DELETE("/api/cart/branch/:branchid", middleware.OptionalAuth(cart.ClearBranch))
	router.DELETE("/api/cart", middleware.OptionalAuth(cart.ClearCart))
	router.POST("/api/cart/branch/:branchid/name", middleware.OptionalAuth(cart.SetBranchName))
	router.POST("/api/cart/merge", middleware.Authenticate(cart.MergeCart))
	router.GET("/api/cart/export", middleware.OptionalAuth(cart.ExportCart))
	router.POST("/api/cart/import", middleware.OptionalAuth(cart.ImportCart))
	router.POST("/api/cart/backup", middleware.OptionalAuth(cart.SaveBackup))
	router.POST("/api/cart/branch/:branchid/checkout", middleware.OptionalAuth(cart.CheckoutBranch))
	router.POST("/api/cart/checkout", middleware.OptionalAuth(cart.CheckoutAll))
}

func AddOrderRoutes(router *httprouter.Router, hub *orders.Hub) {
	router.POST("/api/orders", middleware.OptionalAuth(orders.PlaceOrder))
	router.GET("/api/orders", middleware.Authenticate(orders.GetOrders))
	router.GET("/api/orders/:orderid", middleware.Authenticate(orders.GetOrder))
	router.GET("/api/orders/:orderid/items", middleware.Authenticate(orders.GetOrderItems))
	router.GET("/api/orders/:orderid/receipt", middleware.Authenticate(orders.PrintReceipt))
	router.PUT("/api/orders/:orderid/status", middleware.Authenticate(
		middleware.RequireRole(orders.UpdateOrderStatus, models.RoleBranchAdmin, models.RoleSuperAdmin)))
	router.GET("/ws/orders/:branchid", orders.ServeFeed(hub))
}

func AddBranchRoutes(router *httprouter.Router) {
	router.GET("/api/branches", branches.GetBranches)
	router.GET("/api/branches/:slug", branches.GetBranch)
	router.POST("/api/branches", middleware.Authenticate(
		middleware.RequireRole(branches.CreateBranch, models.RoleSuperAdmin)))
	router.PUT("/api/branches/:slug", middleware.Authenticate(
		middleware.RequireRole(branches.UpdateBranch, models.RoleSuperAdmin)))
	router.DELETE("/api/branches/:slug", middleware.Authenticate(
		middleware.RequireRole(branches.DeleteBranch, models.RoleSuperAdmin)))
}

func AddFoodRoutes(router *httprouter.Router) {
	router.GET("/api/menu/:branchid", foods.GetFoods)
	router.GET("/api/menu/:branchid/categories", foods.GetCategories)
	router.GET("/api/foods/:slug", foods.GetFood)
	router.POST("/api/menu/:branchid", middleware.Authenticate(
		middleware.RequireRole(foods.CreateFood, models.RoleBranchAdmin, models.RoleSuperAdmin)))
	router.PUT("/api/menu/:branchid/items/:foodid", middleware.Authenticate(
		middleware.RequireRole(foods.UpdateFood, models.RoleBranchAdmin, models.RoleSuperAdmin)))
	router.DELETE("/api/menu/:branchid/items/:foodid", middleware.Authenticate(
		middleware.RequireRole(foods.DeleteFood, models.RoleBranchAdmin, models.RoleSuperAdmin)))
}

func AddProfileRoutes(router *httprouter.Router) {
	router.GET("/api/profile", middleware.Authenticate(profile.GetProfile))
	router.PUT("/api/profile", middleware.Authenticate(profile.UpdateProfile))
}

func AddAdminRoutes(router *httprouter.Router) {
	router.POST("/api/admin/branch-admin", middleware.Authenticate(
		middleware.RequireRole(admin.SetBranchAdmin, models.RoleSuperAdmin)))
	router.GET("/api/admin/users", middleware.Authenticate(
		middleware.RequireRole(admin.ListUsers, models.RoleSuperAdmin)))
}
