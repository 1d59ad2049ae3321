package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/handlers"
)

type Deps struct {
	DB               *gorm.DB
	ProductHandler   *handlers.ProductHandler
	OrderHandler     *handlers.OrderHandler
	InvoiceHandler   *handlers.InvoiceHandler
	SlaughterHandler *handlers.SlaughterHandler
	MeatCutHandler   *handlers.MeatCutHandler
	AdminHandler     *handlers.AdminHandler
	SearchHandler    *handlers.SearchHandler
	LogHandler       *handlers.LogHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.GET("/search", d.SearchHandler.SearchProducts)

	products := v1.Group("/products")

	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct)
	products.PATCH("/:id", d.ProductHandler.PatchProduct)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct)

	orders := v1.Group("/orders")

	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/search", d.OrderHandler.SearchOrders)
	orders.GET("/customers", d.OrderHandler.GetCustomers)
	orders.GET("/status/:status", d.OrderHandler.GetOrdersByStatus)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.PUT("/:id", d.OrderHandler.UpdateOrder)
	orders.PATCH("/:id/status", d.OrderHandler.UpdateOrderStatus)
	orders.POST("/:id/items", d.OrderHandler.AddOrderItem)
	orders.DELETE("/:id/items/:itemId", d.OrderHandler.RemoveOrderItem)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)
	orders.DELETE("/:id", d.OrderHandler.DeleteOrder)

	invoices := v1.Group("/invoices")

	invoices.GET("", d.InvoiceHandler.GetInvoices)
	invoices.GET("/number/:number", d.InvoiceHandler.GetInvoiceByNumber)
	invoices.GET("/by-order/:orderId", d.InvoiceHandler.GetInvoiceByOrder)
	invoices.GET("/:id", d.InvoiceHandler.GetInvoice)
	invoices.GET("/:id/pdf", d.InvoiceHandler.GetInvoicePDF)
	invoices.POST("", d.InvoiceHandler.CreateInvoice)
	invoices.POST("/batch/pdf", d.InvoiceHandler.GetCombinedPDF)
	invoices.POST("/batch/from-orders", d.InvoiceHandler.RegenerateInvoices)
	invoices.PATCH("/:id", d.InvoiceHandler.UpdateInvoice)
	invoices.DELETE("/:id", d.InvoiceHandler.DeleteInvoice)

	slaughters := v1.Group("/slaughters")

	slaughters.GET("", d.SlaughterHandler.GetSlaughters)
	slaughters.GET("/search", d.SlaughterHandler.SearchSlaughters)
	slaughters.GET("/date-range", d.SlaughterHandler.GetSlaughtersByDateRange)
	slaughters.GET("/:id", d.SlaughterHandler.GetSlaughter)
	slaughters.GET("/:slaughterId/meat-cuts", d.MeatCutHandler.GetMeatCutsBySlaughter)
	slaughters.POST("", d.SlaughterHandler.CreateSlaughter)
	slaughters.PUT("/:id", d.SlaughterHandler.UpdateSlaughter)
	slaughters.DELETE("/:id", d.SlaughterHandler.DeleteSlaughter)

	cuts := v1.Group("/meat-cuts")

	cuts.GET("", d.MeatCutHandler.GetMeatCuts)
	cuts.GET("/availability/product/:productId", d.MeatCutHandler.GetAvailabilityByProduct)
	cuts.GET("/:id", d.MeatCutHandler.GetMeatCut)
	cuts.POST("/:id/allocate", d.MeatCutHandler.AllocateWeight)
	cuts.POST("/:id/release", d.MeatCutHandler.ReleaseWeight)

	logs := v1.Group("/logs")

	logs.GET("", d.LogHandler.GetLogs)
	logs.GET("/level/:level", d.LogHandler.GetLogsByLevel)
	logs.GET("/since", d.LogHandler.GetLogsSince)
	logs.GET("/count", d.LogHandler.GetLogCount)
	logs.DELETE("", d.LogHandler.ClearLogs)

	v1.POST("/init/products", d.AdminHandler.InitProducts)
	v1.DELETE("/init/products", d.AdminHandler.ClearProducts)
	v1.POST("/admin/reset-database", d.AdminHandler.ResetDatabase)
}
