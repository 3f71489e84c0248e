package router

import (
	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/handlers"
	"stonemarket/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Batches      service.BatchService
	Reservations service.ReservationService
	Sharing      service.SharingService
	Sales        service.SaleService
}

func Router(svc Services, jwtCfg middleware.JWTConfig, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	batchHandler := handlers.NewBatchHandler(svc.Batches, log)
	reservationHandler := handlers.NewReservationHandler(svc.Reservations, log)
	sharingHandler := handlers.NewSharingHandler(svc.Sharing, log)
	saleHandler := handlers.NewSaleHandler(svc.Sales, log)

	api := r.Group("/api/v1", middleware.AuthRequired(jwtCfg, log))

	batches := api.Group("/batches")
	{
		batches.POST("", batchHandler.Create)
		batches.GET("", batchHandler.List)
		batches.GET("/:id", batchHandler.Get)
		batches.PATCH("/:id", batchHandler.Update)
		batches.DELETE("/:id", batchHandler.Delete)
		batches.POST("/:id/deactivate", batchHandler.Deactivate)
		batches.POST("/:id/reactivate", batchHandler.Reactivate)
		batches.GET("/:id/shares", sharingHandler.ListForBatch)
		batches.DELETE("/:id/shares/:grantee_id", sharingHandler.Revoke)
	}

	reservations := api.Group("/reservations")
	{
		reservations.POST("", reservationHandler.Create)
		reservations.GET("", reservationHandler.ListMine)
		reservations.GET("/:id", reservationHandler.Get)
		reservations.POST("/:id/approve", reservationHandler.Approve)
		reservations.POST("/:id/reject", reservationHandler.Reject)
		reservations.POST("/:id/cancel", reservationHandler.Cancel)
	}

	shares := api.Group("/shares")
	{
		shares.POST("", sharingHandler.Grant)
		shares.POST("/catalog", sharingHandler.GrantCatalog)
		shares.GET("/mine", sharingHandler.ListMine)
	}

	sales := api.Group("/sales")
	{
		sales.POST("", saleHandler.Confirm)
		sales.GET("", saleHandler.ListMine)
		sales.GET("/:id", saleHandler.Get)
	}

	return r
}
