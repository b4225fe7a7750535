package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maint-engine/backend/config"
	"maint-engine/backend/internal/api/handler"
	"maint-engine/backend/internal/api/middleware"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/pkg/jwt"
	"maint-engine/backend/pkg/metrics"
)

const (
	maxBodyBytes      = 1 << 20
	loginRateLimit    = 10
	loginRateInterval = time.Minute
)

// 角色组合
var (
	everyone = []string{model.RoleAdmin, model.RoleAreaSupervisor, model.RoleTechnician, model.RoleGuest, model.RoleOperator}
	readers  = []string{model.RoleAdmin, model.RoleAreaSupervisor, model.RoleTechnician, model.RoleGuest}
	staff    = []string{model.RoleAdmin, model.RoleAreaSupervisor, model.RoleTechnician}
	managers = []string{model.RoleAdmin, model.RoleAreaSupervisor}
	admins   = []string{model.RoleAdmin}
	// 可提交 / 撤回服务请求的角色
	submitters = []string{model.RoleAdmin, model.RoleAreaSupervisor, model.RoleTechnician, model.RoleOperator}
)

// Options 路由依赖，Blacklist / Limiter / Metrics 可为 nil
type Options struct {
	Config    *config.Config
	Handler   *handler.Handler
	JWT       *jwt.Manager
	Blacklist middleware.TokenChecker
	Limiter   middleware.RateLimiter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := opts.Handler

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(opts.Config.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(opts.Limiter, loginRateLimit, loginRateInterval), h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(opts.JWT, opts.Blacklist, opts.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 工单模块
			orders := authorized.Group("/work-orders")
			{
				orders.GET("", middleware.RoleAuth(readers...), h.WorkOrder.List)
				orders.GET("/next-id", middleware.RoleAuth(staff...), h.WorkOrder.NextID)
				orders.GET("/board", middleware.RoleAuth(readers...), h.WorkOrder.Board)
				orders.GET("/assigned", middleware.RoleAuth(staff...), h.WorkOrder.Assigned)
				orders.GET("/:id", middleware.RoleAuth(readers...), h.WorkOrder.Get)
				orders.POST("", middleware.RoleAuth(staff...), h.WorkOrder.Create)
				orders.PUT("/:id", middleware.RoleAuth(staff...), h.WorkOrder.Update)
				orders.DELETE("/:id", middleware.RoleAuth(managers...), h.WorkOrder.Delete)
				orders.POST("/:id/start", middleware.RoleAuth(staff...), h.WorkOrder.Start)
				orders.POST("/:id/pause", middleware.RoleAuth(staff...), h.WorkOrder.Pause)
				orders.POST("/:id/resume", middleware.RoleAuth(staff...), h.WorkOrder.Resume)
				orders.POST("/:id/complete", middleware.RoleAuth(staff...), h.WorkOrder.Complete)
				orders.POST("/:id/cancel", middleware.RoleAuth(staff...), h.WorkOrder.Cancel)
				orders.PUT("/:id/parts", middleware.RoleAuth(staff...), h.WorkOrder.UpdatePartsUsed)
			}

			// 服务请求模块（Operator 仅见本人提交的请求，Service 层过滤）
			requests := authorized.Group("/requests")
			{
				requests.GET("", middleware.RoleAuth(everyone...), h.Request.List)
				requests.GET("/:id", middleware.RoleAuth(everyone...), h.Request.Get)
				requests.POST("", middleware.RoleAuth(submitters...), h.Request.Submit)
				requests.POST("/:id/cancel", middleware.RoleAuth(submitters...), h.Request.Cancel)
				requests.POST("/:id/reject", middleware.RoleAuth(staff...), h.Request.Reject)
				requests.POST("/:id/convert", middleware.RoleAuth(staff...), h.Request.Convert)
			}

			// 指标与看板
			authorized.GET("/kpis", middleware.RoleAuth(readers...), h.KPI.KPIs)
			authorized.GET("/dashboard/stats", middleware.RoleAuth(readers...), h.KPI.DashboardStats)

			// 设备模块
			machines := authorized.Group("/machines")
			{
				machines.GET("", middleware.RoleAuth(everyone...), h.Machine.List)
				machines.GET("/:id", middleware.RoleAuth(everyone...), h.Machine.Get)
				machines.POST("", middleware.RoleAuth(managers...), h.Machine.Create)
				machines.PUT("/:id", middleware.RoleAuth(managers...), h.Machine.Update)
				machines.DELETE("/:id", middleware.RoleAuth(managers...), h.Machine.Delete)
			}

			// 备件模块
			parts := authorized.Group("/parts")
			{
				parts.GET("", middleware.RoleAuth(readers...), h.Part.List)
				parts.GET("/low-stock", middleware.RoleAuth(readers...), h.Part.LowStock)
				parts.GET("/:id", middleware.RoleAuth(readers...), h.Part.Get)
				parts.POST("", middleware.RoleAuth(managers...), h.Part.Create)
				parts.PUT("/:id", middleware.RoleAuth(managers...), h.Part.Update)
				parts.DELETE("/:id", middleware.RoleAuth(managers...), h.Part.Delete)
				parts.POST("/:id/adjust", middleware.RoleAuth(staff...), h.Part.AdjustStock)
			}

			// 供应商模块
			suppliers := authorized.Group("/suppliers")
			{
				suppliers.GET("", middleware.RoleAuth(readers...), h.Supplier.List)
				suppliers.GET("/:id", middleware.RoleAuth(readers...), h.Supplier.Get)
				suppliers.POST("", middleware.RoleAuth(managers...), h.Supplier.Create)
				suppliers.PUT("/:id", middleware.RoleAuth(managers...), h.Supplier.Update)
				suppliers.DELETE("/:id", middleware.RoleAuth(managers...), h.Supplier.Delete)
			}

			// 人员模块
			technicians := authorized.Group("/technicians")
			{
				technicians.GET("", middleware.RoleAuth(readers...), h.Technician.List)
				technicians.GET("/:username", middleware.RoleAuth(admins...), h.Technician.Get)
				technicians.POST("", middleware.RoleAuth(admins...), h.Technician.Create)
				technicians.PUT("/:username", middleware.RoleAuth(admins...), h.Technician.Update)
				technicians.DELETE("/:username", middleware.RoleAuth(admins...), h.Technician.Delete)
			}

			// 导出模块
			export := authorized.Group("/export")
			export.Use(middleware.RoleAuth(readers...))
			{
				export.GET("/costs", h.Export.ExportCosts)
				export.GET("/calendar.ics", h.Export.ExportCalendar)
			}
		}
	}

	return r
}
