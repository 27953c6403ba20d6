// Package toolman собирает HTTP API маркетплейса: маршруты, middleware
// и жизненный цикл сервера.
package toolman

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	goodscreate "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/create"
	goodspurchase "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/purchase"
	goodsrandom "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/random"
	goodsread "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/read"
	goodsseller "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/seller"
	goodsstatus "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/goods/status"
	labelslist "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/labels/list"
	mediaupload "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/media/upload"
	messagesconversations "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/messages/conversations"
	messagescreate "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/messages/create"
	messageshistory "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/messages/history"
	orderscreate "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/orders/create"
	orderslistmine "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/orders/listmine"
	ordersread "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/orders/read"
	ordersstatus "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/orders/status"
	userconfirm "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/user/confirm"
	userlogin "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/user/login"
	userpreferences "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/user/preferences"
	userread "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/user/read"
	userregister "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/handlers/user/register"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/http/middlewarectx"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/jwt"
	marketservice "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/services/market"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, market *marketservice.MarketService,
	catalog *labels.Catalog, jwtMaker jwt.Maker, mediaDir string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Открытые конечные точки
	r.Get("/labels", labelslist.New(logger, catalog).ServeHTTP)
	r.Post("/user/register", userregister.New(logger, market).ServeHTTP)
	r.Get("/user/confirm", userconfirm.New(logger, market).ServeHTTP)
	r.Post("/user/login", userlogin.New(logger, market, jwtMaker).ServeHTTP)
	r.Get("/user/{id}", userread.New(logger, market).ServeHTTP)
	r.Get("/goods/random", goodsrandom.New(logger, market).ServeHTTP)
	r.Get("/goods/seller", goodsseller.New(logger, market).ServeHTTP)
	r.Get("/goods/{id}", goodsread.New(logger, market).ServeHTTP)

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		r.Put("/user/{id}/preferences", userpreferences.New(logger, market).ServeHTTP)
		r.Post("/goods", goodscreate.New(logger, market).ServeHTTP)
		r.Put("/goods/{id}/status", goodsstatus.New(logger, market).ServeHTTP)
		r.Post("/goods/{id}/update", goodspurchase.New(logger, market).ServeHTTP)
		r.Post("/orders", orderscreate.New(logger, market).ServeHTTP)
		r.Get("/orders", orderslistmine.New(logger, market).ServeHTTP)
		r.Get("/orders/{id}", ordersread.New(logger, market).ServeHTTP)
		r.Put("/orders/{id}/status", ordersstatus.New(logger, market).ServeHTTP)
		r.Post("/messages", messagescreate.New(logger, market).ServeHTTP)
		r.Get("/messages/list", messagesconversations.New(logger, market).ServeHTTP)
		r.Get("/messages/{user_id}", messageshistory.New(logger, market).ServeHTTP)
		r.Post("/upload", mediaupload.New(logger, mediaDir).ServeHTTP)
	})

	// Статика медиафайлов
	fs := http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir)))
	r.Get("/media/*", fs.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())
}
