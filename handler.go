package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds shared dependencies for all route handlers.
type Handler struct {
	db     *pgxpool.Pool
	tokens tokenService
	cache  cache        // accessor cache for active goal / day event; never nil
	hub    *realtimeHub // websocket fan-out for badge and advisory events
}

var (
	errNotFound        = errors.New("not found")
	errAlreadyRecorded = errors.New("already recorded")
)

/* ─── Database helpers ────────────────────────────────────────────────── */

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same helpers
// work inside and outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](q querier, ctx context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryOne] Query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("[queryOne] Scan error: %v", err)
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](q querier, ctx context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
	}
	return results, err
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// parseDateParam validates a YYYY-MM-DD value, returning the parsed date.
func parseDateParam(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// idParam parses the positive integer :id path param, writing a 400 and
// returning ok=false when it is not one.
func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		apiError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	router.Use(metricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", h.serveWS)

	// Public routes
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())

	api.GET("/profile", h.getProfile)
	api.PATCH("/profile", h.patchProfile)
	api.GET("/targets", h.getTargets)

	api.GET("/goals", h.listGoals)
	api.GET("/goals/active", h.getActiveGoal)
	api.POST("/goals", h.createGoal)

	api.GET("/events", h.listAthleteEvents)
	api.PUT("/events/:date", h.upsertAthleteEvent)
	api.DELETE("/events/:date", h.deleteAthleteEvent)

	api.GET("/progress", h.listProgress)
	api.GET("/progress/:module", h.getProgress)
	api.POST("/progress/:module/activity", h.recordActivity)

	api.GET("/load/sessions", h.listTrainingSessions)
	api.POST("/load/sessions", h.createTrainingSession)
	api.PUT("/load/sessions/:id", h.updateTrainingSession)
	api.DELETE("/load/sessions/:id", h.deleteTrainingSession)
	api.GET("/load/week-summary", h.getLoadWeekSummary)
	api.POST("/load/advisory", h.postLoadAdvisory)

	api.GET("/schedule", h.getSchedule)
	api.POST("/schedule/lock-days", h.lockDays)
	api.PUT("/schedule/locked-days", h.setLockedDays)
	api.GET("/schedule/tasks", h.listTaskSchedules)
	api.PUT("/schedule/tasks/:key", h.upsertTaskSchedule)
	api.DELETE("/schedule/tasks/:key", h.deleteTaskSchedule)

	api.GET("/calendar", h.listCalendarEvents)
	api.POST("/calendar", h.createCalendarEvent)
	api.DELETE("/calendar/:id", h.deleteCalendarEvent)
	api.POST("/calendar/rest-day", h.applyRestDay)

	api.GET("/wellness/weekly-goal", h.getWeeklyWellnessGoal)
	api.POST("/wellness/weekly-goal", h.createWeeklyWellnessGoal)

	api.GET("/preferences", h.getPreferences)
	api.PATCH("/preferences", h.patchPreferences)

	coach := api.Group("/coach", requireRole(roleCoach, roleAdmin))
	coach.GET("/athletes/:id/progress", h.getAthleteProgressForCoach)
}
