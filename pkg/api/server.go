package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gridbot/pkg/manager"
	"gridbot/pkg/metrics"
	"gridbot/pkg/storage"
)

// rateLimitEntry 限流条目（每个IP一份计数）
type rateLimitEntry struct {
	count      int
	lastReset  time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

var rateLimitStore = make(map[string]*rateLimitEntry)
var rateLimitMu sync.RWMutex

const rateLimitCleanupInterval = 5 * time.Minute
const rateLimitMaxIdleTime = 30 * time.Minute

func init() {
	go rateLimitCleanup()
}

// rateLimitCleanup 定期清理长时间未访问的限流条目
func rateLimitCleanup() {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rateLimitMu.Lock()
		for ip, entry := range rateLimitStore {
			entry.mu.Lock()
			lastAccess := entry.lastAccess
			entry.mu.Unlock()

			if now.Sub(lastAccess) > rateLimitMaxIdleTime {
				delete(rateLimitStore, ip)
			}
		}
		rateLimitMu.Unlock()
	}
}

// rateLimitMiddleware API请求限流中间件（基于IP，每秒rps次）
func rateLimitMiddleware(rps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		rateLimitMu.RLock()
		entry, exists := rateLimitStore[clientIP]
		rateLimitMu.RUnlock()

		if !exists {
			rateLimitMu.Lock()
			entry = &rateLimitEntry{
				lastReset:  time.Now(),
				lastAccess: time.Now(),
			}
			rateLimitStore[clientIP] = entry
			rateLimitMu.Unlock()
		}

		entry.mu.Lock()
		defer entry.mu.Unlock()

		entry.lastAccess = time.Now()

		if time.Since(entry.lastReset) >= time.Second {
			entry.count = 0
			entry.lastReset = time.Now()
		}

		if entry.count >= rps {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "请求过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}

		entry.count++
		c.Next()
	}
}

// Server 状态查询API服务器（只读，不提供下单接口）
type Server struct {
	router     *gin.Engine
	botManager *manager.BotManager
	auditStore *storage.AuditStorage
	cycleStore *storage.CycleStorage
	port       int
	httpServer *http.Server
}

// NewServer 创建API服务器
func NewServer(botManager *manager.BotManager, auditStore *storage.AuditStorage,
	cycleStore *storage.CycleStorage, port int, enableRateLimit bool, rateLimitRPS int) *Server {

	// Release模式减少gin的日志输出
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	if enableRateLimit {
		router.Use(rateLimitMiddleware(rateLimitRPS))
	}

	s := &Server{
		router:     router,
		botManager: botManager,
		auditStore: auditStore,
		cycleStore: cycleStore,
		port:       port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Any("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/overview", s.handleOverview)
		api.GET("/bots", s.handleBotList)
		api.GET("/status", s.handleStatus)
		api.GET("/cycles", s.handleCycles)
		api.GET("/audit", s.handleAudit)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// getBotFromQuery 从query参数获取bot_id，未指定时取第一个
func (s *Server) getBotFromQuery(c *gin.Context) (string, error) {
	botID := c.Query("bot_id")
	if botID == "" {
		ids := s.botManager.GetBotIDs()
		if len(ids) == 0 {
			return "", fmt.Errorf("没有可用的bot")
		}
		botID = ids[0]
	}
	return botID, nil
}

func limitFromQuery(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// handleOverview 所有bot的状态总览
func (s *Server) handleOverview(c *gin.Context) {
	c.JSON(http.StatusOK, s.botManager.GetOverview())
}

// handleBotList bot ID列表
func (s *Server) handleBotList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bots": s.botManager.GetBotIDs()})
}

// handleStatus 指定bot的运行状态
func (s *Server) handleStatus(c *gin.Context) {
	botID, err := s.getBotFromQuery(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	engine, err := s.botManager.GetBot(botID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, engine.GetStatus())
}

// handleCycles 指定bot最近的周期快照
func (s *Server) handleCycles(c *gin.Context) {
	if s.cycleStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "周期快照存储未启用"})
		return
	}

	botID, err := s.getBotFromQuery(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	snapshots, err := s.cycleStore.GetRecentSnapshots(botID, limitFromQuery(c, 50, 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("查询周期快照失败: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot_id": botID, "cycles": snapshots})
}

// handleAudit 最近的审计记录
func (s *Server) handleAudit(c *gin.Context) {
	if s.auditStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "审计存储未启用"})
		return
	}

	records, err := s.auditStore.GetRecentRecords(limitFromQuery(c, 100, 1000))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("查询审计记录失败: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Start 启动API服务器（非阻塞）
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	go func() {
		log.Printf("✓ API服务器已启动: http://localhost:%d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ API服务器错误: %v", err)
		}
	}()
}

// Stop 优雅关闭API服务器
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("⚠️  API服务器关闭失败: %v", err)
	} else {
		log.Println("✓ API服务器已关闭")
	}
}
