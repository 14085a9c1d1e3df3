// admin.go - privacy-conscious admin system
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zachkp/solar-portfolio/internal/logging"
	"github.com/Zachkp/solar-portfolio/internal/store"
)

const (
	adminCookie     = "admin_token"
	adminSessionTTL = 24 * time.Hour
	adminIssuer     = "portfolio-admin"
	visitRetention  = 365 * 24 * time.Hour
)

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("generate token: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Hash IP address for privacy compliance (consistent per IP for the life of the process)
func (a *app) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + a.ipSalt))
	return hex.EncodeToString(sum[:])[:16]
}

// signAdminToken creates an HS256 session token for username.
func (a *app) signAdminToken(username string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    adminIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminSessionTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
}

// parseAdminToken validates the token and returns its subject.
func (a *app) parseAdminToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithIssuer(adminIssuer), jwt.WithTimeFunc(a.now))
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject != a.cfg.AdminUsername {
		return "", errors.New("unknown subject")
	}
	return claims.Subject, nil
}

func (a *app) checkAdminCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) == nil
	return userOK && passOK
}

// Middleware to check admin authentication
func (a *app) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		if _, err := a.parseAdminToken(token); err != nil {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Privacy-conscious visitor tracking middleware
func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.store == nil || !trackablePath(c.Request.URL.Path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		visit := store.Visit{
			HashedIP:  a.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      c.Request.URL.Path,
			Timestamp: a.now(),
		}
		// Record in background so page rendering never waits on the database
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.store.RecordVisit(ctx, visit); err != nil {
				a.log.Warn(ctx, "error recording visitor", logging.Error(err))
			}
		}()
		c.Next()
	}
}

// Skip tracking for static files, admin pages, APIs and streams
func trackablePath(path string) bool {
	for _, prefix := range []string{"/static/", "/images/", "/admin", "/favicon", "/privacy", "/api/", "/metrics", "/healthz", "/solar/"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// cleanupOldVisitorData removes visits older than the retention window.
func (a *app) cleanupOldVisitorData(ctx context.Context) {
	if a.store == nil {
		return
	}
	n, err := a.store.DeleteVisitsBefore(ctx, a.now().Add(-visitRetention))
	if err != nil {
		a.log.Error(ctx, "error cleaning up old visitor data", logging.Error(err))
		return
	}
	if n > 0 {
		a.log.Info(ctx, "privacy cleanup removed old visitor records", logging.Int("rows", int(n)))
	}
}

// Setup all admin routes
func (a *app) setupAdminRoutes(r *gin.Engine) {
	// Privacy policy route
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	// Admin login page
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	// Admin login handler
	r.POST("/admin/login", func(c *gin.Context) {
		ctx := c.Request.Context()
		if !a.checkAdminCredentials(c.PostForm("username"), c.PostForm("password")) {
			a.log.Warn(ctx, "failed admin login attempt", logging.String("from", a.hashIP(c.ClientIP())))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		token, err := a.signAdminToken(a.cfg.AdminUsername)
		if err != nil {
			a.log.Error(ctx, "sign admin token", logging.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Login failed"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, token, int(adminSessionTTL.Seconds()), "/admin", "", gin.Mode() == gin.ReleaseMode, true)
		a.log.Info(ctx, "admin login successful", logging.String("from", a.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	// Admin logout
	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", gin.Mode() == gin.ReleaseMode, true)
		a.log.Info(c.Request.Context(), "admin logout", logging.String("from", a.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	// Protected admin routes group
	adminGroup := r.Group("/admin")
	adminGroup.Use(a.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			a.log.Error(c.Request.Context(), "error loading admin stats", logging.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":    stats,
			"sessions": a.sessions.Len(),
		})
	})

	// Admin API endpoints for HTMX/AJAX
	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/calculations", func(c *gin.Context) {
		if a.store == nil {
			c.HTML(http.StatusServiceUnavailable, "admin-error.html", gin.H{"error": "Database not configured"})
			return
		}
		calcs, err := a.store.RecentCalculations(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load calculations",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-calculations.html", gin.H{
			"calculations": calcs,
		})
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		if a.store == nil {
			c.HTML(http.StatusServiceUnavailable, "admin-error.html", gin.H{"error": "Database not configured"})
			return
		}
		visitors, err := a.store.RecentVisits(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	adminGroup.DELETE("/calculations/:id", func(c *gin.Context) {
		if a.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not configured"})
			return
		}
		id := c.Param("id")
		err := a.store.DeleteCalculation(c.Request.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Calculation not found"})
			return
		case err != nil:
			a.log.Error(c.Request.Context(), "error deleting calculation", logging.String("id", id), logging.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete calculation"})
			return
		}
		a.log.Info(c.Request.Context(), "calculation deleted by admin", logging.String("id", id))
		c.JSON(http.StatusOK, gin.H{"message": "Calculation deleted successfully"})
	})

	// Privacy compliance endpoint - run the retention cleanup now
	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		go a.cleanupOldVisitorData(context.Background())
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		c.JSON(http.StatusOK, stats)
	})
}

func (a *app) adminStats(ctx context.Context) (*store.Stats, error) {
	if a.store == nil {
		return nil, errors.New("database not configured")
	}
	return a.store.Stats(ctx, a.now())
}
