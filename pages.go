package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/solar-portfolio/internal/logging"
)

func (a *app) setupPageRoutes(r *gin.Engine) {
	// Home page route
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"aboutMeContent": AboutMe,
			"projects":       projects,
		})
	})

	// Project write-up with its jump-to-section list
	r.GET("/projects/:slug", func(c *gin.Context) {
		p, ok := findProject(c.Param("slug"))
		if !ok {
			c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": "Not Found"})
			return
		}
		c.HTML(http.StatusOK, "project.html", gin.H{
			"project": p,
			"current": p.Sections[0].ID,
		})
	})

	// HTMX fragment for a single section
	r.GET("/projects/:slug/sections/:id", func(c *gin.Context) {
		p, ok := findProject(c.Param("slug"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		s, ok := p.section(c.Param("id"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.HTML(http.StatusOK, "project-section.html", s)
	})

	r.GET("/hello", func(c *gin.Context) {
		c.HTML(http.StatusOK, "hello.html", gin.H{"greeting": "Hello World"})
	})

	// HTMX Contact form endpoint - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})

	// Handle contact form submission with HTMX
	r.POST("/contact", func(c *gin.Context) {
		name := strings.TrimSpace(c.PostForm("fullName"))
		email := strings.TrimSpace(c.PostForm("email"))
		message := strings.TrimSpace(c.PostForm("message"))

		if name == "" || email == "" || message == "" {
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Please fill in your name, email and message.",
			})
			return
		}

		if err := a.sendMail(name, email, message); err != nil {
			a.log.Warn(c.Request.Context(), "contact email failed", logging.Error(err))
			a.metrics.ObserveContact(false)
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}

		a.metrics.ObserveContact(true)
		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	})
}
