// Package server implements the optional backend: a small REST surface for
// conversions beyond client capability. It is strictly additive; the batch
// pipeline never requires it.
package server

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/models"
)

// Version reported by /health and /capabilities.
const Version = "2.0.0"

// Server wraps the echo instance and its configuration.
type Server struct {
	echo *echo.Echo
	cfg  models.ServerConfig
	pdf  models.PDFConfig
}

type echoValidator struct {
	validate *validator.Validate
}

func (v *echoValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// New builds the server with routes and middleware registered.
func New(cfg models.ServerConfig, pdf models.PDFConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &echoValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.AllowOrigins, ","),
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
	}))
	e.Use(middleware.BodyLimit(bodyLimit(cfg.MaxUploadMB)))

	s := &Server{echo: e, cfg: cfg, pdf: pdf}

	e.GET("/", s.handleHealth)
	e.GET("/health", s.handleHealth)
	e.GET("/ping", s.handlePing)
	e.GET("/capabilities", s.handleCapabilities)
	e.POST("/compress-image", s.handleCompressImage)
	e.POST("/compress-pdf", s.handlePDFToImages)
	e.POST("/pdf-to-images", s.handlePDFToImages)
	e.POST("/pdf-to-docx", s.handlePDFToDocx)

	return s
}

// Start blocks serving HTTP on the configured listen address.
func (s *Server) Start() error {
	log.Infof("Backend server listening on %s", s.cfg.Listen)
	return s.echo.Start(s.cfg.Listen)
}

func bodyLimit(maxUploadMB int) string {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return fmt.Sprintf("%dM", maxUploadMB)
}
