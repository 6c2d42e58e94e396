// Package api serves read-only firmware image inspection over HTTP.
package api

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ptnfw/internal/logger"
	"github.com/samcharles93/ptnfw/pkg/ptn"
)

// DefaultMaxBodyBytes caps uploaded images when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 64 << 20

// Config configures a Server. Zero fields select defaults.
type Config struct {
	Registry     *ptn.Registry
	Decode       ptn.DecodeOptions
	MaxBodyBytes int64
	Logger       logger.Logger
}

// Server handles the image inspection endpoints.
type Server struct {
	registry *ptn.Registry
	decode   ptn.DecodeOptions
	maxBody  int64
	log      logger.Logger
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = ptn.DefaultRegistry()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Server{
		registry: cfg.Registry,
		decode:   cfg.Decode,
		maxBody:  cfg.MaxBodyBytes,
		log:      cfg.Logger.WithGroup("api"),
	}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/models", s.handleListModels)
	e.POST("/v1/images/inspect", s.handleInspect)
	e.POST("/v1/images/check", s.handleCheck)
	e.POST("/v1/images/fix", s.handleFix)
	e.POST("/v1/images/partitions/:name", s.handlePartition)
}

func (s *Server) handleListModels(c *echo.Context) error {
	out := ModelList{Default: ptn.DefaultModelKey}
	for _, k := range s.registry.Keys() {
		m, err := s.registry.Lookup(k)
		if err != nil {
			return writeFailure(c, err)
		}
		out.Models = append(out.Models, modelInfo(m))
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleInspect(c *echo.Context) error {
	img, err := s.readImage(c)
	if err != nil {
		return writeFailure(c, err)
	}
	s.log.Info("inspected image", "request_id", requestID(c), "bytes", len(img.Data), "entries", len(img.Entries))
	return writeJSON(c, http.StatusOK, Describe(img))
}

func (s *Server) handleCheck(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeFailure(c, err)
	}
	stored, expected, err := ptn.Digest(data, m)
	if err != nil {
		return writeFailure(c, err)
	}
	match := stored == expected
	s.log.Info("checked image", "request_id", requestID(c), "model", m.Key, "match", match)
	return writeJSON(c, http.StatusOK, CheckResponse{
		Model:    m.Key,
		Match:    match,
		Stored:   hex.EncodeToString(stored[:]),
		Expected: hex.EncodeToString(expected[:]),
	})
}

func (s *Server) handleFix(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeFailure(c, err)
	}
	changed, err := ptn.Repair(data, m)
	if err != nil {
		return writeFailure(c, err)
	}
	s.log.Info("fixed image", "request_id", requestID(c), "model", m.Key, "changed", changed)
	c.Response().Header().Set("X-Checksum-Changed", strconv.FormatBool(changed))
	return writeBlob(c, http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handlePartition(c *echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return writeBadRequest(c, "partition name is required")
	}
	img, err := s.readImage(c)
	if err != nil {
		return writeFailure(c, err)
	}
	e, ok := img.Entry(name)
	if !ok {
		return writeNotFound(c, "partition not found: "+name)
	}
	payload, err := img.Payload(e)
	if err != nil {
		return writeFailure(c, err)
	}
	s.log.Debug("extracted partition", "request_id", requestID(c), "name", name, "size", len(payload))
	return writeBlob(c, http.StatusOK, "application/octet-stream", payload)
}

func (s *Server) readImage(c *echo.Context) (*ptn.Image, error) {
	data, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return nil, err
	}
	return ptn.Parse(data, s.decode)
}

func (s *Server) model(c *echo.Context) (ptn.Model, error) {
	key := c.QueryParam("model")
	if key == "" {
		key = ptn.DefaultModelKey
	}
	return s.registry.Lookup(key)
}
