package dashboard

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/schedule"
	"golang.org/x/exp/slices"
)

const maxTopRoutes = 100

var departureViews = []string{"basic", "detailed"}

type Server struct {
	Sources *Sources
}

func (s *Server) App() *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/", s.index)

	group := webApp.Group("/api")
	group.Get("/overview", s.overview)
	group.Get("/routes", s.routes)
	group.Get("/stops", s.stops)
	group.Get("/stops/locations", s.stopLocations)
	group.Get("/stops/:id/departures", s.stopDepartures)
	group.Get("/realtime", s.realtime)
	group.Get("/regions", s.regions)
	group.Post("/refresh", s.refresh)

	return webApp
}

// Listen serves the dashboard until ctx is cancelled
func (s *Server) Listen(ctx context.Context, listen string) error {
	webApp := s.App()

	go func() {
		<-ctx.Done()
		if err := webApp.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down dashboard server")
		}
	}()

	log.Info().Str("listen", listen).Str("region", s.Sources.Region).Msg("Starting dashboard server")

	return webApp.Listen(listen)
}

func (s *Server) index(c *fiber.Ctx) error {
	page, err := renderIndex(s.Sources.Overview(c.UserContext(), schedule.DefaultTopRoutes))
	if err != nil {
		return err
	}

	c.Type("html", "utf-8")
	return c.Send(page)
}

func (s *Server) overview(c *fiber.Ctx) error {
	return c.JSON(s.Sources.Overview(c.UserContext(), schedule.DefaultTopRoutes))
}

func (s *Server) routes(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", schedule.DefaultTopRoutes)
	if limit <= 0 || limit > maxTopRoutes {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "limit must be between 1 and 100",
		})
	}

	ctx := c.UserContext()

	return c.JSON(fiber.Map{
		"route_types": s.Sources.RouteTypes(ctx),
		"top_routes":  s.Sources.TopRoutes(ctx, limit),
	})
}

func (s *Server) stops(c *fiber.Ctx) error {
	return c.JSON(s.Sources.StopList(c.UserContext()))
}

func (s *Server) stopLocations(c *fiber.Ctx) error {
	return c.JSON(s.Sources.StopLocations(c.UserContext()))
}

func (s *Server) realtime(c *fiber.Ctx) error {
	return c.JSON(s.Sources.Realtime(c.UserContext()))
}

func (s *Server) regions(c *fiber.Ctx) error {
	return c.JSON(schedule.Regions())
}

func (s *Server) stopDepartures(c *fiber.Ctx) error {
	view := c.Query("view", "basic")
	if !slices.Contains(departureViews, view) {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "view must be basic or detailed",
		})
	}

	departures := s.Sources.StopDepartures(c.UserContext(), c.Params("id"))

	departuresReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{view},
	}, departures)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce departures",
		})
	}

	return c.JSON(departuresReduced)
}

// refresh drops every cached result so the next request reloads from the stores
func (s *Server) refresh(c *fiber.Ctx) error {
	if s.Sources.Results == nil {
		return c.JSON(fiber.Map{
			"refreshed": false,
		})
	}

	if err := s.Sources.Results.Invalidate(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("Failed to invalidate dashboard cache")

		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not clear the dashboard cache",
		})
	}

	log.Info().Msg("Dashboard cache cleared")

	return c.JSON(fiber.Map{
		"refreshed": true,
	})
}
