package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
)

// Decoded cells never change, so GET lookups may be cached indefinitely.
const immutableCache = "public, max-age=31536000, immutable"

// EncodeHandler returns the DIGIPIN of a coordinate pair.
func EncodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.EncodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := req.Check(); err != nil {
			return respondError(c, err)
		}

		res, err := deps.Digipin.Encode(c.UserContext(), *req.Latitude, *req.Longitude)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// DecodeHandler returns the center and bounds of a DIGIPIN sent in the body.
func DecodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PinRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		res, err := deps.Digipin.Decode(c.UserContext(), req.Pin)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDigipinHandler decodes the DIGIPIN in the path.
func GetDigipinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.Digipin.Decode(c.UserContext(), c.Params("pin"))
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, immutableCache)
		return c.JSON(res)
	}
}

// CellGeoJSONHandler returns the cell of the path DIGIPIN as a GeoJSON
// Feature. The optional depth query selects an ancestor cell (default 10).
func CellGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		depth := digipin.Length
		if raw := c.Query("depth"); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil {
				return errBadRequest(c, "depth must be an integer")
			}
			depth = d
		}

		f, err := deps.Digipin.Cell(c.UserContext(), c.Params("pin"), depth)
		if err != nil {
			return respondError(c, err)
		}
		body, err := f.MarshalJSON()
		if err != nil {
			return respondError(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/geo+json")
		c.Set(fiber.HeaderCacheControl, immutableCache)
		return c.Send(body)
	}
}

// ValidateHandler reports whether a DIGIPIN is well formed. Invalid input is
// a normal 200 answer.
func ValidateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PinRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		return c.JSON(deps.Digipin.Validate(c.UserContext(), req.Pin))
	}
}

// DistanceHandler returns the distance between two DIGIPIN centers.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.DistanceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		res, err := deps.Digipin.Distance(c.UserContext(), req.StartPin, req.EndPin)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// NearestHandler returns the candidate closest to the reference DIGIPIN.
func NearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.NearestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		res, err := deps.Digipin.Nearest(c.UserContext(), req.ReferencePin, req.Candidates)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// BatchEncodeHandler encodes up to usecases.MaxBatchItems coordinate pairs.
func BatchEncodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.BatchEncodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		items, sum, err := deps.Digipin.BatchEncode(c.UserContext(), req.Items)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(domain.BatchEncodeResponse{Items: items, Summary: sum})
	}
}

// BatchDecodeHandler decodes up to usecases.MaxBatchItems DIGIPINs.
func BatchDecodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.BatchDecodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		items, sum, err := deps.Digipin.BatchDecode(c.UserContext(), req.Pins)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(domain.BatchDecodeResponse{Items: items, Summary: sum})
	}
}

// AgentRespondHandler runs one agent turn. It answers 503 when no language
// model is configured.
func AgentRespondHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.Agent.Ready() {
			return respondError(c, domain.ErrAgentUnavailable)
		}

		var req domain.AgentRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		reply, err := deps.Agent.Respond(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(reply)
	}
}

// LegacyDistanceHandler serves /api/digipin/distance, whose clients read
// distance_meters.
func LegacyDistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.DistanceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		res, err := deps.Digipin.Distance(c.UserContext(), req.StartPin, req.EndPin)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"start_pin":       res.StartPin,
			"end_pin":         res.EndPin,
			"distance_meters": res.Meters,
			"meters":          res.Meters,
			"kilometers":      res.Kilometers,
			"formatted":       res.Formatted,
		})
	}
}
