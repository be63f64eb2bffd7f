package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"dealer-inventory/internal/api/middleware"
	"dealer-inventory/internal/logging"
	"dealer-inventory/internal/service"
	"dealer-inventory/pkg/models"
	"dealer-inventory/pkg/utils"
)

// InventoryService is the part of the service facade the HTTP layer uses.
type InventoryService interface {
	Handle(ctx context.Context, req service.Request) (*service.Response, error)
	Status() models.CacheStatusResponse
}

// InventoryHandler serves filtered, paginated inventory with ETag support.
func InventoryHandler(svc InventoryService, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.GetRequestID(c)
		log := logger.WithField("request_id", requestID)

		criteria, err := parseCriteria(c)
		if err != nil {
			return writeError(c, log, requestID, err)
		}

		resp, err := svc.Handle(c.Request().Context(), service.Request{
			Criteria:     criteria,
			ForceRefresh: parseBool(c.QueryParam("refresh")),
			IfNoneMatch:  c.Request().Header.Get(middleware.HeaderIfNoneMatch),
		})
		if err != nil {
			return writeError(c, log, requestID, err)
		}

		header := c.Response().Header()
		header.Set(echo.HeaderCacheControl, resp.CacheControl)
		header.Set(middleware.HeaderETag, resp.ETag)
		header.Set(middleware.HeaderDataSource, resp.Source)

		if resp.NotModified {
			return c.NoContent(http.StatusNotModified)
		}

		log.Debug("Inventory served", map[string]interface{}{
			"source":   resp.Source,
			"vehicles": len(resp.Body.Vehicles),
			"total":    resp.Body.TotalCount,
		})
		return c.JSON(resp.Status, resp.Body)
	}
}

// CacheStatusHandler reports the cache state machine.
func CacheStatusHandler(svc InventoryService) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return c.JSON(http.StatusOK, svc.Status())
	}
}

func parseCriteria(c echo.Context) (models.QueryCriteria, error) {
	var (
		criteria models.QueryCriteria
		err      error
	)

	criteria.Model = strings.TrimSpace(c.QueryParam("model"))
	criteria.Search = strings.TrimSpace(c.QueryParam("search"))
	criteria.Sort = strings.TrimSpace(c.QueryParam("sort"))

	if criteria.Year, err = intParam(c, "year"); err != nil {
		return criteria, err
	}
	if criteria.PriceMin, err = intParam(c, "priceMin", "minPrice"); err != nil {
		return criteria, err
	}
	if criteria.PriceMax, err = intParam(c, "priceMax", "maxPrice"); err != nil {
		return criteria, err
	}
	if criteria.Page, err = intParam(c, "page"); err != nil {
		return criteria, err
	}
	if criteria.PerPage, err = intParam(c, "perPage"); err != nil {
		return criteria, err
	}
	return criteria, nil
}

// intParam reads the first non-empty parameter among names. Absent means 0.
func intParam(c echo.Context, names ...string) (int, error) {
	for _, name := range names {
		raw := strings.TrimSpace(c.QueryParam(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, utils.NewInvalidRequestError(fmt.Sprintf("%s must be an integer", name))
		}
		return v, nil
	}
	return 0, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// writeError renders the JSON error envelope. Internal detail is logged but
// only caller-input problems are echoed back.
func writeError(c echo.Context, log logging.Logger, requestID string, err error) error {
	ce := utils.AsCustomError(err)

	message := ce.Message
	if ce.Code < http.StatusInternalServerError {
		message = ce.Error()
		log.WithError(err).Warn("Inventory request rejected")
	} else {
		log.WithError(err).Error("Inventory request failed", map[string]interface{}{"kind": ce.Kind})
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(ce.Code, models.ErrorResponse{
		Success:   false,
		Error:     ce.Kind,
		Message:   message,
		RequestID: requestID,
	})
}
