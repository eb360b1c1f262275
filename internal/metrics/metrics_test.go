package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSettlement(t *testing.T) {
	ok := testutil.ToFloat64(SettlementRuns.WithLabelValues(OutcomeOK))
	failed := testutil.ToFloat64(SettlementRuns.WithLabelValues(OutcomeError))

	ObserveSettlement(time.Now(), nil)
	ObserveSettlement(time.Now(), errors.New("boom"))
	ObserveSettlement(time.Now(), nil)

	assert.Equal(t, ok+2, testutil.ToFloat64(SettlementRuns.WithLabelValues(OutcomeOK)))
	assert.Equal(t, failed+1, testutil.ToFloat64(SettlementRuns.WithLabelValues(OutcomeError)))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/rounds/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/missing/:id", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/rounds/:id", "204")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/rounds/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	notFound := HTTPRequestsTotal.WithLabelValues("GET", "/missing/:id", "404")
	before = testutil.ToFloat64(notFound)
	resp, err := app.Test(httptest.NewRequest("GET", "/missing/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(notFound))
}
