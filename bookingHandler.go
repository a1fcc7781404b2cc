package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/refinehaus/clinic_backend/booking"
	"github.com/refinehaus/clinic_backend/config"
	"github.com/sirupsen/logrus"
)

const idempotencyHeader = "Idempotency-Key"

type bookingCreator interface {
	CreateBooking(ctx context.Context, req booking.Request) booking.Response
}

func idempotencyLockKey(key string) string  { return "lock:booking:" + key }
func idempotencyCacheKey(key string) string { return "booking:idem:" + key }

// bookingHandler serves POST /booking. Business failures still answer 200 with success=false;
// only an undecodable body is a 400.
//
// With an Idempotency-Key header and Redis available, a successful response is cached and
// replayed for repeats of the same key. Concurrent requests with the same key get 409.
func bookingHandler(logger *logrus.Logger, bookings bookingCreator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req booking.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, booking.Response{Success: false, Message: "invalid request body: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		redisLock := config.GetRedisLock()
		if key == "" || redisLock == nil {
			c.JSON(http.StatusOK, bookings.CreateBooking(ctx, req))
			return
		}

		var cached booking.Response
		if found, err := config.GetRedisObject(idempotencyCacheKey(key), &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		lock, err := redisLock.Obtain(ctx, idempotencyLockKey(key), 30*time.Second, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			c.JSON(http.StatusConflict, booking.Response{Success: false, Message: "a booking with this idempotency key is in progress"})
			return
		} else if err != nil {
			logger.WithFields(logrus.Fields{
				"field":           "bookingHandler",
				"idempotency_key": key,
			}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
			lock = nil
		}
		defer func() {
			if lock == nil {
				return
			}
			if releaseErr := lock.Release(context.Background()); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"field":           "bookingHandler",
					"idempotency_key": key,
				}).Warn("failed to release redis lock: " + releaseErr.Error())
			}
		}()

		// Re-check after locking: the previous holder may have just finished.
		if found, err := config.GetRedisObject(idempotencyCacheKey(key), &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		resp := bookings.CreateBooking(ctx, req)
		if resp.Success {
			if err := config.SetRedisObject(idempotencyCacheKey(key), resp, config.BookingIdempotencyTTL()); err != nil {
				logger.WithFields(logrus.Fields{
					"field":           "bookingHandler",
					"idempotency_key": key,
				}).Warn("failed to cache booking response: " + err.Error())
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
